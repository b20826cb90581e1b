package audit

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/requestid"
)

const maxFieldLength = 500

// Actor identifies who performed an audited action and from where.
type Actor struct {
	UserID    uint
	IPAddress string
	UserAgent string
	RequestID string
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	now     func() time.Time
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(event); err != nil {
			log.Printf("Failed to log audit event %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every event handed to LogAsync is written.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) newEvent(actor Actor, eventType entities.AuditEventType, action string) *entities.AuditEvent {
	return &entities.AuditEvent{
		UserID:    actor.UserID,
		EventType: eventType,
		Action:    action,
		IPAddress: actor.IPAddress,
		UserAgent: truncate(actor.UserAgent, maxFieldLength),
		RequestID: actor.RequestID,
		Status:    entities.AuditStatusSuccess,
	}
}

// LogAuth records an authentication event such as "login" or "register".
func (s *Service) LogAuth(actor Actor, action string, success bool) {
	event := s.newEvent(actor, entities.AuditEventAuth, action)
	if !success {
		event.Status = entities.AuditStatusFailed
	}
	s.LogAsync(event)
}

// LogCreate records that an entity was created.
func (s *Service) LogCreate(actor Actor, entityType string, entityID uint, name string) {
	s.logChange(actor, entities.AuditEventCreate, entityType, entityID, "Created "+entityType+": "+name)
}

// LogUpdate records that an entity was changed.
func (s *Service) LogUpdate(actor Actor, entityType string, entityID uint, name string) {
	s.logChange(actor, entities.AuditEventUpdate, entityType, entityID, "Updated "+entityType+": "+name)
}

// LogDelete records a deletion event.
func (s *Service) LogDelete(actor Actor, entityType string, entityID uint, name string) {
	s.logChange(actor, entities.AuditEventDelete, entityType, entityID, "Deleted "+entityType+": "+name)
}

func (s *Service) logChange(actor Actor, eventType entities.AuditEventType, entityType string, entityID uint, description string) {
	event := s.newEvent(actor, eventType, entityType+"_"+string(eventType))
	event.EntityType = entityType
	event.EntityID = &entityID
	event.Description = truncate(description, maxFieldLength)
	s.LogAsync(event)
}

// LogAdmin records an action taken through the admin site.
func (s *Service) LogAdmin(actor Actor, action, description string, err error) {
	event := s.newEvent(actor, entities.AuditEventAdmin, action)
	event.Description = truncate(description, maxFieldLength)
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), maxFieldLength)
	}
	s.LogAsync(event)
}

// Events retrieves audit events matching the filter, newest first.
func (s *Service) Events(f audit.Filter) ([]entities.AuditEvent, int64, error) {
	return s.repo.Find(f)
}

// History lists the events recorded against one entity.
func (s *Service) History(entityType string, entityID uint) ([]entities.AuditEvent, error) {
	return s.repo.History(entityType, entityID)
}

// DeleteOldEvents removes events older than the retention period and
// records the cleanup itself.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)
	deleted, err := s.repo.DeleteOldEvents(cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events before %s: %w", cutoff.Format(time.RFC3339), err)
	}

	event := s.newEvent(Actor{}, entities.AuditEventCleanup, "audit_cleanup")
	event.Description = fmt.Sprintf("Removed %d events older than %s", deleted, cutoff.Format(time.RFC3339))
	if err := s.repo.LogEvent(event); err != nil {
		log.Printf("Failed to record audit cleanup: %v", err)
	}
	return deleted, nil
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// ActorFromContext describes the caller of a gin request.
func ActorFromContext(c *gin.Context, userID uint) Actor {
	return Actor{
		UserID:    userID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: requestid.Get(c),
	}
}
