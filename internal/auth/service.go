package auth

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database/permissions"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/entities"
)

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9@.+_-]{3,150}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^\+?[0-9 ()-]{6,20}$`)
)

const (
	maxEmailLength = 254
	maxBioLength   = 500
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user with this email or username already exists")
	ErrUserInactive     = errors.New("user account is disabled")
	ErrInvalidRole      = errors.New("invalid role")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrPasswordRequired = errors.New("password is required")
	ErrAccountLocked    = errors.New("account is locked due to too many failed login attempts")
	ErrUsernameInvalid  = errors.New("username must be 3-150 characters: letters, digits and @/./+/-/_ only")
	ErrEmailInvalid     = errors.New("invalid email format")
	ErrBioTooLong       = errors.New("bio must be at most 500 characters")
	ErrPhoneInvalid     = errors.New("invalid phone number")
)

// RegisterInput carries everything the registration form collects.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Bio         string
	PhoneNumber string
	Role        entities.Role
}

// ProfileInput is the editable subset of a user's details.
type ProfileInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	Bio         string
	PhoneNumber string
}

// Service handles authentication, user management and permission checks.
type Service struct {
	users  *users.Repository
	perms  *permissions.Repository
	config config.Auth
	now    func() time.Time
}

// NewService creates a new authentication service.
func NewService(db *gorm.DB, cfg config.Auth) *Service {
	return &Service{
		users:  users.NewRepository(db),
		perms:  permissions.NewRepository(db),
		config: cfg,
		now:    time.Now,
	}
}

// Permissions exposes the permission repository for group administration.
func (s *Service) Permissions() *permissions.Repository {
	return s.perms
}

// Users exposes the user repository for listings.
func (s *Service) Users() *users.Repository {
	return s.users
}

// Register validates the input and creates an active user whose profile
// carries the chosen role (Member when none is given).
func (s *Service) Register(in RegisterInput) (*entities.User, error) {
	return s.create(in, false)
}

// CreateSuperuser creates a staff superuser with the Admin role.
func (s *Service) CreateSuperuser(in RegisterInput) (*entities.User, error) {
	in.Role = entities.RoleAdmin
	return s.create(in, true)
}

func (s *Service) create(in RegisterInput, superuser bool) (*entities.User, error) {
	in.Email = users.NormalizeEmail(in.Email)
	in.Username = strings.TrimSpace(in.Username)
	if in.Role == "" {
		in.Role = entities.RoleMember
	}
	if err := validateRegistration(in); err != nil {
		return nil, err
	}

	exists, err := s.users.Exists(in.Email, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing user: %w", err)
	}
	if exists {
		return nil, ErrUserExists
	}

	passwordHash, err := HashPassword(in.Password, s.config.BcryptCost)
	if err != nil {
		return nil, err
	}

	user := &entities.User{
		Email:        in.Email,
		Username:     in.Username,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		DateOfBirth:  in.DateOfBirth,
		Bio:          strings.TrimSpace(in.Bio),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
		PasswordHash: passwordHash,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}
	if err := s.users.Create(user, in.Role); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func validateRegistration(in RegisterInput) error {
	if in.Email == "" {
		return ErrEmailRequired
	}
	if len(in.Email) > maxEmailLength || !emailPattern.MatchString(in.Email) {
		return ErrEmailInvalid
	}
	if in.Username == "" {
		return ErrUsernameRequired
	}
	if !usernamePattern.MatchString(in.Username) {
		return ErrUsernameInvalid
	}
	if in.Password == "" {
		return ErrPasswordRequired
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return ErrInvalidRole
	}
	return validateProfile(ProfileInput{Bio: in.Bio, PhoneNumber: in.PhoneNumber})
}

func validateProfile(in ProfileInput) error {
	if len([]rune(in.Bio)) > maxBioLength {
		return ErrBioTooLong
	}
	if phone := strings.TrimSpace(in.PhoneNumber); phone != "" && !phonePattern.MatchString(phone) {
		return ErrPhoneInvalid
	}
	return nil
}

// Authenticate validates email and password and returns the user.
// Implements account lockout after too many failed attempts.
func (s *Service) Authenticate(email, password string) (*entities.User, error) {
	user, err := s.users.GetByEmail(email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	now := s.now()
	if user.IsLocked(now) {
		return nil, ErrAccountLocked
	}

	if err := CheckPassword(password, user.PasswordHash); err != nil {
		s.recordFailedLogin(user, now)
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	if err := s.users.RecordLogin(user.ID, now); err != nil {
		log.Printf("Failed to record login for user %d: %v", user.ID, err)
	}
	user.LastLoginAt = &now
	user.FailedLoginCount = 0
	user.LockedUntil = nil

	return user, nil
}

// recordFailedLogin increments the failed login counter and locks the account if threshold reached.
func (s *Service) recordFailedLogin(user *entities.User, now time.Time) {
	user.FailedLoginCount++

	maxAttempts := s.config.MaxLoginAttempts
	if maxAttempts <= 0 {
		maxAttempts = 5
	}

	var lockedUntil *time.Time
	if user.FailedLoginCount >= maxAttempts {
		lockoutDuration := s.config.LockoutDuration
		if lockoutDuration == 0 {
			lockoutDuration = 30 * time.Minute
		}
		until := now.Add(lockoutDuration)
		lockedUntil = &until
	}

	if err := s.users.RecordFailedLogin(user.ID, user.FailedLoginCount, lockedUntil); err != nil {
		log.Printf("Failed to record failed login for user %d: %v", user.ID, err)
	}
}

// GetUserByID retrieves a user with the profile loaded.
func (s *Service) GetUserByID(id uint) (*entities.User, error) {
	user, err := s.users.GetByID(id)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// ChangePassword updates a user's password after verifying the old one.
func (s *Service) ChangePassword(userID uint, oldPassword, newPassword string) error {
	user, err := s.GetUserByID(userID)
	if err != nil {
		return err
	}
	if err := CheckPassword(oldPassword, user.PasswordHash); err != nil {
		return err
	}
	newHash, err := HashPassword(newPassword, s.config.BcryptCost)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(userID, newHash)
}

// UpdateProfile changes the personal details of a user.
func (s *Service) UpdateProfile(userID uint, in ProfileInput) (*entities.User, error) {
	if err := validateProfile(in); err != nil {
		return nil, err
	}
	user, err := s.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.DateOfBirth = in.DateOfBirth
	user.Bio = strings.TrimSpace(in.Bio)
	user.PhoneNumber = strings.TrimSpace(in.PhoneNumber)
	if err := s.users.Save(user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// SetProfilePhoto records the stored photo path for the user.
func (s *Service) SetProfilePhoto(userID uint, path string) error {
	return s.users.UpdatePhoto(userID, path)
}

// SetRole changes the role on the user's profile.
func (s *Service) SetRole(userID uint, role entities.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	err := s.users.SetRole(userID, role)
	if errors.Is(err, users.ErrNotFound) {
		return ErrUserNotFound
	}
	return err
}

// HasPermission reports whether the user holds the "app.codename" permission.
// Inactive users hold nothing and superusers hold everything.
func (s *Service) HasPermission(user *entities.User, perm string) bool {
	if user == nil || !user.IsActive {
		return false
	}
	if user.IsSuperuser {
		return true
	}
	ok, err := s.perms.UserHasPermission(user.ID, perm)
	if err != nil {
		log.Printf("Permission check %s for user %d failed: %v", perm, user.ID, err)
		return false
	}
	return ok
}

// UserPermissions lists the permission keys the user holds.
func (s *Service) UserPermissions(user *entities.User) ([]string, error) {
	if user == nil || !user.IsActive {
		return nil, nil
	}
	if user.IsSuperuser {
		all, err := s.perms.ListPermissions()
		if err != nil {
			return nil, err
		}
		keys := make([]string, len(all))
		for i, p := range all {
			keys[i] = p.Key()
		}
		return keys, nil
	}
	return s.perms.UserPermissions(user.ID)
}

// HasUsers returns true if any users exist in the database.
func (s *Service) HasUsers() (bool, error) {
	count, err := s.users.Count()
	return count > 0, err
}
