package http

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/forms"
	"github.com/mrlokans/catalog/internal/metrics"
)

const defaultPageSize = 20

// --- Response Types ---

// ErrorResponse is the standard error response format for all API errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"` // validation errors
}

// PaginatedResponse wraps paginated data with metadata.
type PaginatedResponse struct {
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	TotalPages int   `json:"total_pages"`
}

// --- Error Response Helpers ---

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
}

func respondNotFound(c *gin.Context, resource string) {
	c.JSON(http.StatusNotFound, ErrorResponse{Error: resource + " not found"})
}

// respondInternalError logs the error and sends a 500 without details.
func respondInternalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// --- Parameter Parsing ---

// parseIDParam extracts an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil {
		respondBadRequest(c, "invalid "+paramName)
		return 0, false
	}
	return uint(id), true
}

// pageParam reads ?page=, defaulting to 1.
func pageParam(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func totalPages(total int64, perPage int) int {
	pages := int((total + int64(perPage) - 1) / int64(perPage))
	if pages < 1 {
		return 1
	}
	return pages
}

// --- Page rendering ---

// pages renders HTML templates, or JSON for API clients, and owns the
// 403/404/500 pages.
type pages struct {
	sessions *auth.SessionManager
}

func (p pages) render(c *gin.Context, status int, name string, data gin.H) {
	if auth.IsAPIRequest(c) {
		if errs, ok := data["Errors"].(forms.Errors); ok && errs.Any() {
			c.JSON(status, ErrorResponse{Error: "validation failed", Details: errs})
			return
		}
		payload := gin.H{}
		for k, v := range data {
			switch k {
			case "Form", "Action", "Errors":
				continue
			}
			payload[k] = v
		}
		c.JSON(status, payload)
		return
	}
	c.HTML(status, name, auth.TemplateData(c, p.sessions, data))
}

func (p pages) notFound(c *gin.Context, message string) {
	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: message})
		return
	}
	c.HTML(http.StatusNotFound, "404", auth.TemplateData(c, p.sessions, gin.H{"Title": "Not found", "Message": message}))
}

func (p pages) badRequest(c *gin.Context, message string) {
	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: message})
		return
	}
	c.HTML(http.StatusBadRequest, "error", auth.TemplateData(c, p.sessions, gin.H{"Title": "Bad request", "Message": message}))
}

// forbidden matches auth.ForbiddenRenderer.
func (p pages) forbidden(c *gin.Context, message string) {
	c.HTML(http.StatusForbidden, "403", auth.TemplateData(c, p.sessions, gin.H{"Title": "Forbidden", "Message": message}))
}

func (p pages) internalError(c *gin.Context, err error, context string) {
	log.Printf("Internal error (%s): %v", context, err)
	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	c.HTML(http.StatusInternalServerError, "error", auth.TemplateData(c, p.sessions, gin.H{
		"Title":   "Server error",
		"Message": "The server could not complete the request.",
	}))
}

// pageID parses the :id parameter; a malformed ID is a missing page.
func (p pages) pageID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		p.notFound(c, "No record matches the given query.")
		return 0, false
	}
	return uint(id), true
}

// redirect sends browsers to location with a flash message; API clients
// get the message as JSON.
func (p pages) redirect(c *gin.Context, status int, location, message string) {
	if auth.IsAPIRequest(c) {
		c.JSON(status, gin.H{"message": message})
		return
	}
	if message != "" && p.sessions != nil {
		p.sessions.Flash(c.Request, message)
	}
	c.Redirect(http.StatusFound, location)
}

// --- Change tracking ---

// changes feeds catalog writes to the audit log and the metrics.
type changes struct {
	audit   *audit.Service
	metrics *metrics.Metrics
}

func (ch changes) record(c *gin.Context, action, entity string, id uint, name string) {
	ch.metrics.RecordChange(entity, action)
	if ch.audit == nil {
		return
	}
	actor := audit.ActorFromContext(c, auth.GetUserID(c))
	switch action {
	case "create":
		ch.audit.LogCreate(actor, entity, id, name)
	case "update":
		ch.audit.LogUpdate(actor, entity, id, name)
	case "delete":
		ch.audit.LogDelete(actor, entity, id, name)
	}
}
