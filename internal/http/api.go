package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
)

// APIController serves the read-only JSON catalog.
type APIController struct {
	books     BookStore
	libraries LibraryStore
	perms     PermissionChecker
}

func NewAPIController(books BookStore, libraries LibraryStore, perms PermissionChecker) *APIController {
	return &APIController{books: books, libraries: libraries, perms: perms}
}

// ListBooks returns a page of books.
// Query: q, author_id, page, per_page (max 100).
func (a *APIController) ListBooks(c *gin.Context) {
	page := pageParam(c)
	perPage, err := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(defaultPageSize)))
	if err != nil || perPage < 1 || perPage > 100 {
		respondBadRequest(c, "per_page must be between 1 and 100")
		return
	}
	filter := catalog.BookFilter{
		Search: strings.TrimSpace(c.Query("q")),
		Limit:  perPage,
		Offset: (page - 1) * perPage,
	}
	if raw := c.Query("author_id"); raw != "" {
		authorID, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid author_id")
			return
		}
		filter.AuthorID = uint(authorID)
	}

	books, total, err := a.books.ListBooks(filter)
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, PaginatedResponse{
		Data:       books,
		Total:      total,
		Page:       page,
		TotalPages: totalPages(total, perPage),
	})
}

func (a *APIController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	book, err := a.books.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

func (a *APIController) ListLibraries(c *gin.Context) {
	libraries, err := a.libraries.ListLibraries(strings.TrimSpace(c.Query("q")))
	if err != nil {
		respondInternalError(c, err, "list libraries")
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": libraries})
}

func (a *APIController) GetLibrary(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	library, err := a.libraries.GetLibrary(id)
	if errors.Is(err, catalog.ErrNotFound) {
		respondNotFound(c, "library")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get library")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"library":    library,
		"book_count": library.BookCount(),
		"librarian":  library.LibrarianName(),
	})
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	User          *entities.User `json:"user"`
	Role          entities.Role  `json:"role"`
	AuthType      auth.AuthType  `json:"auth_type"`
	CanAddBook    bool           `json:"can_add_book"`
	CanChangeBook bool           `json:"can_change_book"`
}

func (a *APIController) Me(c *gin.Context) {
	user := auth.CurrentUser(c)
	c.JSON(http.StatusOK, MeResponse{
		User:          user,
		Role:          user.Role(),
		AuthType:      auth.GetAuthType(c),
		CanAddBook:    a.perms.HasPermission(user, entities.PermAddBook),
		CanChangeBook: a.perms.HasPermission(user, entities.PermChangeBook),
	})
}
