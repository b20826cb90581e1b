package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/database/catalog"
)

type LibrariesController struct {
	pages
	store LibraryStore
}

func NewLibrariesController(p pages, store LibraryStore) *LibrariesController {
	return &LibrariesController{pages: p, store: store}
}

// List shows libraries with their librarian and book count.
func (lc *LibrariesController) List(c *gin.Context) {
	libraries, err := lc.store.ListLibraries(strings.TrimSpace(c.Query("q")))
	if err != nil {
		lc.internalError(c, err, "list libraries")
		return
	}
	lc.render(c, http.StatusOK, "libraries", gin.H{
		"Title":     "Libraries",
		"Libraries": libraries,
	})
}

// Detail shows one library with its books and their authors.
func (lc *LibrariesController) Detail(c *gin.Context) {
	id, ok := lc.pageID(c)
	if !ok {
		return
	}
	library, err := lc.store.GetLibrary(id)
	if errors.Is(err, catalog.ErrNotFound) {
		lc.notFound(c, "No library matches the given query.")
		return
	}
	if err != nil {
		lc.internalError(c, err, "get library")
		return
	}
	lc.render(c, http.StatusOK, "library_detail", gin.H{
		"Title":   library.Name,
		"Library": library,
	})
}
