package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/forms"
)

type authorForm struct {
	Name string `form:"name" binding:"required,max=255"`
}

type AuthorsController struct {
	pages
	changes
	store AuthorStore
	perms PermissionChecker
}

func NewAuthorsController(p pages, ch changes, store AuthorStore, perms PermissionChecker) *AuthorsController {
	return &AuthorsController{pages: p, changes: ch, store: store, perms: perms}
}

// List shows every author with the size of their bibliography.
func (ac *AuthorsController) List(c *gin.Context) {
	authors, err := ac.store.ListAuthors(strings.TrimSpace(c.Query("q")))
	if err != nil {
		ac.internalError(c, err, "list authors")
		return
	}
	counts, err := ac.store.BookCountByAuthor()
	if err != nil {
		ac.internalError(c, err, "count books by author")
		return
	}
	bookCounts := make(map[uint]int64, len(counts))
	for _, row := range counts {
		bookCounts[row.AuthorID] = row.Books
	}

	ac.render(c, http.StatusOK, "authors", gin.H{
		"Title":      "Authors",
		"Authors":    authors,
		"BookCounts": bookCounts,
		"CanAdd":     ac.perms.HasPermission(auth.CurrentUser(c), entities.PermAddBook),
	})
}

func (ac *AuthorsController) AddPage(c *gin.Context) {
	ac.render(c, http.StatusOK, "author_form", gin.H{
		"Title":  "Add author",
		"Form":   authorForm{},
		"Errors": forms.Errors{},
	})
}

func (ac *AuthorsController) Add(c *gin.Context) {
	var form authorForm
	errs := forms.FromBinding(c.ShouldBind(&form), nil)
	name := strings.TrimSpace(form.Name)
	if name == "" {
		errs.Add("name", "This field is required.")
	}
	if errs.Any() {
		ac.render(c, http.StatusBadRequest, "author_form", gin.H{
			"Title":  "Add author",
			"Form":   form,
			"Errors": errs,
		})
		return
	}

	author := &entities.Author{Name: name}
	if err := ac.store.CreateAuthor(author); err != nil {
		ac.internalError(c, err, "create author")
		return
	}
	ac.record(c, "create", "author", author.ID, author.Name)

	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusCreated, author)
		return
	}
	ac.redirect(c, http.StatusCreated, "/authors/", "Author \""+author.Name+"\" was added.")
}
