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
	"github.com/mrlokans/catalog/internal/forms"
)

// shelfForm is the flat bookshelf record form.
type shelfForm struct {
	Title           string    `form:"title" json:"title" binding:"required,max=200"`
	Author          string    `form:"author" json:"author" binding:"required,max=100"`
	PublicationYear yearInput `form:"publication_year" json:"publication_year" binding:"required"`
}

var shelfFieldNames = map[string]string{
	"Title":           "title",
	"Author":          "author",
	"PublicationYear": "publication_year",
}

// ShelfController serves the bookshelf pages. Every route is guarded by
// a bookshelf permission.
type ShelfController struct {
	pages
	changes
	store ShelfStore
	perms PermissionChecker
}

func NewShelfController(p pages, ch changes, store ShelfStore, perms PermissionChecker) *ShelfController {
	return &ShelfController{pages: p, changes: ch, store: store, perms: perms}
}

func (sc *ShelfController) List(c *gin.Context) {
	search := strings.TrimSpace(c.Query("q"))
	books, err := sc.store.ListShelfBooks(search)
	if err != nil {
		sc.internalError(c, err, "list shelf books")
		return
	}
	user := auth.CurrentUser(c)
	sc.render(c, http.StatusOK, "shelf_books", gin.H{
		"Title":     "Bookshelf",
		"Books":     books,
		"Search":    search,
		"CanCreate": sc.perms.HasPermission(user, entities.PermShelfCreate),
		"CanEdit":   sc.perms.HasPermission(user, entities.PermShelfEdit),
		"CanDelete": sc.perms.HasPermission(user, entities.PermShelfDelete),
	})
}

func (sc *ShelfController) load(c *gin.Context) (*entities.ShelfBook, bool) {
	id, ok := sc.pageID(c)
	if !ok {
		return nil, false
	}
	book, err := sc.store.GetShelfBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		sc.notFound(c, "No book matches the given query.")
		return nil, false
	}
	if err != nil {
		sc.internalError(c, err, "get shelf book")
		return nil, false
	}
	return book, true
}

func (sc *ShelfController) bind(c *gin.Context) (shelfForm, int, forms.Errors) {
	var form shelfForm
	errs := forms.FromBinding(c.ShouldBind(&form), shelfFieldNames)
	year := 0
	if form.PublicationYear != "" {
		var err error
		year, err = strconv.Atoi(strings.TrimSpace(string(form.PublicationYear)))
		if err != nil {
			errs.Add("publication_year", "Enter a whole number.")
		}
	}
	return form, year, errs
}

func (sc *ShelfController) renderForm(c *gin.Context, status int, title string, form shelfForm, errs forms.Errors) {
	sc.render(c, status, "shelf_form", gin.H{
		"Title":  title,
		"Action": c.Request.URL.Path,
		"Form":   form,
		"Errors": errs,
	})
}

// Create shows the form on GET and stores the record on POST.
func (sc *ShelfController) Create(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		sc.renderForm(c, http.StatusOK, "Add book", shelfForm{}, forms.Errors{})
		return
	}

	form, year, errs := sc.bind(c)
	if errs.Any() {
		sc.renderForm(c, http.StatusBadRequest, "Add book", form, errs)
		return
	}
	book := &entities.ShelfBook{Title: strings.TrimSpace(form.Title), Author: strings.TrimSpace(form.Author), PublicationYear: year}
	if err := sc.store.CreateShelfBook(book); err != nil {
		sc.internalError(c, err, "create shelf book")
		return
	}
	sc.record(c, "create", "shelf_book", book.ID, book.Title)
	sc.redirect(c, http.StatusCreated, "/bookshelf/books/", "Book \""+book.Title+"\" was added.")
}

// Edit shows the filled form on GET and saves it on POST.
func (sc *ShelfController) Edit(c *gin.Context) {
	book, ok := sc.load(c)
	if !ok {
		return
	}
	if c.Request.Method != http.MethodPost {
		form := shelfForm{Title: book.Title, Author: book.Author, PublicationYear: yearInput(strconv.Itoa(book.PublicationYear))}
		sc.renderForm(c, http.StatusOK, "Edit book", form, forms.Errors{})
		return
	}

	form, year, errs := sc.bind(c)
	if errs.Any() {
		sc.renderForm(c, http.StatusBadRequest, "Edit book", form, errs)
		return
	}
	book.Title = strings.TrimSpace(form.Title)
	book.Author = strings.TrimSpace(form.Author)
	book.PublicationYear = year
	if err := sc.store.UpdateShelfBook(book); err != nil {
		sc.internalError(c, err, "update shelf book")
		return
	}
	sc.record(c, "update", "shelf_book", book.ID, book.Title)
	sc.redirect(c, http.StatusOK, "/bookshelf/books/", "Book \""+book.Title+"\" was updated.")
}

// Delete asks for confirmation on GET and deletes on POST.
func (sc *ShelfController) Delete(c *gin.Context) {
	book, ok := sc.load(c)
	if !ok {
		return
	}
	if c.Request.Method != http.MethodPost {
		sc.render(c, http.StatusOK, "shelf_confirm_delete", gin.H{
			"Title":  "Delete book",
			"Book":   book,
			"Action": c.Request.URL.Path,
		})
		return
	}

	if err := sc.store.DeleteShelfBook(book.ID); err != nil {
		sc.internalError(c, err, "delete shelf book")
		return
	}
	sc.record(c, "delete", "shelf_book", book.ID, book.Title)
	sc.redirect(c, http.StatusOK, "/bookshelf/books/", "Book \""+book.Title+"\" was deleted.")
}
