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

// bookForm mirrors the add/edit book page. API clients post the same
// fields as JSON.
type bookForm struct {
	Title           string    `form:"title" json:"title" binding:"required,max=255"`
	AuthorID        uint      `form:"author_id" json:"author_id" binding:"required"`
	PublicationYear yearInput `form:"publication_year" json:"publication_year"`
	LibraryIDs      []uint    `form:"library_ids" json:"library_ids"`
}

// yearInput holds the raw publication year. JSON may carry it as a
// number or a string.
type yearInput string

func (y *yearInput) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*y = ""
		return nil
	}
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = unquoted
	}
	*y = yearInput(raw)
	return nil
}

var bookFieldNames = map[string]string{
	"Title":      "title",
	"AuthorID":   "author_id",
	"LibraryIDs": "library_ids",
}

// InLibrary reports whether the library checkbox is ticked.
func (f bookForm) InLibrary(id uint) bool {
	for _, libraryID := range f.LibraryIDs {
		if libraryID == id {
			return true
		}
	}
	return false
}

func bookFormFrom(book *entities.Book) bookForm {
	form := bookForm{Title: book.Title, AuthorID: book.AuthorID}
	if book.PublicationYear != nil {
		form.PublicationYear = yearInput(strconv.Itoa(*book.PublicationYear))
	}
	for _, l := range book.Libraries {
		form.LibraryIDs = append(form.LibraryIDs, l.ID)
	}
	return form
}

// parseYear accepts an empty value or a year between 0 and 9999.
func parseYear(raw string) (*int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 || year > 9999 {
		return nil, false
	}
	return &year, true
}

type BooksController struct {
	pages
	changes
	store BookStore
	perms PermissionChecker
}

func NewBooksController(p pages, ch changes, store BookStore, perms PermissionChecker) *BooksController {
	return &BooksController{pages: p, changes: ch, store: store, perms: perms}
}

func (bc *BooksController) can(c *gin.Context, perm string) bool {
	return bc.perms.HasPermission(auth.CurrentUser(c), perm)
}

// List shows books ordered by title, with search and pagination.
func (bc *BooksController) List(c *gin.Context) {
	search := strings.TrimSpace(c.Query("q"))
	page := pageParam(c)

	books, total, err := bc.store.ListBooks(catalog.BookFilter{
		Search: search,
		Limit:  defaultPageSize,
		Offset: (page - 1) * defaultPageSize,
	})
	if err != nil {
		bc.internalError(c, err, "list books")
		return
	}

	bc.render(c, http.StatusOK, "books", gin.H{
		"Title":      "Books",
		"Books":      books,
		"Search":     search,
		"Total":      total,
		"Page":       page,
		"TotalPages": totalPages(total, defaultPageSize),
		"CanAdd":     bc.can(c, entities.PermAddBook),
		"CanChange":  bc.can(c, entities.PermChangeBook),
		"CanDelete":  bc.can(c, entities.PermDeleteBook),
	})
}

func (bc *BooksController) Detail(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	bc.render(c, http.StatusOK, "book_detail", gin.H{
		"Title":     book.Title,
		"Book":      book,
		"CanChange": bc.can(c, entities.PermChangeBook),
		"CanDelete": bc.can(c, entities.PermDeleteBook),
	})
}

func (bc *BooksController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := bc.pageID(c)
	if !ok {
		return nil, false
	}
	book, err := bc.store.GetBook(id)
	if errors.Is(err, catalog.ErrNotFound) {
		bc.notFound(c, "No book matches the given query.")
		return nil, false
	}
	if err != nil {
		bc.internalError(c, err, "get book")
		return nil, false
	}
	return book, true
}

func (bc *BooksController) AddPage(c *gin.Context) {
	bc.renderForm(c, http.StatusOK, "Add book", c.Request.URL.Path, bookForm{}, forms.Errors{})
}

func (bc *BooksController) Add(c *gin.Context) {
	form, year, errs := bc.bindForm(c)
	if errs.Any() {
		bc.renderForm(c, http.StatusBadRequest, "Add book", c.Request.URL.Path, form, errs)
		return
	}

	book := &entities.Book{Title: strings.TrimSpace(form.Title), AuthorID: form.AuthorID, PublicationYear: year}
	if err := bc.store.SaveBook(book, form.LibraryIDs); err != nil {
		bc.internalError(c, err, "create book")
		return
	}
	bc.record(c, "create", "book", book.ID, book.Title)

	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusCreated, book)
		return
	}
	bc.redirect(c, http.StatusCreated, "/books/", "Book \""+book.Title+"\" was added.")
}

func (bc *BooksController) EditPage(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	bc.renderForm(c, http.StatusOK, "Edit book", c.Request.URL.Path, bookFormFrom(book), forms.Errors{})
}

func (bc *BooksController) Edit(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}

	form, year, errs := bc.bindForm(c)
	if errs.Any() {
		bc.renderForm(c, http.StatusBadRequest, "Edit book", c.Request.URL.Path, form, errs)
		return
	}

	book.Title = strings.TrimSpace(form.Title)
	book.AuthorID = form.AuthorID
	book.PublicationYear = year
	if err := bc.store.SaveBook(book, form.LibraryIDs); err != nil {
		bc.internalError(c, err, "update book")
		return
	}
	bc.record(c, "update", "book", book.ID, book.Title)

	bc.redirect(c, http.StatusOK, "/books/", "Book \""+book.Title+"\" was updated.")
}

// bindForm validates the submitted form, including that the author and
// libraries exist.
func (bc *BooksController) bindForm(c *gin.Context) (bookForm, *int, forms.Errors) {
	var form bookForm
	errs := forms.FromBinding(c.ShouldBind(&form), bookFieldNames)

	year, ok := parseYear(string(form.PublicationYear))
	if !ok {
		errs.Add("publication_year", "Enter a whole number.")
	}

	if form.AuthorID != 0 {
		if _, err := bc.store.GetAuthor(form.AuthorID); err != nil {
			errs.Add("author_id", "Select a valid choice. That choice is not one of the available choices.")
		}
	}

	if len(form.LibraryIDs) > 0 {
		libraries, err := bc.store.ListLibraries("")
		if err != nil {
			errs.AddGeneral("Could not load libraries.")
		} else {
			known := make(map[uint]bool, len(libraries))
			for _, l := range libraries {
				known[l.ID] = true
			}
			for _, id := range form.LibraryIDs {
				if !known[id] {
					errs.Add("library_ids", "Select a valid choice. "+strconv.FormatUint(uint64(id), 10)+" is not one of the available choices.")
				}
			}
		}
	}
	return form, year, errs
}

func (bc *BooksController) renderForm(c *gin.Context, status int, title, action string, form bookForm, errs forms.Errors) {
	authors, err := bc.store.ListAuthors("")
	if err != nil {
		bc.internalError(c, err, "list authors")
		return
	}
	libraries, err := bc.store.ListLibraries("")
	if err != nil {
		bc.internalError(c, err, "list libraries")
		return
	}
	bc.render(c, status, "book_form", gin.H{
		"Title":     title,
		"Action":    action,
		"Form":      form,
		"Errors":    errs,
		"Authors":   authors,
		"Libraries": libraries,
	})
}

// ConfirmDelete asks before deleting on GET.
func (bc *BooksController) ConfirmDelete(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	bc.render(c, http.StatusOK, "book_confirm_delete", gin.H{
		"Title":  "Delete book",
		"Book":   book,
		"Action": c.Request.URL.Path,
	})
}

func (bc *BooksController) Delete(c *gin.Context) {
	book, ok := bc.loadBook(c)
	if !ok {
		return
	}
	if err := bc.store.DeleteBook(book.ID); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			bc.notFound(c, "No book matches the given query.")
			return
		}
		bc.internalError(c, err, "delete book")
		return
	}
	bc.record(c, "delete", "book", book.ID, book.Title)

	bc.redirect(c, http.StatusOK, "/books/", "Book \""+book.Title+"\" was deleted.")
}
