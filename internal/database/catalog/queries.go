package catalog

import (
	"github.com/mrlokans/catalog/internal/entities"
)

// AuthorBooks groups an author with their books.
type AuthorBooks struct {
	Author entities.Author
	Books  []entities.Book
}

// BooksByAuthor returns the books of the author with exactly this name.
// When no exact match exists, every author whose name contains the
// input is returned with their books.
func (r *Repository) BooksByAuthor(name string) ([]AuthorBooks, error) {
	var authors []entities.Author
	if err := r.db.Where("name = ?", name).Order("name").Find(&authors).Error; err != nil {
		return nil, err
	}
	if len(authors) == 0 {
		var err error
		authors, err = r.ListAuthors(name)
		if err != nil {
			return nil, err
		}
	}
	if len(authors) == 0 {
		return nil, ErrNotFound
	}

	result := make([]AuthorBooks, 0, len(authors))
	for _, author := range authors {
		var books []entities.Book
		if err := r.db.Where("author_id = ?", author.ID).Order("title").Find(&books).Error; err != nil {
			return nil, err
		}
		result = append(result, AuthorBooks{Author: author, Books: books})
	}
	return result, nil
}

// BooksInLibrary returns the books of the named library, ordered by title.
func (r *Repository) BooksInLibrary(libraryName string) ([]entities.Book, error) {
	library, err := r.GetLibraryByName(libraryName)
	if err != nil {
		return nil, err
	}
	return library.Books, nil
}

// LibrarianForLibrary returns the librarian of the named library.
func (r *Repository) LibrarianForLibrary(libraryName string) (*entities.Librarian, error) {
	library, err := r.GetLibraryByName(libraryName)
	if err != nil {
		return nil, err
	}
	if library.Librarian == nil {
		return nil, ErrNotFound
	}
	librarian := *library.Librarian
	librarian.Library = &entities.Library{ID: library.ID, Name: library.Name}
	return &librarian, nil
}

// LibrariesWithBook returns libraries holding a book whose title contains
// the given text, ordered by name.
func (r *Repository) LibrariesWithBook(title string) ([]entities.Library, error) {
	var libraries []entities.Library
	err := r.db.
		Where("id IN (?)", r.db.Table("library_books").
			Select("library_books.library_id").
			Joins("JOIN books ON books.id = library_books.book_id").
			Where("LOWER(books.title) LIKE ?", likePattern(title))).
		Order("name").
		Find(&libraries).Error
	return libraries, err
}

// AuthorBookCount is one row of BookCountByAuthor.
type AuthorBookCount struct {
	AuthorID uint
	Name     string
	Books    int64
}

// BookCountByAuthor returns every author with their number of books,
// authors without books included.
func (r *Repository) BookCountByAuthor() ([]AuthorBookCount, error) {
	var rows []AuthorBookCount
	err := r.db.Model(&entities.Author{}).
		Select("authors.id AS author_id, authors.name AS name, COUNT(books.id) AS books").
		Joins("LEFT JOIN books ON books.author_id = authors.id").
		Group("authors.id, authors.name").
		Order("authors.name").
		Scan(&rows).Error
	return rows, err
}

// AllLibrarians is ListLibrarians without a library restriction.
func (r *Repository) AllLibrarians() ([]entities.Librarian, error) {
	return r.ListLibrarians(0)
}
