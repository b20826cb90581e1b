// Package catalog provides database operations for authors, books,
// libraries, librarians and the flat bookshelf records.
package catalog

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalog/internal/entities"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrLibraryHasLibrarian = errors.New("library already has a librarian")
	ErrUserIsLibrarian     = errors.New("user is already a librarian")
)

// Repository handles catalog database operations.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func likePattern(s string) string {
	return "%" + strings.ToLower(strings.TrimSpace(s)) + "%"
}

// paginate applies LIMIT/OFFSET; a non-positive limit returns every row.
func paginate(query *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		return query
	}
	return query.Limit(limit).Offset(offset)
}

// --- Authors ---

func (r *Repository) CreateAuthor(author *entities.Author) error {
	return r.db.Omit(clause.Associations).Create(author).Error
}

func (r *Repository) GetAuthor(id uint) (*entities.Author, error) {
	var author entities.Author
	if err := r.db.Preload("Books", func(db *gorm.DB) *gorm.DB {
		return db.Order("title")
	}).First(&author, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &author, nil
}

// ListAuthors returns authors ordered by name, optionally filtered by a
// case-insensitive name match.
func (r *Repository) ListAuthors(search string) ([]entities.Author, error) {
	query := r.db.Order("name")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}
	var authors []entities.Author
	err := query.Find(&authors).Error
	return authors, err
}

// PageAuthors is ListAuthors restricted to one page, with the total
// number of matches.
func (r *Repository) PageAuthors(search string, limit, offset int) ([]entities.Author, int64, error) {
	query := r.db.Model(&entities.Author{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var authors []entities.Author
	err := paginate(query, limit, offset).Order("name").Find(&authors).Error
	return authors, total, err
}

func (r *Repository) CountAuthors() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Author{}).Count(&count).Error
	return count, err
}

func (r *Repository) UpdateAuthor(author *entities.Author) error {
	result := r.db.Model(author).Omit(clause.Associations).Select("name").Updates(author)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAuthor removes the author and all of their books.
func (r *Repository) DeleteAuthor(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var bookIDs []uint
		if err := tx.Model(&entities.Book{}).Where("author_id = ?", id).Pluck("id", &bookIDs).Error; err != nil {
			return err
		}
		if len(bookIDs) > 0 {
			if err := tx.Exec("DELETE FROM library_books WHERE book_id IN ?", bookIDs).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", bookIDs).Delete(&entities.Book{}).Error; err != nil {
				return err
			}
		}
		result := tx.Delete(&entities.Author{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Books ---

func (r *Repository) CreateBook(book *entities.Book) error {
	return r.db.Omit(clause.Associations).Create(book).Error
}

// GetBook loads a book with its author and the libraries holding it.
func (r *Repository) GetBook(id uint) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Author").Preload("Libraries", func(db *gorm.DB) *gorm.DB {
		return db.Order("name")
	}).First(&book, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

// BookFilter narrows ListBooks. Zero values mean "no filter".
type BookFilter struct {
	Search   string // title or author name, case-insensitive
	AuthorID uint
	Limit    int
	Offset   int
}

// ListBooks returns books ordered by title with the author preloaded,
// together with the total number of matches.
func (r *Repository) ListBooks(filter BookFilter) ([]entities.Book, int64, error) {
	query := r.db.Model(&entities.Book{})
	if filter.Search != "" {
		like := likePattern(filter.Search)
		query = query.Where(
			"LOWER(books.title) LIKE ? OR books.author_id IN (?)",
			like, r.db.Model(&entities.Author{}).Select("id").Where("LOWER(name) LIKE ?", like),
		)
	}
	if filter.AuthorID != 0 {
		query = query.Where("books.author_id = ?", filter.AuthorID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var books []entities.Book
	err := query.Preload("Author").Order("books.title").Find(&books).Error
	return books, total, err
}

// RecentBooks returns the most recently added books.
func (r *Repository) RecentBooks(limit int) ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Preload("Author").Order("id DESC").Limit(limit).Find(&books).Error
	return books, err
}

func (r *Repository) CountBooks() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Book{}).Count(&count).Error
	return count, err
}

func (r *Repository) UpdateBook(book *entities.Book) error {
	result := r.db.Model(book).Omit(clause.Associations).
		Select("title", "author_id", "publication_year").Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveBook creates the book when it has no ID and updates it otherwise,
// then replaces its library set. Both happen in one transaction.
func (r *Repository) SaveBook(book *entities.Book, libraryIDs []uint) error {
	creating := book.ID == 0
	err := r.db.Transaction(func(tx *gorm.DB) error {
		repo := NewRepository(tx)
		if creating {
			if err := repo.CreateBook(book); err != nil {
				return err
			}
		} else if err := repo.UpdateBook(book); err != nil {
			return err
		}
		return repo.SetBookLibraries(book.ID, libraryIDs)
	})
	if err != nil && creating {
		book.ID = 0
	}
	return err
}

// DeleteBook removes the book and its library memberships.
func (r *Repository) DeleteBook(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM library_books WHERE book_id = ?", id).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Book{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Libraries ---

func (r *Repository) CreateLibrary(library *entities.Library) error {
	return r.db.Omit(clause.Associations).Create(library).Error
}

func preloadLibrary(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Books", func(db *gorm.DB) *gorm.DB { return db.Order("books.title") }).
		Preload("Books.Author").
		Preload("Librarian").
		Preload("Librarian.User")
}

// GetLibrary loads a library with its books (and their authors) and librarian.
func (r *Repository) GetLibrary(id uint) (*entities.Library, error) {
	var library entities.Library
	if err := preloadLibrary(r.db).First(&library, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &library, nil
}

func (r *Repository) GetLibraryByName(name string) (*entities.Library, error) {
	var library entities.Library
	if err := preloadLibrary(r.db).Where("name = ?", name).First(&library).Error; err != nil {
		return nil, notFound(err)
	}
	return &library, nil
}

// ListLibraries returns libraries ordered by name with books and librarian loaded.
func (r *Repository) ListLibraries(search string) ([]entities.Library, error) {
	query := preloadLibrary(r.db).Order("name")
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}
	var libraries []entities.Library
	err := query.Find(&libraries).Error
	return libraries, err
}

// PageLibraries is ListLibraries restricted to one page, with the total
// number of matches.
func (r *Repository) PageLibraries(search string, limit, offset int) ([]entities.Library, int64, error) {
	query := r.db.Model(&entities.Library{})
	if search != "" {
		query = query.Where("LOWER(name) LIKE ?", likePattern(search))
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var libraries []entities.Library
	err := preloadLibrary(paginate(query, limit, offset)).Order("name").Find(&libraries).Error
	return libraries, total, err
}

func (r *Repository) CountLibraries() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Library{}).Count(&count).Error
	return count, err
}

func (r *Repository) UpdateLibrary(library *entities.Library) error {
	result := r.db.Model(library).Omit(clause.Associations).Select("name").Updates(library)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddBooks links the books to the library. Already linked books are ignored.
func (r *Repository) AddBooks(libraryID uint, bookIDs ...uint) error {
	if len(bookIDs) == 0 {
		return nil
	}
	library := entities.Library{ID: libraryID}
	if err := r.db.First(&library, libraryID).Error; err != nil {
		return notFound(err)
	}
	var books []entities.Book
	if err := r.db.Where("id IN ?", bookIDs).Find(&books).Error; err != nil {
		return err
	}
	if len(books) != len(uniqueIDs(bookIDs)) {
		return ErrNotFound
	}
	return r.db.Model(&library).Omit("Books.*").Association("Books").Append(books)
}

func (r *Repository) RemoveBooks(libraryID uint, bookIDs ...uint) error {
	if len(bookIDs) == 0 {
		return nil
	}
	return r.db.Exec("DELETE FROM library_books WHERE library_id = ? AND book_id IN ?", libraryID, bookIDs).Error
}

// SetBooks replaces the library's book set.
func (r *Repository) SetBooks(libraryID uint, bookIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM library_books WHERE library_id = ?", libraryID).Error; err != nil {
			return err
		}
		return NewRepository(tx).AddBooks(libraryID, bookIDs...)
	})
}

// SetBookLibraries replaces the set of libraries holding the book.
func (r *Repository) SetBookLibraries(bookID uint, libraryIDs []uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entities.Book{}, bookID).Error; err != nil {
			return notFound(err)
		}
		ids := uniqueIDs(libraryIDs)
		if len(ids) > 0 {
			var count int64
			if err := tx.Model(&entities.Library{}).Where("id IN ?", libraryIDs).Count(&count).Error; err != nil {
				return err
			}
			if int(count) != len(ids) {
				return ErrNotFound
			}
		}
		if err := tx.Exec("DELETE FROM library_books WHERE book_id = ?", bookID).Error; err != nil {
			return err
		}
		for libraryID := range ids {
			if err := tx.Exec("INSERT INTO library_books (library_id, book_id) VALUES (?, ?)", libraryID, bookID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// LibraryBookCount counts the rows of the library's book set in the database.
func (r *Repository) LibraryBookCount(libraryID uint) (int64, error) {
	library := entities.Library{ID: libraryID}
	assoc := r.db.Model(&library).Association("Books")
	count := assoc.Count()
	return count, assoc.Error
}

// DeleteLibrary removes the library, its book links and its librarian.
func (r *Repository) DeleteLibrary(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM library_books WHERE library_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Where("library_id = ?", id).Delete(&entities.Librarian{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.Library{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// --- Librarians ---

// AssignLibrarian makes the user the librarian of the library.
func (r *Repository) AssignLibrarian(userID, libraryID uint) (*entities.Librarian, error) {
	var librarian *entities.Librarian
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&entities.Librarian{}).Where("library_id = ?", libraryID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrLibraryHasLibrarian
		}
		if err := tx.Model(&entities.Librarian{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrUserIsLibrarian
		}
		if err := tx.First(&entities.Library{}, libraryID).Error; err != nil {
			return notFound(err)
		}
		if err := tx.First(&entities.User{}, userID).Error; err != nil {
			return notFound(err)
		}
		librarian = &entities.Librarian{UserID: userID, LibraryID: libraryID}
		return tx.Omit(clause.Associations).Create(librarian).Error
	})
	if err != nil {
		return nil, err
	}
	return librarian, nil
}

func (r *Repository) UnassignLibrarian(libraryID uint) error {
	result := r.db.Where("library_id = ?", libraryID).Delete(&entities.Librarian{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetLibrarianByUser returns the librarian record of a user, if any.
func (r *Repository) GetLibrarianByUser(userID uint) (*entities.Librarian, error) {
	var librarian entities.Librarian
	err := r.db.Preload("User").Preload("Library").Where("user_id = ?", userID).First(&librarian).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &librarian, nil
}

func (r *Repository) librariansOf(libraryID uint) *gorm.DB {
	query := r.db.Model(&entities.Librarian{})
	if libraryID != 0 {
		query = query.Where("librarians.library_id = ?", libraryID)
	}
	return query
}

// findLibrarians loads librarians ordered by their user's first and last name.
func findLibrarians(query *gorm.DB) ([]entities.Librarian, error) {
	var librarians []entities.Librarian
	err := query.
		Select("librarians.*").
		Joins("JOIN users ON users.id = librarians.user_id").
		Preload("User").
		Preload("Library").
		Order("users.first_name, users.last_name, librarians.id").
		Find(&librarians).Error
	return librarians, err
}

// ListLibrarians returns all librarians, optionally restricted to a library.
func (r *Repository) ListLibrarians(libraryID uint) ([]entities.Librarian, error) {
	return findLibrarians(r.librariansOf(libraryID))
}

// PageLibrarians is ListLibrarians restricted to one page, with the total
// number of matches.
func (r *Repository) PageLibrarians(libraryID uint, limit, offset int) ([]entities.Librarian, int64, error) {
	query := r.librariansOf(libraryID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	librarians, err := findLibrarians(paginate(query, limit, offset))
	return librarians, total, err
}

func (r *Repository) CountLibrarians() (int64, error) {
	var count int64
	err := r.db.Model(&entities.Librarian{}).Count(&count).Error
	return count, err
}

func (r *Repository) GetLibrarian(id uint) (*entities.Librarian, error) {
	var librarian entities.Librarian
	if err := r.db.Preload("User").Preload("Library").First(&librarian, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &librarian, nil
}

func (r *Repository) DeleteLibrarian(id uint) error {
	result := r.db.Delete(&entities.Librarian{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen
}
