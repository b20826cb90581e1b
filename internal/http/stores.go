package http

import (
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
)

// Each controller declares the repository methods it uses.
// *catalog.Repository satisfies all of them.

// BookStore backs the book pages and the books API.
type BookStore interface {
	GetBook(id uint) (*entities.Book, error)
	ListBooks(filter catalog.BookFilter) ([]entities.Book, int64, error)
	SaveBook(book *entities.Book, libraryIDs []uint) error
	DeleteBook(id uint) error
	GetAuthor(id uint) (*entities.Author, error)
	ListAuthors(search string) ([]entities.Author, error)
	ListLibraries(search string) ([]entities.Library, error)
}

// AuthorStore backs the author pages.
type AuthorStore interface {
	ListAuthors(search string) ([]entities.Author, error)
	CreateAuthor(author *entities.Author) error
	BookCountByAuthor() ([]catalog.AuthorBookCount, error)
}

// LibraryStore backs the library pages, the role dashboards and the API.
type LibraryStore interface {
	GetLibrary(id uint) (*entities.Library, error)
	ListLibraries(search string) ([]entities.Library, error)
	GetLibrarianByUser(userID uint) (*entities.Librarian, error)
}

// ShelfStore backs the bookshelf pages.
type ShelfStore interface {
	GetShelfBook(id uint) (*entities.ShelfBook, error)
	ListShelfBooks(search string) ([]entities.ShelfBook, error)
	CreateShelfBook(book *entities.ShelfBook) error
	UpdateShelfBook(book *entities.ShelfBook) error
	DeleteShelfBook(id uint) error
}

// StatsStore backs the home page.
type StatsStore interface {
	CountBooks() (int64, error)
	CountLibraries() (int64, error)
	RecentBooks(limit int) ([]entities.Book, error)
}

// ProfileLister counts users per role for the admin dashboard.
type ProfileLister interface {
	ListProfiles(role entities.Role) ([]entities.UserProfile, error)
}

// PermissionChecker decides which actions a page offers.
type PermissionChecker interface {
	HasPermission(user *entities.User, perm string) bool
}
