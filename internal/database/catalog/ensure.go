package catalog

import (
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalog/internal/entities"
)

// EnsureAuthor returns the author with this exact name, creating it if needed.
func (r *Repository) EnsureAuthor(name string) (*entities.Author, error) {
	author := entities.Author{Name: name}
	err := r.db.Omit(clause.Associations).Where(entities.Author{Name: name}).FirstOrCreate(&author).Error
	return &author, err
}

// EnsureBook returns the book with this title and author, creating it if needed.
func (r *Repository) EnsureBook(title string, authorID uint) (*entities.Book, error) {
	book := entities.Book{Title: title, AuthorID: authorID}
	err := r.db.Omit(clause.Associations).Where(entities.Book{Title: title, AuthorID: authorID}).FirstOrCreate(&book).Error
	return &book, err
}

// EnsureLibrary returns the library with this exact name, creating it if needed.
func (r *Repository) EnsureLibrary(name string) (*entities.Library, error) {
	library := entities.Library{Name: name}
	err := r.db.Omit(clause.Associations).Where(entities.Library{Name: name}).FirstOrCreate(&library).Error
	return &library, err
}
