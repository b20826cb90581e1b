package catalog

import (
	"github.com/mrlokans/catalog/internal/entities"
)

func (r *Repository) CreateShelfBook(book *entities.ShelfBook) error {
	return r.db.Create(book).Error
}

func (r *Repository) GetShelfBook(id uint) (*entities.ShelfBook, error) {
	var book entities.ShelfBook
	if err := r.db.First(&book, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

// ListShelfBooks returns bookshelf records ordered by title, optionally
// filtered by title or author text.
func (r *Repository) ListShelfBooks(search string) ([]entities.ShelfBook, error) {
	query := r.db.Order("title")
	if search != "" {
		like := likePattern(search)
		query = query.Where("LOWER(title) LIKE ? OR LOWER(author) LIKE ?", like, like)
	}
	var books []entities.ShelfBook
	err := query.Find(&books).Error
	return books, err
}

func (r *Repository) UpdateShelfBook(book *entities.ShelfBook) error {
	result := r.db.Model(book).Select("title", "author", "publication_year").Updates(book)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteShelfBook(id uint) error {
	result := r.db.Delete(&entities.ShelfBook{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
