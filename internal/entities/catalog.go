package entities

import (
	"encoding/json"
	"time"
)

type Author struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"index;size:255;not null" json:"name"`
	Books     []Book    `gorm:"constraint:OnDelete:CASCADE" json:"books,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Author) TableName() string {
	return "authors"
}

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:255;not null" json:"title"`
	AuthorID        uint      `gorm:"index;not null" json:"author_id"`
	Author          *Author   `json:"author,omitempty"`
	PublicationYear *int      `json:"publication_year,omitempty"`
	Libraries       []Library `gorm:"many2many:library_books" json:"libraries,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// AuthorName is safe to call when the author was not preloaded.
func (b Book) AuthorName() string {
	if b.Author == nil {
		return ""
	}
	return b.Author.Name
}

type Library struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Name      string     `gorm:"index;size:255;not null" json:"name"`
	Books     []Book     `gorm:"many2many:library_books" json:"books,omitempty"`
	Librarian *Librarian `gorm:"constraint:OnDelete:CASCADE" json:"librarian,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Library) TableName() string {
	return "libraries"
}

// BookCount is the size of the loaded book set.
func (l Library) BookCount() int {
	return len(l.Books)
}

// LibrarianName returns the display name of the assigned librarian, if any.
func (l Library) LibrarianName() string {
	if l.Librarian == nil {
		return ""
	}
	return l.Librarian.DisplayName()
}

// Librarian links a user to the one library they run. The user's account
// details never leave the server: JSON carries only the display name.
type Librarian struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	LibraryID uint      `gorm:"uniqueIndex;not null" json:"library_id"`
	Library   *Library  `json:"library,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Librarian) TableName() string {
	return "librarians"
}

func (l Librarian) DisplayName() string {
	if l.User == nil {
		return ""
	}
	return l.User.FullName()
}

func (l Librarian) MarshalJSON() ([]byte, error) {
	type librarian Librarian
	return json.Marshal(struct {
		librarian
		Name string `json:"name,omitempty"`
	}{librarian(l), l.DisplayName()})
}

// ShelfBook is the flat bookshelf record: the author is free text.
type ShelfBook struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	Author          string    `gorm:"size:100;not null" json:"author"`
	PublicationYear int       `json:"publication_year"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (ShelfBook) TableName() string {
	return "shelf_books"
}
