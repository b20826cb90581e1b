package catalog

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/catalog/internal/entities"
)

func setupTestDB(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	db, err := gorm.Open(sqlite.Open(dbPath+"?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.User{}, &entities.UserProfile{}, &entities.Author{},
		&entities.Book{}, &entities.Library{}, &entities.Librarian{}, &entities.ShelfBook{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return NewRepository(db), db
}

type fixture struct {
	rowling, orwell, lee  *entities.Author
	stone, chamber, n1984 *entities.Book
	mockingbird           *entities.Book
	central, city         *entities.Library
}

func seed(t *testing.T, repo *Repository) fixture {
	t.Helper()
	var f fixture
	f.rowling = &entities.Author{Name: "J.K. Rowling"}
	f.orwell = &entities.Author{Name: "George Orwell"}
	f.lee = &entities.Author{Name: "Harper Lee"}
	for _, a := range []*entities.Author{f.rowling, f.orwell, f.lee} {
		require.NoError(t, repo.CreateAuthor(a))
	}

	f.stone = &entities.Book{Title: "Harry Potter and the Philosopher's Stone", AuthorID: f.rowling.ID}
	f.chamber = &entities.Book{Title: "Harry Potter and the Chamber of Secrets", AuthorID: f.rowling.ID}
	f.n1984 = &entities.Book{Title: "1984", AuthorID: f.orwell.ID}
	f.mockingbird = &entities.Book{Title: "To Kill a Mockingbird", AuthorID: f.lee.ID}
	for _, b := range []*entities.Book{f.stone, f.chamber, f.n1984, f.mockingbird} {
		require.NoError(t, repo.CreateBook(b))
	}

	f.central = &entities.Library{Name: "Central Library"}
	f.city = &entities.Library{Name: "City Library"}
	require.NoError(t, repo.CreateLibrary(f.central))
	require.NoError(t, repo.CreateLibrary(f.city))
	require.NoError(t, repo.AddBooks(f.central.ID, f.stone.ID, f.chamber.ID, f.n1984.ID))
	require.NoError(t, repo.AddBooks(f.city.ID, f.chamber.ID, f.mockingbird.ID))
	return f
}

func createUser(t *testing.T, db *gorm.DB, email, first, last string) *entities.User {
	t.Helper()
	user := &entities.User{Email: email, Username: email, FirstName: first, LastName: last, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestListBooks_OrderedByTitleWithAuthor(t *testing.T) {
	repo, _ := setupTestDB(t)
	seed(t, repo)

	books, total, err := repo.ListBooks(BookFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	require.Len(t, books, 4)
	assert.Equal(t, "1984", books[0].Title)
	assert.Equal(t, "George Orwell", books[0].AuthorName())
	assert.Equal(t, "To Kill a Mockingbird", books[3].Title)
}

func TestListBooks_SearchMatchesTitleOrAuthor(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	books, _, err := repo.ListBooks(BookFilter{Search: "rowling"})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	books, _, err = repo.ListBooks(BookFilter{Search: "MOCKING"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, f.mockingbird.ID, books[0].ID)

	books, total, err := repo.ListBooks(BookFilter{AuthorID: f.orwell.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "1984", books[0].Title)

	books, total, err = repo.ListBooks(BookFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, books, 2)
}

func TestGetBook_NotFound(t *testing.T) {
	repo, _ := setupTestDB(t)

	_, err := repo.GetBook(404)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateBook(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	year := 1949
	f.n1984.Title = "Nineteen Eighty-Four"
	f.n1984.PublicationYear = &year
	require.NoError(t, repo.UpdateBook(f.n1984))

	book, err := repo.GetBook(f.n1984.ID)
	require.NoError(t, err)
	assert.Equal(t, "Nineteen Eighty-Four", book.Title)
	require.NotNil(t, book.PublicationYear)
	assert.Equal(t, 1949, *book.PublicationYear)
	require.Len(t, book.Libraries, 1)
	assert.Equal(t, "Central Library", book.Libraries[0].Name)

	assert.ErrorIs(t, repo.UpdateBook(&entities.Book{ID: 999, Title: "x", AuthorID: f.orwell.ID}), ErrNotFound)
}

func TestLibraryBookCount_EqualsSetSize(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	for _, lib := range []*entities.Library{f.central, f.city} {
		loaded, err := repo.GetLibrary(lib.ID)
		require.NoError(t, err)
		count, err := repo.LibraryBookCount(lib.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(loaded.BookCount()), count, lib.Name)
	}

	central, err := repo.GetLibrary(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, central.BookCount())

	// Adding an already linked book does not change the set.
	require.NoError(t, repo.AddBooks(f.central.ID, f.stone.ID))
	count, err := repo.LibraryBookCount(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	require.NoError(t, repo.RemoveBooks(f.central.ID, f.stone.ID))
	central, err = repo.GetLibrary(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, central.BookCount())

	require.NoError(t, repo.SetBooks(f.central.ID, []uint{f.mockingbird.ID}))
	central, err = repo.GetLibrary(f.central.ID)
	require.NoError(t, err)
	require.Len(t, central.Books, 1)
	assert.Equal(t, "Harper Lee", central.Books[0].AuthorName())
}

func TestAddBooks_UnknownBook(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	assert.ErrorIs(t, repo.AddBooks(f.city.ID, 999), ErrNotFound)
	assert.ErrorIs(t, repo.AddBooks(999, f.stone.ID), ErrNotFound)
}

func TestDeleteBook_RemovesLibraryLinks(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	require.NoError(t, repo.DeleteBook(f.chamber.ID))

	for _, lib := range []*entities.Library{f.central, f.city} {
		loaded, err := repo.GetLibrary(lib.ID)
		require.NoError(t, err)
		for _, b := range loaded.Books {
			assert.NotEqual(t, f.chamber.ID, b.ID)
		}
	}
	assert.ErrorIs(t, repo.DeleteBook(f.chamber.ID), ErrNotFound)
}

func TestDeleteAuthor_CascadesToBooks(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	require.NoError(t, repo.DeleteAuthor(f.rowling.ID))

	count, err := repo.CountBooks()
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	central, err := repo.GetLibrary(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, central.BookCount())
}

func TestAssignLibrarian_OnePerLibraryAndUser(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo)
	sarah := createUser(t, db, "sarah@library.com", "Sarah", "Johnson")
	michael := createUser(t, db, "michael@library.com", "Michael", "Chen")

	_, err := repo.AssignLibrarian(sarah.ID, f.central.ID)
	require.NoError(t, err)

	_, err = repo.AssignLibrarian(michael.ID, f.central.ID)
	assert.ErrorIs(t, err, ErrLibraryHasLibrarian)

	_, err = repo.AssignLibrarian(sarah.ID, f.city.ID)
	assert.ErrorIs(t, err, ErrUserIsLibrarian)

	_, err = repo.AssignLibrarian(michael.ID, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	lib, err := repo.GetLibrary(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, "Sarah Johnson", lib.LibrarianName())

	require.NoError(t, repo.UnassignLibrarian(f.central.ID))
	_, err = repo.AssignLibrarian(michael.ID, f.central.ID)
	require.NoError(t, err)
}

func TestDeleteLibrary_RemovesLibrarian(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo)
	sarah := createUser(t, db, "sarah@library.com", "Sarah", "Johnson")
	_, err := repo.AssignLibrarian(sarah.ID, f.city.ID)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteLibrary(f.city.ID))

	_, err = repo.GetLibrarianByUser(sarah.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetBook(f.mockingbird.ID)
	assert.NoError(t, err, "books survive library deletion")
}

func TestShelfBooks(t *testing.T) {
	repo, _ := setupTestDB(t)

	book := &entities.ShelfBook{Title: "Dune", Author: "Frank Herbert", PublicationYear: 1965}
	require.NoError(t, repo.CreateShelfBook(book))
	require.NoError(t, repo.CreateShelfBook(&entities.ShelfBook{Title: "Brave New World", Author: "Aldous Huxley", PublicationYear: 1932}))

	books, err := repo.ListShelfBooks("")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Brave New World", books[0].Title)

	books, err = repo.ListShelfBooks("herbert")
	require.NoError(t, err)
	require.Len(t, books, 1)

	book.PublicationYear = 1966
	require.NoError(t, repo.UpdateShelfBook(book))
	loaded, err := repo.GetShelfBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1966, loaded.PublicationYear)

	require.NoError(t, repo.DeleteShelfBook(book.ID))
	_, err = repo.GetShelfBook(book.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetBookLibraries(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	require.NoError(t, repo.SetBookLibraries(f.n1984.ID, []uint{f.city.ID, f.city.ID}))
	book, err := repo.GetBook(f.n1984.ID)
	require.NoError(t, err)
	require.Len(t, book.Libraries, 1)
	assert.Equal(t, "City Library", book.Libraries[0].Name)

	count, err := repo.LibraryBookCount(f.central.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, repo.SetBookLibraries(f.n1984.ID, nil))
	book, err = repo.GetBook(f.n1984.ID)
	require.NoError(t, err)
	assert.Empty(t, book.Libraries)

	assert.ErrorIs(t, repo.SetBookLibraries(f.n1984.ID, []uint{999}), ErrNotFound)
	assert.ErrorIs(t, repo.SetBookLibraries(999, nil), ErrNotFound)
}

func TestListLibrarians_OrderedByUserName(t *testing.T) {
	repo, db := setupTestDB(t)
	f := seed(t, repo)
	sarah := createUser(t, db, "sarah@library.com", "Sarah", "Johnson")
	michael := createUser(t, db, "michael@library.com", "Michael", "Chen")
	annex := &entities.Library{Name: "Annex"}
	require.NoError(t, repo.CreateLibrary(annex))
	abbott := createUser(t, db, "abbott@library.com", "Michael", "Abbott")

	for _, pair := range [][2]uint{{sarah.ID, f.central.ID}, {michael.ID, f.city.ID}, {abbott.ID, annex.ID}} {
		_, err := repo.AssignLibrarian(pair[0], pair[1])
		require.NoError(t, err)
	}

	librarians, err := repo.ListLibrarians(0)
	require.NoError(t, err)
	var names []string
	for _, l := range librarians {
		names = append(names, l.DisplayName())
	}
	assert.Equal(t, []string{"Michael Abbott", "Michael Chen", "Sarah Johnson"}, names)

	librarians, total, err := repo.PageLibrarians(0, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, librarians, 1)
	assert.Equal(t, "Michael Chen", librarians[0].DisplayName())
	assert.Equal(t, "City Library", librarians[0].Library.Name)

	librarians, total, err = repo.PageLibrarians(f.central.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, librarians, 1)
	assert.Equal(t, sarah.ID, librarians[0].UserID)
}

func TestPageAuthorsAndLibraries(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	authors, total, err := repo.PageAuthors("", 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, authors, 2)
	assert.Equal(t, "Harper Lee", authors[0].Name)
	assert.Equal(t, "J.K. Rowling", authors[1].Name)

	authors, total, err = repo.PageAuthors("orwell", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, authors, 1)

	count, err := repo.CountAuthors()
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	libraries, total, err := repo.PageLibraries("", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, libraries, 1)
	assert.Equal(t, f.city.ID, libraries[0].ID)
	assert.Equal(t, 2, libraries[0].BookCount())

	libraries, _, err = repo.PageLibraries("", 1, 5)
	require.NoError(t, err)
	assert.Empty(t, libraries)
}

func TestSaveBook_RollsBackOnUnknownLibrary(t *testing.T) {
	repo, _ := setupTestDB(t)
	f := seed(t, repo)

	book := &entities.Book{Title: "Homage to Catalonia", AuthorID: f.orwell.ID}
	assert.ErrorIs(t, repo.SaveBook(book, []uint{f.city.ID, 999}), ErrNotFound)
	assert.Zero(t, book.ID)
	_, total, err := repo.ListBooks(BookFilter{Search: "catalonia"})
	require.NoError(t, err)
	assert.Zero(t, total, "book row is rolled back with its libraries")

	f.n1984.Title = "Nineteen Eighty-Four"
	assert.ErrorIs(t, repo.SaveBook(f.n1984, []uint{999}), ErrNotFound)
	loaded, err := repo.GetBook(f.n1984.ID)
	require.NoError(t, err)
	assert.Equal(t, "1984", loaded.Title)
	assert.Len(t, loaded.Libraries, 1)

	require.NoError(t, repo.SaveBook(book, []uint{f.city.ID}))
	require.NotZero(t, book.ID)
	loaded, err = repo.GetBook(book.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Libraries, 1)
	assert.Equal(t, "City Library", loaded.Libraries[0].Name)
}
