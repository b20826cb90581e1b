// Package seed fills a database with the sample catalog used for demos
// and manual testing. Every step is idempotent.
package seed

import (
	"errors"
	"fmt"
	"log"

	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/entities"
)

// DefaultPassword is given to the sample librarian accounts.
const DefaultPassword = "library-demo-2024"

type sampleBook struct {
	Title     string
	Author    string
	Year      int
	Libraries []string
}

type sampleLibrarian struct {
	Email     string
	Username  string
	FirstName string
	LastName  string
	Library   string
}

var (
	sampleAuthors = []string{"J.K. Rowling", "George Orwell", "Harper Lee"}

	sampleBooks = []sampleBook{
		{"Harry Potter and the Philosopher's Stone", "J.K. Rowling", 1997, []string{"Central Library"}},
		{"1984", "George Orwell", 1949, []string{"Central Library", "City Library"}},
		{"Animal Farm", "George Orwell", 1945, []string{"Central Library"}},
		{"To Kill a Mockingbird", "Harper Lee", 1960, []string{"City Library"}},
	}

	sampleLibraries = []string{"Central Library", "City Library"}

	sampleLibrarians = []sampleLibrarian{
		{"sarah.johnson@library.com", "sarah", "Sarah", "Johnson", "Central Library"},
		{"michael.chen@library.com", "michael", "Michael", "Chen", "City Library"},
	}
)

// Result counts the sample records present after a run.
type Result struct {
	Authors    int
	Books      int
	Libraries  int
	Librarians int
}

func (r Result) String() string {
	return fmt.Sprintf("%d authors, %d books, %d libraries, %d librarians", r.Authors, r.Books, r.Libraries, r.Librarians)
}

type Seeder struct {
	catalog  *catalog.Repository
	auth     *auth.Service
	password string
}

// New returns a seeder; an empty password means DefaultPassword.
func New(catalogRepo *catalog.Repository, authService *auth.Service, password string) *Seeder {
	if password == "" {
		password = DefaultPassword
	}
	return &Seeder{catalog: catalogRepo, auth: authService, password: password}
}

// Run creates the sample authors, books, libraries and librarians.
func (s *Seeder) Run() (*Result, error) {
	result := &Result{}

	authors := make(map[string]*entities.Author, len(sampleAuthors))
	for _, name := range sampleAuthors {
		author, err := s.catalog.EnsureAuthor(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create author %q: %w", name, err)
		}
		authors[name] = author
		result.Authors++
	}

	libraries := make(map[string]*entities.Library, len(sampleLibraries))
	for _, name := range sampleLibraries {
		library, err := s.catalog.EnsureLibrary(name)
		if err != nil {
			return nil, fmt.Errorf("failed to create library %q: %w", name, err)
		}
		libraries[name] = library
		result.Libraries++
	}

	for _, sb := range sampleBooks {
		book, err := s.catalog.EnsureBook(sb.Title, authors[sb.Author].ID)
		if err != nil {
			return nil, fmt.Errorf("failed to create book %q: %w", sb.Title, err)
		}
		if book.PublicationYear == nil {
			year := sb.Year
			book.PublicationYear = &year
			if err := s.catalog.UpdateBook(book); err != nil {
				return nil, fmt.Errorf("failed to set year of %q: %w", sb.Title, err)
			}
		}
		for _, name := range sb.Libraries {
			if err := s.catalog.AddBooks(libraries[name].ID, book.ID); err != nil {
				return nil, fmt.Errorf("failed to add %q to %s: %w", sb.Title, name, err)
			}
		}
		result.Books++
	}

	for _, sl := range sampleLibrarians {
		if err := s.ensureLibrarian(sl, libraries[sl.Library]); err != nil {
			return nil, err
		}
		result.Librarians++
	}

	log.Printf("Sample data ready: %s", result)
	return result, nil
}

func (s *Seeder) ensureLibrarian(sl sampleLibrarian, library *entities.Library) error {
	user, err := s.auth.Users().GetByEmail(sl.Email)
	if errors.Is(err, users.ErrNotFound) {
		user, err = s.auth.Register(auth.RegisterInput{
			Email:     sl.Email,
			Username:  sl.Username,
			Password:  s.password,
			FirstName: sl.FirstName,
			LastName:  sl.LastName,
			Role:      entities.RoleLibrarian,
		})
	}
	if err != nil {
		return fmt.Errorf("failed to create librarian user %s: %w", sl.Email, err)
	}

	if err := s.auth.Permissions().AddUserToGroup(user.ID, entities.GroupLibrarians); err != nil {
		return fmt.Errorf("failed to add %s to %s: %w", sl.Email, entities.GroupLibrarians, err)
	}

	_, err = s.catalog.AssignLibrarian(user.ID, library.ID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, catalog.ErrLibraryHasLibrarian), errors.Is(err, catalog.ErrUserIsLibrarian):
		return nil
	default:
		return fmt.Errorf("failed to assign %s to %s: %w", sl.Email, library.Name, err)
	}
}
