package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
)

type queryOptions struct {
	Author  string
	Library string
	Title   string
}

// QueryRunner is the subset of the catalog repository the sample
// queries read from.
type QueryRunner interface {
	BooksByAuthor(name string) ([]catalog.AuthorBooks, error)
	BooksInLibrary(libraryName string) ([]entities.Book, error)
	LibrarianForLibrary(libraryName string) (*entities.Librarian, error)
	LibrariesWithBook(title string) ([]entities.Library, error)
	BookCountByAuthor() ([]catalog.AuthorBookCount, error)
	AllLibrarians() ([]entities.Librarian, error)
}

func newQueryCommand(cfg *config.Config) *cobra.Command {
	opts := queryOptions{}

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Run the sample relationship queries against the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStack(cfg)
			if err != nil {
				return err
			}
			defer s.Close()
			return runQueries(cmd.OutOrStdout(), s.catalog, opts)
		},
	}
	cmd.Flags().StringVar(&opts.Author, "author", "George Orwell", "Author whose books are listed")
	cmd.Flags().StringVar(&opts.Library, "library", "Central Library", "Library whose books and librarian are shown")
	cmd.Flags().StringVar(&opts.Title, "title", "1984", "Book title to look up across libraries")
	return cmd
}

func runQueries(w io.Writer, repo QueryRunner, opts queryOptions) error {
	rule := strings.Repeat("-", 40)

	fmt.Fprintf(w, "=== Books by Author: %s ===\n", opts.Author)
	groups, err := repo.BooksByAuthor(opts.Author)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fmt.Fprintf(w, "Author '%s' not found\n", opts.Author)
	case err != nil:
		return err
	case len(groups) == 1:
		if len(groups[0].Books) == 0 {
			fmt.Fprintf(w, "No books found for author: %s\n", groups[0].Author.Name)
		}
		for _, book := range groups[0].Books {
			fmt.Fprintf(w, "Title: %s\nAuthor: %s\n%s\n", book.Title, groups[0].Author.Name, rule)
		}
	default:
		fmt.Fprintf(w, "Multiple authors match '%s'\n", opts.Author)
		for _, group := range groups {
			fmt.Fprintf(w, "Author: %s\n", group.Author.Name)
			for _, book := range group.Books {
				fmt.Fprintf(w, "  - %s\n", book.Title)
			}
		}
	}

	fmt.Fprintf(w, "\n=== All Books in Library: %s ===\n", opts.Library)
	books, err := repo.BooksInLibrary(opts.Library)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fmt.Fprintf(w, "Library '%s' not found\n", opts.Library)
	case err != nil:
		return err
	case len(books) == 0:
		fmt.Fprintf(w, "No books found in library: %s\n", opts.Library)
	default:
		for _, book := range books {
			author := "unknown"
			if book.Author != nil {
				author = book.Author.Name
			}
			fmt.Fprintf(w, "Title: %s\nAuthor: %s\n%s\n", book.Title, author, rule)
		}
	}

	fmt.Fprintf(w, "\n=== Librarian for Library: %s ===\n", opts.Library)
	librarian, err := repo.LibrarianForLibrary(opts.Library)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		fmt.Fprintf(w, "No librarian found for library: %s\n", opts.Library)
	case err != nil:
		return err
	default:
		fmt.Fprintf(w, "Library: %s\nLibrarian: %s\n", opts.Library, librarianName(*librarian))
	}

	fmt.Fprintf(w, "\n=== Libraries containing '%s' ===\n", opts.Title)
	libraries, err := repo.LibrariesWithBook(opts.Title)
	if err != nil {
		return err
	}
	if len(libraries) == 0 {
		fmt.Fprintf(w, "Book '%s' not found\n", opts.Title)
	}
	for _, library := range libraries {
		fmt.Fprintf(w, "- %s\n", library.Name)
	}

	fmt.Fprintln(w, "\n=== Book Count by Author ===")
	counts, err := repo.BookCountByAuthor()
	if err != nil {
		return err
	}
	for _, row := range counts {
		fmt.Fprintf(w, "%s: %d book(s)\n", row.Name, row.Books)
	}

	fmt.Fprintln(w, "\n=== All Librarians and Their Libraries ===")
	librarians, err := repo.AllLibrarians()
	if err != nil {
		return err
	}
	for _, l := range librarians {
		library := "unassigned"
		if l.Library != nil {
			library = l.Library.Name
		}
		fmt.Fprintf(w, "%s -> %s\n", librarianName(l), library)
	}
	return nil
}

func librarianName(l entities.Librarian) string {
	if l.User == nil {
		return fmt.Sprintf("user #%d", l.UserID)
	}
	return l.User.FullName()
}
