package admin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mrlokans/catalog/internal/audit"
	auditdb "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/permissions"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/entities"
)

const dateLayout = "2006-01-02"

// Options holds what the default registrations read from. Audit may be
// nil, which leaves the audit log unregistered. Without Permissions the
// group and permission actions on users are left out. Roles defaults to
// Users.
type Options struct {
	Catalog     *catalog.Repository
	Users       *users.Repository
	Audit       *audit.Service
	Permissions *permissions.Repository
	Roles       RoleSetter

	// OnUserDeleted runs after a user was removed through the admin.
	OnUserDeleted func(userID uint)
}

// NewDefaultSite registers every catalog model.
func NewDefaultSite(opts Options) *Site {
	roles := opts.Roles
	if roles == nil {
		roles = opts.Users
	}
	site := NewSite()
	site.Register(authorAdmin(opts.Catalog))
	site.Register(bookAdmin(opts.Catalog))
	site.Register(libraryAdmin(opts.Catalog, opts.Users))
	site.Register(librarianAdmin(opts.Catalog))
	site.Register(profileAdmin(opts.Users, roles))
	site.Register(userAdmin(opts.Users, opts.Permissions, opts.OnUserDeleted))
	if opts.Audit != nil {
		site.Register(auditAdmin(opts.Audit))
	}
	return site
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func boolFilter(value string) *bool {
	switch value {
	case "true", "1", "yes":
		v := true
		return &v
	case "false", "0", "no":
		v := false
		return &v
	}
	return nil
}

func boolChoices() ([]Choice, error) {
	return []Choice{{Value: "true", Label: "Yes"}, {Value: "false", Label: "No"}}, nil
}

func parseUint(s string) uint {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0
	}
	return uint(id)
}

func authorAdmin(repo *catalog.Repository) *ModelAdmin {
	return &ModelAdmin{
		Name:         "Authors",
		Slug:         "authors",
		Columns:      []string{"Name"},
		SearchFields: []string{"name"},
		Ordering:     "name",
		Actions:      authorActions(repo),
		List: func(q Query) ([]Row, int64, error) {
			authors, total, err := repo.PageAuthors(q.Search, q.Limit, q.Offset)
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(authors))
			for _, a := range authors {
				rows = append(rows, Row{ID: a.ID, Cells: []string{a.Name}})
			}
			return rows, total, nil
		},
		Count: repo.CountAuthors,
		Detail: func(id uint) (*Detail, error) {
			author, err := repo.GetAuthor(id)
			if err != nil {
				return nil, err
			}
			books := Inline{Title: "Books", Columns: []string{"Title", "Publication year"}}
			for _, b := range author.Books {
				books.Rows = append(books.Rows, Row{ID: b.ID, Cells: []string{b.Title, formatYear(b.PublicationYear)}})
			}
			return &Detail{
				Title:   author.Name,
				Fields:  []Field{{Label: "Name", Value: author.Name}},
				Inlines: []Inline{books},
			}, nil
		},
		Delete: repo.DeleteAuthor,
	}
}

func formatYear(y *int) string {
	if y == nil {
		return ""
	}
	return strconv.Itoa(*y)
}

func bookAdmin(repo *catalog.Repository) *ModelAdmin {
	return &ModelAdmin{
		Name:         "Books",
		Slug:         "books",
		Columns:      []string{"Title", "Author"},
		SearchFields: []string{"title", "author__name"},
		Ordering:     "title",
		Filters: []ListFilter{{
			Field: "author",
			Label: "author",
			Choices: func() ([]Choice, error) {
				authors, err := repo.ListAuthors("")
				if err != nil {
					return nil, err
				}
				choices := make([]Choice, 0, len(authors))
				for _, a := range authors {
					choices = append(choices, Choice{Value: strconv.FormatUint(uint64(a.ID), 10), Label: a.Name})
				}
				return choices, nil
			},
		}},
		List: func(q Query) ([]Row, int64, error) {
			books, total, err := repo.ListBooks(catalog.BookFilter{
				Search:   q.Search,
				AuthorID: parseUint(q.Filter("author")),
				Limit:    q.Limit,
				Offset:   q.Offset,
			})
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(books))
			for _, b := range books {
				rows = append(rows, Row{ID: b.ID, Cells: []string{b.Title, b.AuthorName()}})
			}
			return rows, total, nil
		},
		Count: repo.CountBooks,
		Detail: func(id uint) (*Detail, error) {
			book, err := repo.GetBook(id)
			if err != nil {
				return nil, err
			}
			libraries := Inline{Title: "Libraries", Columns: []string{"Name"}}
			for _, l := range book.Libraries {
				libraries.Rows = append(libraries.Rows, Row{ID: l.ID, Cells: []string{l.Name}})
			}
			return &Detail{
				Title: book.Title,
				Fields: []Field{
					{Label: "Title", Value: book.Title},
					{Label: "Author", Value: book.AuthorName()},
					{Label: "Publication year", Value: formatYear(book.PublicationYear)},
				},
				Inlines: []Inline{libraries},
			}, nil
		},
		Delete: repo.DeleteBook,
	}
}

func librarianLabel(l entities.Library) string {
	if name := l.LibrarianName(); name != "" {
		return name
	}
	return "No librarian"
}

func libraryAdmin(repo *catalog.Repository, accounts *users.Repository) *ModelAdmin {
	return &ModelAdmin{
		Name:         "Libraries",
		Slug:         "libraries",
		Columns:      []string{"Name", "Librarian", "Book count"},
		Ordering:     "name",
		ModelActions: libraryModelActions(repo),
		Actions:      libraryActions(repo, accounts),
		List: func(q Query) ([]Row, int64, error) {
			libraries, total, err := repo.PageLibraries(q.Search, q.Limit, q.Offset)
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(libraries))
			for _, l := range libraries {
				rows = append(rows, Row{ID: l.ID, Cells: []string{l.Name, librarianLabel(l), strconv.Itoa(l.BookCount())}})
			}
			return rows, total, nil
		},
		Count: repo.CountLibraries,
		Detail: func(id uint) (*Detail, error) {
			library, err := repo.GetLibrary(id)
			if err != nil {
				return nil, err
			}
			books := Inline{Title: "Books", Columns: []string{"Title", "Author"}}
			for _, b := range library.Books {
				books.Rows = append(books.Rows, Row{ID: b.ID, Cells: []string{b.Title, b.AuthorName()}})
			}
			return &Detail{
				Title: library.Name,
				Fields: []Field{
					{Label: "Name", Value: library.Name},
					{Label: "Librarian", Value: librarianLabel(*library)},
					{Label: "Book count", Value: strconv.Itoa(library.BookCount())},
				},
				Inlines: []Inline{books},
			}, nil
		},
		Delete: repo.DeleteLibrary,
	}
}

func librarianAdmin(repo *catalog.Repository) *ModelAdmin {
	return &ModelAdmin{
		Name:    "Librarians",
		Slug:    "librarians",
		Columns: []string{"Librarian name", "Library"},
		Filters: []ListFilter{{
			Field: "library",
			Label: "library",
			Choices: func() ([]Choice, error) {
				libraries, err := repo.ListLibraries("")
				if err != nil {
					return nil, err
				}
				choices := make([]Choice, 0, len(libraries))
				for _, l := range libraries {
					choices = append(choices, Choice{Value: strconv.FormatUint(uint64(l.ID), 10), Label: l.Name})
				}
				return choices, nil
			},
		}},
		List: func(q Query) ([]Row, int64, error) {
			librarians, total, err := repo.PageLibrarians(parseUint(q.Filter("library")), q.Limit, q.Offset)
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(librarians))
			for _, l := range librarians {
				library := ""
				if l.Library != nil {
					library = l.Library.Name
				}
				rows = append(rows, Row{ID: l.ID, Cells: []string{l.DisplayName(), library}})
			}
			return rows, total, nil
		},
		Count: repo.CountLibrarians,
		Detail: func(id uint) (*Detail, error) {
			l, err := repo.GetLibrarian(id)
			if err != nil {
				return nil, err
			}
			detail := &Detail{Title: l.DisplayName(), Fields: []Field{{Label: "Librarian name", Value: l.DisplayName()}}}
			if l.User != nil {
				detail.Fields = append(detail.Fields, Field{Label: "Email", Value: l.User.Email})
			}
			if l.Library != nil {
				detail.Fields = append(detail.Fields, Field{Label: "Library", Value: l.Library.Name})
			}
			return detail, nil
		},
		Delete: repo.DeleteLibrarian,
	}
}

func profileAdmin(repo *users.Repository, roles RoleSetter) *ModelAdmin {
	return &ModelAdmin{
		Name:    "User profiles",
		Slug:    "profiles",
		Columns: []string{"Email", "Role"},
		Actions: profileActions(repo, roles),
		Filters: []ListFilter{{
			Field: "role",
			Label: "role",
			Choices: func() ([]Choice, error) {
				choices := make([]Choice, 0, len(entities.Roles))
				for _, r := range entities.Roles {
					choices = append(choices, Choice{Value: string(r), Label: string(r)})
				}
				return choices, nil
			},
		}},
		List: func(q Query) ([]Row, int64, error) {
			profiles, total, err := repo.PageProfiles(entities.Role(q.Filter("role")), q.Limit, q.Offset)
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(profiles))
			for _, p := range profiles {
				email := ""
				if p.User != nil {
					email = p.User.Email
				}
				rows = append(rows, Row{ID: p.ID, Cells: []string{email, string(p.Role)}})
			}
			return rows, total, nil
		},
		Count: repo.CountProfiles,
		Detail: func(id uint) (*Detail, error) {
			p, err := repo.GetProfileByID(id)
			if err != nil {
				return nil, err
			}
			detail := &Detail{Fields: []Field{{Label: "Role", Value: string(p.Role)}}}
			if p.User != nil {
				detail.Title = p.User.Email
				detail.Fields = append([]Field{{Label: "Email", Value: p.User.Email}}, detail.Fields...)
			}
			return detail, nil
		},
	}
}

func userAdmin(repo *users.Repository, perms *permissions.Repository, onDeleted func(uint)) *ModelAdmin {
	filter := func(field, label string) ListFilter {
		return ListFilter{Field: field, Label: label, Choices: boolChoices}
	}
	var actions []Action
	if perms != nil {
		actions = userActions(repo, perms)
	}
	return &ModelAdmin{
		Name:         "Users",
		Slug:         "users",
		Columns:      []string{"Email", "Username", "First name", "Last name", "Date of birth", "Staff status"},
		SearchFields: []string{"email", "username", "first_name", "last_name"},
		Ordering:     "email",
		Filters: []ListFilter{
			filter("is_staff", "staff status"),
			filter("is_active", "active"),
			filter("is_superuser", "superuser status"),
		},
		Actions: actions,
		List: func(q Query) ([]Row, int64, error) {
			list, total, err := repo.List(users.ListFilter{
				Search:      q.Search,
				IsStaff:     boolFilter(q.Filter("is_staff")),
				IsActive:    boolFilter(q.Filter("is_active")),
				IsSuperuser: boolFilter(q.Filter("is_superuser")),
				Limit:       q.Limit,
				Offset:      q.Offset,
			})
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(list))
			for _, u := range list {
				dob := ""
				if u.DateOfBirth != nil {
					dob = u.DateOfBirth.Format(dateLayout)
				}
				rows = append(rows, Row{ID: u.ID, Cells: []string{u.Email, u.Username, u.FirstName, u.LastName, dob, yesNo(u.IsStaff)}})
			}
			return rows, total, nil
		},
		Count: repo.Count,
		Detail: func(id uint) (*Detail, error) {
			u, err := repo.GetByID(id)
			if err != nil {
				return nil, err
			}
			detail := &Detail{
				Title: u.Email,
				Fields: []Field{
					{Label: "Email", Value: u.Email},
					{Label: "Username", Value: u.Username},
					{Label: "Name", Value: strings.TrimSpace(u.FirstName + " " + u.LastName)},
					{Label: "Role", Value: string(u.Role())},
					{Label: "Phone number", Value: u.PhoneNumber},
					{Label: "Active", Value: yesNo(u.IsActive)},
					{Label: "Staff status", Value: yesNo(u.IsStaff)},
					{Label: "Superuser status", Value: yesNo(u.IsSuperuser)},
				},
			}
			if perms != nil {
				groups, err := perms.GroupsForUser(u.ID)
				if err != nil {
					return nil, err
				}
				direct, err := perms.DirectPermissions(u.ID)
				if err != nil {
					return nil, err
				}
				detail.Fields = append(detail.Fields,
					Field{Label: "Groups", Value: strings.Join(groups, ", ")},
					Field{Label: "User permissions", Value: strings.Join(direct, ", ")},
				)
			}
			return detail, nil
		},
		Delete: func(id uint) error {
			if err := repo.Delete(id); err != nil {
				return err
			}
			if onDeleted != nil {
				onDeleted(id)
			}
			return nil
		},
	}
}

func auditAdmin(svc *audit.Service) *ModelAdmin {
	return &ModelAdmin{
		Name:     "Audit events",
		Slug:     "audit",
		Columns:  []string{"Time", "User", "Type", "Action", "Status", "Description"},
		Ordering: "-created_at",
		Filters: []ListFilter{
			{
				Field: "event_type",
				Label: "type",
				Choices: func() ([]Choice, error) {
					types := []entities.AuditEventType{
						entities.AuditEventAuth, entities.AuditEventCreate, entities.AuditEventUpdate,
						entities.AuditEventDelete, entities.AuditEventAdmin, entities.AuditEventCleanup,
					}
					choices := make([]Choice, 0, len(types))
					for _, t := range types {
						choices = append(choices, Choice{Value: string(t), Label: string(t)})
					}
					return choices, nil
				},
			},
		},
		List: func(q Query) ([]Row, int64, error) {
			events, total, err := svc.Events(auditdb.Filter{
				EventType: entities.AuditEventType(q.Filter("event_type")),
				Limit:     q.Limit,
				Offset:    q.Offset,
			})
			if err != nil {
				return nil, 0, err
			}
			rows := make([]Row, 0, len(events))
			for _, e := range events {
				rows = append(rows, Row{ID: e.ID, Cells: []string{
					e.CreatedAt.Format("2006-01-02 15:04:05"),
					fmt.Sprintf("%d", e.UserID),
					string(e.EventType),
					e.Action,
					string(e.Status),
					e.Description,
				}})
			}
			return rows, total, nil
		},
		Count: func() (int64, error) {
			_, total, err := svc.Events(auditdb.Filter{Limit: 1})
			return total, err
		},
	}
}
