package admin

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/database/permissions"
	"github.com/mrlokans/catalog/internal/database/users"
	"github.com/mrlokans/catalog/internal/entities"
)

const maxNameLength = 255

// RoleSetter changes the role on a user's profile.
type RoleSetter interface {
	SetRole(userID uint, role entities.Role) error
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

func idValue(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// requiredName reads a trimmed, non-empty name of at most maxNameLength runes.
func requiredName(form url.Values) (string, error) {
	name := strings.TrimSpace(form.Get("name"))
	if name == "" {
		return "", invalid("name is required")
	}
	if len([]rune(name)) > maxNameLength {
		return "", invalid("name must be at most %d characters", maxNameLength)
	}
	return name, nil
}

func formID(form url.Values, field string) (uint, error) {
	id := parseUint(strings.TrimSpace(form.Get(field)))
	if id == 0 {
		return 0, invalid("select a valid %s", strings.TrimSuffix(field, "_id"))
	}
	return id, nil
}

func formIDs(form url.Values, field string) ([]uint, error) {
	ids := make([]uint, 0, len(form[field]))
	for _, raw := range form[field] {
		id := parseUint(strings.TrimSpace(raw))
		if id == 0 {
			return nil, invalid("%q is not a valid choice", raw)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// choiceInput turns an unknown referenced record into an input error.
func choiceInput(err error) error {
	if errors.Is(err, catalog.ErrNotFound) || errors.Is(err, permissions.ErrNotFound) || errors.Is(err, permissions.ErrInvalidKey) {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return err
}

func nameField() ActionField {
	return ActionField{Name: "name", Label: "Name"}
}

func renameAction(rename func(id uint, name string) error) Action {
	return Action{
		Slug:   "rename",
		Label:  "Rename",
		Fields: []ActionField{nameField()},
		Run: func(id uint, form url.Values) (uint, error) {
			name, err := requiredName(form)
			if err != nil {
				return 0, err
			}
			return id, rename(id, name)
		},
	}
}

func authorActions(repo *catalog.Repository) []Action {
	return []Action{renameAction(func(id uint, name string) error {
		author, err := repo.GetAuthor(id)
		if err != nil {
			return err
		}
		author.Name = name
		return repo.UpdateAuthor(author)
	})}
}

func libraryModelActions(repo *catalog.Repository) []Action {
	return []Action{{
		Slug:   "add",
		Label:  "Add library",
		Fields: []ActionField{nameField()},
		Run: func(_ uint, form url.Values) (uint, error) {
			name, err := requiredName(form)
			if err != nil {
				return 0, err
			}
			library := &entities.Library{Name: name}
			if err := repo.CreateLibrary(library); err != nil {
				return 0, err
			}
			return library.ID, nil
		},
	}}
}

func libraryActions(repo *catalog.Repository, accounts *users.Repository) []Action {
	libraryBooks := func(id uint) ([]Choice, error) {
		library, err := repo.GetLibrary(id)
		if err != nil {
			return nil, err
		}
		choices := make([]Choice, 0, len(library.Books))
		for _, b := range library.Books {
			choices = append(choices, Choice{Value: idValue(b.ID), Label: b.Title})
		}
		return choices, nil
	}

	return []Action{
		renameAction(func(id uint, name string) error {
			library, err := repo.GetLibrary(id)
			if err != nil {
				return err
			}
			library.Name = name
			return repo.UpdateLibrary(library)
		}),
		{
			Slug:  "set_books",
			Label: "Set books",
			Fields: []ActionField{{
				Name:     "book_ids",
				Label:    "Books",
				Multiple: true,
				Choices: func(id uint) ([]Choice, error) {
					library, err := repo.GetLibrary(id)
					if err != nil {
						return nil, err
					}
					held := make(map[uint]bool, len(library.Books))
					for _, b := range library.Books {
						held[b.ID] = true
					}
					books, _, err := repo.ListBooks(catalog.BookFilter{})
					if err != nil {
						return nil, err
					}
					choices := make([]Choice, 0, len(books))
					for _, b := range books {
						choices = append(choices, Choice{Value: idValue(b.ID), Label: b.Title, Selected: held[b.ID]})
					}
					return choices, nil
				},
			}},
			Run: func(id uint, form url.Values) (uint, error) {
				ids, err := formIDs(form, "book_ids")
				if err != nil {
					return 0, err
				}
				if _, err := repo.GetLibrary(id); err != nil {
					return 0, err
				}
				return id, choiceInput(repo.SetBooks(id, ids))
			},
		},
		{
			Slug:   "remove_book",
			Label:  "Remove book",
			Fields: []ActionField{{Name: "book_id", Label: "Book", Choices: libraryBooks}},
			Run: func(id uint, form url.Values) (uint, error) {
				bookID, err := formID(form, "book_id")
				if err != nil {
					return 0, err
				}
				return id, repo.RemoveBooks(id, bookID)
			},
		},
		{
			Slug:  "assign_librarian",
			Label: "Assign librarian",
			Fields: []ActionField{{
				Name:  "user_id",
				Label: "User",
				Choices: func(uint) ([]Choice, error) {
					profiles, err := accounts.ListProfiles(entities.RoleLibrarian)
					if err != nil {
						return nil, err
					}
					choices := make([]Choice, 0, len(profiles))
					for _, p := range profiles {
						if p.User == nil {
							continue
						}
						if _, err := repo.GetLibrarianByUser(p.UserID); err == nil {
							continue
						}
						choices = append(choices, Choice{Value: idValue(p.UserID), Label: p.User.FullName() + " <" + p.User.Email + ">"})
					}
					return choices, nil
				},
			}},
			Run: func(id uint, form url.Values) (uint, error) {
				userID, err := formID(form, "user_id")
				if err != nil {
					return 0, err
				}
				profile, err := accounts.GetProfile(userID)
				if errors.Is(err, users.ErrNotFound) {
					return 0, invalid("unknown user")
				}
				if err != nil {
					return 0, err
				}
				if !profile.IsLibrarian() {
					return 0, invalid("user does not have the %s role", entities.RoleLibrarian)
				}
				_, err = repo.AssignLibrarian(userID, id)
				if errors.Is(err, catalog.ErrLibraryHasLibrarian) || errors.Is(err, catalog.ErrUserIsLibrarian) {
					return 0, fmt.Errorf("%w: %w", ErrInvalid, err)
				}
				return id, err
			},
		},
		{
			Slug:  "unassign_librarian",
			Label: "Unassign librarian",
			Run: func(id uint, _ url.Values) (uint, error) {
				return id, repo.UnassignLibrarian(id)
			},
		},
	}
}

func profileActions(repo *users.Repository, roles RoleSetter) []Action {
	return []Action{{
		Slug:       "set_role",
		Label:      "Change role",
		Permission: entities.PermManageUsers,
		Fields: []ActionField{{
			Name:  "role",
			Label: "Role",
			Choices: func(id uint) ([]Choice, error) {
				profile, err := repo.GetProfileByID(id)
				if err != nil {
					return nil, err
				}
				choices := make([]Choice, 0, len(entities.Roles))
				for _, r := range entities.Roles {
					choices = append(choices, Choice{Value: string(r), Label: string(r), Selected: r == profile.Role})
				}
				return choices, nil
			},
		}},
		Run: func(id uint, form url.Values) (uint, error) {
			role := entities.Role(form.Get("role"))
			if !role.Valid() {
				return 0, invalid("%q is not a valid role", form.Get("role"))
			}
			profile, err := repo.GetProfileByID(id)
			if err != nil {
				return 0, err
			}
			return id, roles.SetRole(profile.UserID, role)
		},
	}}
}

func userActions(repo *users.Repository, perms *permissions.Repository) []Action {
	groupChoices := func(member bool) func(uint) ([]Choice, error) {
		return func(id uint) ([]Choice, error) {
			current, err := perms.GroupsForUser(id)
			if err != nil {
				return nil, err
			}
			if member {
				return keyChoices(current), nil
			}
			groups, err := perms.ListGroups()
			if err != nil {
				return nil, err
			}
			var choices []Choice
			for _, g := range groups {
				if !slices.Contains(current, g.Name) {
					choices = append(choices, Choice{Value: g.Name, Label: g.Name})
				}
			}
			return choices, nil
		}
	}
	// change runs fn for an existing user with the submitted value.
	change := func(field string, fn func(userID uint, value string) error) func(uint, url.Values) (uint, error) {
		return func(id uint, form url.Values) (uint, error) {
			value := strings.TrimSpace(form.Get(field))
			if value == "" {
				return 0, invalid("%s is required", field)
			}
			if _, err := repo.GetByID(id); err != nil {
				return 0, err
			}
			return id, choiceInput(fn(id, value))
		}
	}

	return []Action{
		{
			Slug:       "add_to_group",
			Label:      "Add to group",
			Permission: entities.PermManageUsers,
			Fields:     []ActionField{{Name: "group", Label: "Group", Choices: groupChoices(false)}},
			Run:        change("group", perms.AddUserToGroup),
		},
		{
			Slug:       "remove_from_group",
			Label:      "Remove from group",
			Permission: entities.PermManageUsers,
			Fields:     []ActionField{{Name: "group", Label: "Group", Choices: groupChoices(true)}},
			Run:        change("group", perms.RemoveUserFromGroup),
		},
		{
			Slug:       "grant_permission",
			Label:      "Grant permission",
			Permission: entities.PermManageUsers,
			Fields: []ActionField{{
				Name:  "permission",
				Label: "Permission",
				Choices: func(uint) ([]Choice, error) {
					all, err := perms.ListPermissions()
					if err != nil {
						return nil, err
					}
					choices := make([]Choice, 0, len(all))
					for _, p := range all {
						choices = append(choices, Choice{Value: p.Key(), Label: p.Key()})
					}
					return choices, nil
				},
			}},
			Run: change("permission", perms.Grant),
		},
		{
			Slug:       "revoke_permission",
			Label:      "Revoke permission",
			Permission: entities.PermManageUsers,
			Fields: []ActionField{{
				Name:  "permission",
				Label: "Permission",
				Choices: func(id uint) ([]Choice, error) {
					keys, err := perms.DirectPermissions(id)
					return keyChoices(keys), err
				},
			}},
			Run: change("permission", perms.Revoke),
		},
	}
}

func keyChoices(keys []string) []Choice {
	choices := make([]Choice, 0, len(keys))
	for _, k := range keys {
		choices = append(choices, Choice{Value: k, Label: k})
	}
	return choices
}
