package entities

import "strings"

type Permission struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	App      string `gorm:"uniqueIndex:idx_permission_app_codename;size:50;not null" json:"app"`
	Codename string `gorm:"uniqueIndex:idx_permission_app_codename;size:100;not null" json:"codename"`
	Name     string `gorm:"size:255" json:"name"`
}

func (Permission) TableName() string {
	return "permissions"
}

// Key is the "app.codename" form used by route guards.
func (p Permission) Key() string {
	return p.App + "." + p.Codename
}

// SplitPermissionKey splits "app.codename". ok is false for malformed keys.
func SplitPermissionKey(key string) (app, codename string, ok bool) {
	app, codename, ok = strings.Cut(key, ".")
	if !ok || app == "" || codename == "" {
		return "", "", false
	}
	return app, codename, true
}

type Group struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Name        string       `gorm:"uniqueIndex;size:150;not null" json:"name"`
	Permissions []Permission `gorm:"many2many:group_permissions" json:"permissions,omitempty"`
}

func (Group) TableName() string {
	return "groups"
}

const (
	PermViewBook   = "catalog.can_view_book"
	PermAddBook    = "catalog.can_add_book"
	PermChangeBook = "catalog.can_change_book"
	PermDeleteBook = "catalog.can_delete_book"

	PermShelfView   = "bookshelf.can_view"
	PermShelfCreate = "bookshelf.can_create"
	PermShelfEdit   = "bookshelf.can_edit"
	PermShelfDelete = "bookshelf.can_delete"

	PermManageUsers = "accounts.can_manage_users"
)

// DefaultPermissions is the registry seeded at migration time.
var DefaultPermissions = []Permission{
	{App: "catalog", Codename: "can_view_book", Name: "Can view book"},
	{App: "catalog", Codename: "can_add_book", Name: "Can add book"},
	{App: "catalog", Codename: "can_change_book", Name: "Can change book"},
	{App: "catalog", Codename: "can_delete_book", Name: "Can delete book"},
	{App: "bookshelf", Codename: "can_view", Name: "Can view book"},
	{App: "bookshelf", Codename: "can_create", Name: "Can create book"},
	{App: "bookshelf", Codename: "can_edit", Name: "Can edit book"},
	{App: "bookshelf", Codename: "can_delete", Name: "Can delete book"},
	{App: "accounts", Codename: "can_manage_users", Name: "Can manage users"},
}

const (
	GroupViewers    = "Viewers"
	GroupEditors    = "Editors"
	GroupAdmins     = "Admins"
	GroupLibrarians = "Librarians"
)

// DefaultGroups maps group names to permission keys.
var DefaultGroups = map[string][]string{
	GroupViewers:    {PermShelfView},
	GroupEditors:    {PermShelfView, PermShelfCreate, PermShelfEdit},
	GroupAdmins:     {PermShelfView, PermShelfCreate, PermShelfEdit, PermShelfDelete},
	GroupLibrarians: {PermViewBook, PermAddBook, PermChangeBook, PermDeleteBook},
}
