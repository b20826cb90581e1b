// Package permissions stores the permission registry, groups and the
// grants linking them to users.
//
// Permissions are addressed by "app.codename" keys, e.g. "catalog.can_add_book".
// A user holds a permission when it is granted directly or through any
// group the user belongs to.
package permissions

import (
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/mrlokans/catalog/internal/entities"
)

var (
	ErrNotFound   = errors.New("permission or group not found")
	ErrInvalidKey = errors.New("permission key must look like app.codename")
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// SeedDefaults creates the registry permissions and default groups.
// Existing rows are left alone, so it can run on every start.
func (r *Repository) SeedDefaults() error {
	for _, perm := range entities.DefaultPermissions {
		p := perm
		err := r.db.Where(entities.Permission{App: p.App, Codename: p.Codename}).
			Attrs(entities.Permission{Name: p.Name}).
			FirstOrCreate(&p).Error
		if err != nil {
			return fmt.Errorf("failed to seed permission %s: %w", perm.Key(), err)
		}
	}
	return r.SetupGroups(entities.DefaultGroups)
}

// SetupGroups creates each group if needed and adds the listed permissions.
func (r *Repository) SetupGroups(groups map[string][]string) error {
	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if _, err := r.EnsureGroup(name); err != nil {
			return err
		}
		for _, key := range groups[name] {
			if err := r.AddPermissionToGroup(name, key); err != nil {
				return fmt.Errorf("group %s: %w", name, err)
			}
		}
	}
	return nil
}

func (r *Repository) GetPermission(key string) (*entities.Permission, error) {
	app, codename, ok := entities.SplitPermissionKey(key)
	if !ok {
		return nil, ErrInvalidKey
	}
	var perm entities.Permission
	err := r.db.Where("app = ? AND codename = ?", app, codename).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	return &perm, nil
}

func (r *Repository) ListPermissions() ([]entities.Permission, error) {
	var perms []entities.Permission
	err := r.db.Order("app, codename").Find(&perms).Error
	return perms, err
}

// EnsureGroup returns the named group, creating it when missing.
func (r *Repository) EnsureGroup(name string) (*entities.Group, error) {
	group := entities.Group{Name: name}
	if err := r.db.Where(entities.Group{Name: name}).FirstOrCreate(&group).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure group %s: %w", name, err)
	}
	return &group, nil
}

func (r *Repository) GetGroup(name string) (*entities.Group, error) {
	var group entities.Group
	err := r.db.Preload("Permissions").Where("name = ?", name).First(&group).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: group %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return &group, nil
}

func (r *Repository) ListGroups() ([]entities.Group, error) {
	var groups []entities.Group
	err := r.db.Preload("Permissions").Order("name").Find(&groups).Error
	return groups, err
}

func (r *Repository) AddPermissionToGroup(groupName, key string) error {
	group, err := r.GetGroup(groupName)
	if err != nil {
		return err
	}
	perm, err := r.GetPermission(key)
	if err != nil {
		return err
	}
	return r.db.Model(group).Omit("Permissions.*").Association("Permissions").Append(perm)
}

func (r *Repository) AddUserToGroup(userID uint, groupName string) error {
	group, err := r.GetGroup(groupName)
	if err != nil {
		return err
	}
	user := entities.User{ID: userID}
	return r.db.Model(&user).Omit("Groups.*").Association("Groups").Append(&entities.Group{ID: group.ID, Name: group.Name})
}

func (r *Repository) RemoveUserFromGroup(userID uint, groupName string) error {
	group, err := r.GetGroup(groupName)
	if err != nil {
		return err
	}
	return r.db.Exec("DELETE FROM user_groups WHERE user_id = ? AND group_id = ?", userID, group.ID).Error
}

// GroupsForUser returns the names of the user's groups.
func (r *Repository) GroupsForUser(userID uint) ([]string, error) {
	var names []string
	err := r.db.Model(&entities.Group{}).
		Joins("JOIN user_groups ON user_groups.group_id = groups.id").
		Where("user_groups.user_id = ?", userID).
		Order("groups.name").
		Pluck("groups.name", &names).Error
	return names, err
}

// Grant gives the permission to the user directly.
func (r *Repository) Grant(userID uint, key string) error {
	perm, err := r.GetPermission(key)
	if err != nil {
		return err
	}
	user := entities.User{ID: userID}
	return r.db.Model(&user).Omit("Permissions.*").Association("Permissions").Append(perm)
}

// Revoke removes a direct grant. Group membership is unaffected.
func (r *Repository) Revoke(userID uint, key string) error {
	perm, err := r.GetPermission(key)
	if err != nil {
		return err
	}
	return r.db.Exec("DELETE FROM user_permissions WHERE user_id = ? AND permission_id = ?", userID, perm.ID).Error
}

// DirectPermissions lists the keys granted to the user outside of groups.
func (r *Repository) DirectPermissions(userID uint) ([]string, error) {
	var perms []entities.Permission
	err := r.db.
		Where("id IN (?)", r.db.Table("user_permissions").Select("permission_id").Where("user_id = ?", userID)).
		Order("app, codename").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(perms))
	for i, p := range perms {
		keys[i] = p.Key()
	}
	return keys, nil
}

// UserHasPermission checks direct grants and group grants.
func (r *Repository) UserHasPermission(userID uint, key string) (bool, error) {
	app, codename, ok := entities.SplitPermissionKey(key)
	if !ok {
		return false, ErrInvalidKey
	}
	var count int64
	err := r.db.Model(&entities.Permission{}).
		Where("app = ? AND codename = ?", app, codename).
		Where(r.db.
			Where("id IN (?)", r.db.Table("user_permissions").Select("permission_id").Where("user_id = ?", userID)).
			Or("id IN (?)", r.db.Table("group_permissions").
				Select("group_permissions.permission_id").
				Joins("JOIN user_groups ON user_groups.group_id = group_permissions.group_id").
				Where("user_groups.user_id = ?", userID))).
		Count(&count).Error
	return count > 0, err
}

// UserPermissions lists every permission key the user holds, sorted.
func (r *Repository) UserPermissions(userID uint) ([]string, error) {
	var perms []entities.Permission
	err := r.db.
		Where("id IN (?)", r.db.Table("user_permissions").Select("permission_id").Where("user_id = ?", userID)).
		Or("id IN (?)", r.db.Table("group_permissions").
			Select("group_permissions.permission_id").
			Joins("JOIN user_groups ON user_groups.group_id = group_permissions.group_id").
			Where("user_groups.user_id = ?", userID)).
		Order("app, codename").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(perms))
	for i, p := range perms {
		keys[i] = p.Key()
	}
	return keys, nil
}
