// Package users provides database operations for users and their profiles.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByEmail("reader@example.com")
package users

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalog/internal/entities"
)

var ErrNotFound = errors.New("user not found")

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts the user and sets the role on the profile created by the
// user's save hook. Both happen in one transaction.
func (r *Repository) Create(user *entities.User, role entities.Role) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(user).Error; err != nil {
			return err
		}
		if err := tx.Model(&entities.UserProfile{}).
			Where("user_id = ?", user.ID).
			Update("role", role).Error; err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}
		profile, err := profileFor(tx, user.ID)
		if err != nil {
			return err
		}
		user.Profile = profile
		return nil
	})
}

// Save persists scalar fields. Relations are managed by dedicated methods.
func (r *Repository) Save(user *entities.User) error {
	return r.db.Omit(clause.Associations).Save(user).Error
}

// GetByID retrieves a user with the profile loaded.
func (r *Repository) GetByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Profile").First(&user, id).Error
	return wrap(&user, err)
}

// GetByEmail looks a user up by normalized email.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Preload("Profile").Where("email = ?", NormalizeEmail(email)).First(&user).Error
	return wrap(&user, err)
}

// Exists reports whether the email or the username is already taken.
func (r *Repository) Exists(email, username string) (bool, error) {
	var count int64
	err := r.db.Model(&entities.User{}).
		Where("email = ? OR username = ?", NormalizeEmail(email), username).
		Count(&count).Error
	return count > 0, err
}

// GetProfile returns the profile of a user.
func (r *Repository) GetProfile(userID uint) (*entities.UserProfile, error) {
	return profileFor(r.db, userID)
}

// GetProfileByID loads a profile with its user.
func (r *Repository) GetProfileByID(id uint) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := r.db.Preload("User").First(&profile, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

// SetRole changes the role on the user's profile.
func (r *Repository) SetRole(userID uint, role entities.Role) error {
	result := r.db.Model(&entities.UserProfile{}).Where("user_id = ?", userID).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordLogin resets the failure counter and stamps the login time.
func (r *Repository) RecordLogin(userID uint, at time.Time) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).UpdateColumns(map[string]any{
		"last_login_at":      at,
		"failed_login_count": 0,
		"locked_until":       nil,
	}).Error
}

// RecordFailedLogin stores the new failure count and optional lock expiry.
func (r *Repository) RecordFailedLogin(userID uint, count int, lockedUntil *time.Time) error {
	updates := map[string]any{"failed_login_count": count}
	if lockedUntil != nil {
		updates["locked_until"] = *lockedUntil
	}
	return r.db.Model(&entities.User{}).Where("id = ?", userID).UpdateColumns(updates).Error
}

func (r *Repository) UpdatePassword(userID uint, hash string) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).UpdateColumn("password_hash", hash).Error
}

// UpdatePhoto stores the relative path of the profile photo.
func (r *Repository) UpdatePhoto(userID uint, path string) error {
	return r.db.Model(&entities.User{}).Where("id = ?", userID).UpdateColumn("profile_photo", path).Error
}

// ProfilePhotoPaths lists every stored profile photo path.
func (r *Repository) ProfilePhotoPaths() ([]string, error) {
	var paths []string
	err := r.db.Model(&entities.User{}).Where("profile_photo <> ''").Pluck("profile_photo", &paths).Error
	return paths, err
}

// ListFilter narrows List. Zero values mean "no filter".
type ListFilter struct {
	Search      string
	Role        entities.Role
	IsStaff     *bool
	IsActive    *bool
	IsSuperuser *bool
	Limit       int
	Offset      int
}

// List returns users ordered by email together with the total match count.
func (r *Repository) List(filter ListFilter) ([]entities.User, int64, error) {
	query := r.db.Model(&entities.User{})
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where(
			"LOWER(email) LIKE ? OR LOWER(username) LIKE ? OR LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ?",
			like, like, like, like,
		)
	}
	if filter.Role != "" {
		query = query.Where("id IN (?)", r.db.Model(&entities.UserProfile{}).Select("user_id").Where("role = ?", filter.Role))
	}
	if filter.IsStaff != nil {
		query = query.Where("is_staff = ?", *filter.IsStaff)
	}
	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.IsSuperuser != nil {
		query = query.Where("is_superuser = ?", *filter.IsSuperuser)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit).Offset(filter.Offset)
	}

	var result []entities.User
	err := query.Preload("Profile").Order("email").Find(&result).Error
	return result, total, err
}

// ListProfiles returns profiles with their users, optionally filtered by role.
func (r *Repository) ListProfiles(role entities.Role) ([]entities.UserProfile, error) {
	query := r.db.Preload("User").Order("id")
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var profiles []entities.UserProfile
	err := query.Find(&profiles).Error
	return profiles, err
}

// PageProfiles is ListProfiles restricted to one page, with the total
// number of matches.
func (r *Repository) PageProfiles(role entities.Role, limit, offset int) ([]entities.UserProfile, int64, error) {
	query := r.db.Model(&entities.UserProfile{})
	if role != "" {
		query = query.Where("role = ?", role)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}
	var profiles []entities.UserProfile
	err := query.Preload("User").Order("id").Find(&profiles).Error
	return profiles, total, err
}

func (r *Repository) CountProfiles() (int64, error) {
	var count int64
	err := r.db.Model(&entities.UserProfile{}).Count(&count).Error
	return count, err
}

func (r *Repository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&entities.User{}).Count(&count).Error
	return count, err
}

// Delete removes the user with its group and permission links.
// The profile and librarian rows go with it through ON DELETE CASCADE.
func (r *Repository) Delete(id uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		user := entities.User{ID: id}
		if err := tx.Model(&user).Association("Groups").Clear(); err != nil {
			return err
		}
		if err := tx.Model(&user).Association("Permissions").Clear(); err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.Librarian{}).Error; err != nil {
			return err
		}
		if err := tx.Where("user_id = ?", id).Delete(&entities.UserProfile{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&entities.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// NormalizeEmail lower-cases the domain part and trims whitespace.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return email
	}
	return local + "@" + strings.ToLower(domain)
}

func profileFor(db *gorm.DB, userID uint) (*entities.UserProfile, error) {
	var profile entities.UserProfile
	err := db.Where("user_id = ?", userID).First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func wrap(user *entities.User, err error) (*entities.User, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
