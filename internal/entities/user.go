package entities

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleLibrarian Role = "Librarian"
	RoleMember    Role = "Member"
)

// Roles lists the valid roles in the order they are offered on forms.
var Roles = []Role{RoleAdmin, RoleLibrarian, RoleMember}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleLibrarian, RoleMember:
		return true
	}
	return false
}

// User is identified by email. Username is kept for display and the admin.
type User struct {
	ID               uint         `gorm:"primaryKey" json:"id"`
	Email            string       `gorm:"uniqueIndex;size:254;not null" json:"email"`
	Username         string       `gorm:"uniqueIndex;size:150;not null" json:"username"`
	FirstName        string       `gorm:"size:150" json:"first_name"`
	LastName         string       `gorm:"size:150" json:"last_name"`
	DateOfBirth      *time.Time   `json:"date_of_birth,omitempty"`
	Bio              string       `gorm:"size:500" json:"bio,omitempty"`
	PhoneNumber      string       `gorm:"size:20" json:"phone_number,omitempty"`
	ProfilePhoto     string       `gorm:"size:255" json:"profile_photo,omitempty"`
	PasswordHash     string       `gorm:"size:100" json:"-"`
	IsActive         bool         `gorm:"not null" json:"is_active"`
	IsStaff          bool         `gorm:"not null" json:"is_staff"`
	IsSuperuser      bool         `gorm:"not null" json:"is_superuser"`
	LastLoginAt      *time.Time   `json:"last_login_at,omitempty"`
	FailedLoginCount int          `json:"-"`
	LockedUntil      *time.Time   `json:"-"`
	Profile          *UserProfile `gorm:"constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	Groups           []Group      `gorm:"many2many:user_groups" json:"-"`
	Permissions      []Permission `gorm:"many2many:user_permissions" json:"-"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// AfterSave makes sure every persisted user has exactly one profile.
// It runs on insert and on update, so a user whose profile went missing
// gets a fresh Member profile the next time it is saved.
func (u *User) AfterSave(tx *gorm.DB) error {
	if u.ID == 0 {
		return nil
	}
	var profile UserProfile
	return tx.Where(UserProfile{UserID: u.ID}).
		Attrs(UserProfile{Role: RoleMember}).
		FirstOrCreate(&profile).Error
}

// FullName returns "First Last", or the username when no name is set.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Role returns the profile role, or Member when the profile was not loaded.
func (u User) Role() Role {
	if u.Profile == nil {
		return RoleMember
	}
	return u.Profile.Role
}

// CanAccessAdmin reports whether the user may use the /admin/ area.
func (u User) CanAccessAdmin() bool {
	return u.IsActive && (u.IsStaff || u.IsSuperuser)
}

func (u User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && now.Before(*u.LockedUntil)
}

type UserProfile struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      *User     `json:"-"`
	Role      Role      `gorm:"size:20;not null;default:Member" json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserProfile) TableName() string {
	return "user_profiles"
}

func (p UserProfile) IsAdmin() bool     { return p.Role == RoleAdmin }
func (p UserProfile) IsLibrarian() bool { return p.Role == RoleLibrarian }
func (p UserProfile) IsMember() bool    { return p.Role == RoleMember }
