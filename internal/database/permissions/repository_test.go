package permissions

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
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "perms.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.UserProfile{}, &entities.Permission{}, &entities.Group{}))
	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	repo := NewRepository(db)
	require.NoError(t, repo.SeedDefaults())
	return repo, db
}

func createUser(t *testing.T, db *gorm.DB, email string) *entities.User {
	t.Helper()
	user := &entities.User{Email: email, Username: email, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	return user
}

func TestSeedDefaults_Idempotent(t *testing.T) {
	repo, _ := setupTestDB(t)
	require.NoError(t, repo.SeedDefaults())

	perms, err := repo.ListPermissions()
	require.NoError(t, err)
	assert.Len(t, perms, len(entities.DefaultPermissions))

	editors, err := repo.GetGroup(entities.GroupEditors)
	require.NoError(t, err)
	assert.Len(t, editors.Permissions, 3)
}

func TestUserHasPermission_ViaGroup(t *testing.T) {
	repo, db := setupTestDB(t)
	user := createUser(t, db, "editor@example.com")

	has, err := repo.UserHasPermission(user.ID, entities.PermShelfEdit)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, repo.AddUserToGroup(user.ID, entities.GroupEditors))

	tests := []struct {
		perm string
		want bool
	}{
		{entities.PermShelfView, true},
		{entities.PermShelfCreate, true},
		{entities.PermShelfEdit, true},
		{entities.PermShelfDelete, false},
		{entities.PermDeleteBook, false},
	}
	for _, tt := range tests {
		t.Run(tt.perm, func(t *testing.T) {
			has, err := repo.UserHasPermission(user.ID, tt.perm)
			require.NoError(t, err)
			assert.Equal(t, tt.want, has)
		})
	}

	groups, err := repo.GroupsForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.GroupEditors}, groups)

	require.NoError(t, repo.RemoveUserFromGroup(user.ID, entities.GroupEditors))
	has, err = repo.UserHasPermission(user.ID, entities.PermShelfView)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestGrantAndRevoke(t *testing.T) {
	repo, db := setupTestDB(t)
	user := createUser(t, db, "direct@example.com")
	other := createUser(t, db, "other@example.com")

	require.NoError(t, repo.Grant(user.ID, entities.PermDeleteBook))
	require.NoError(t, repo.Grant(user.ID, entities.PermDeleteBook))

	has, err := repo.UserHasPermission(user.ID, entities.PermDeleteBook)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = repo.UserHasPermission(other.ID, entities.PermDeleteBook)
	require.NoError(t, err)
	assert.False(t, has, "grants are per user")

	require.NoError(t, repo.Revoke(user.ID, entities.PermDeleteBook))
	has, err = repo.UserHasPermission(user.ID, entities.PermDeleteBook)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestUserPermissions(t *testing.T) {
	repo, db := setupTestDB(t)
	user := createUser(t, db, "mixed@example.com")

	require.NoError(t, repo.AddUserToGroup(user.ID, entities.GroupViewers))
	require.NoError(t, repo.Grant(user.ID, entities.PermAddBook))
	require.NoError(t, repo.Grant(user.ID, entities.PermShelfView))

	keys, err := repo.UserPermissions(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.PermShelfView, entities.PermAddBook}, keys)
}

func TestDirectPermissions_ExcludeGroupGrants(t *testing.T) {
	repo, db := setupTestDB(t)
	user := createUser(t, db, "direct-only@example.com")

	require.NoError(t, repo.AddUserToGroup(user.ID, entities.GroupEditors))
	require.NoError(t, repo.Grant(user.ID, entities.PermAddBook))

	keys, err := repo.DirectPermissions(user.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{entities.PermAddBook}, keys)

	require.NoError(t, repo.RemoveUserFromGroup(user.ID, entities.GroupEditors))
	groups, err := repo.GroupsForUser(user.ID)
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestInvalidAndUnknownKeys(t *testing.T) {
	repo, db := setupTestDB(t)
	user := createUser(t, db, "x@example.com")

	_, err := repo.UserHasPermission(user.ID, "no-dot")
	assert.ErrorIs(t, err, ErrInvalidKey)

	assert.ErrorIs(t, repo.Grant(user.ID, "catalog.can_fly"), ErrNotFound)
	assert.ErrorIs(t, repo.AddUserToGroup(user.ID, "Nobody"), ErrNotFound)
}
