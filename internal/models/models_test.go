package models

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "users.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db
}

func TestBeforeCreateHashesAndDefaults(t *testing.T) {
	db := openDB(t)
	require.NoError(t, AutoMigrate(db))

	u := &User{Username: "  alice ", Email: "alice@example.com", Password: "Secret123"}
	require.NoError(t, db.Create(u).Error)

	var stored User
	require.NoError(t, db.First(&stored, u.ID).Error)
	assert.Equal(t, "alice", stored.Username)
	assert.NotEqual(t, "Secret123", stored.Password)
	assert.True(t, CheckPasswordHash("Secret123", stored.Password))
	assert.False(t, CheckPasswordHash("secret123", stored.Password))
	assert.Equal(t, DefaultPosition, stored.Position)
	assert.Equal(t, DefaultProfileImage, stored.ProfileImage)

	hashed := stored.Password
	again := &User{Username: "bob", Email: "bob@example.com", Password: hashed}
	require.NoError(t, db.Create(again).Error)
	assert.Equal(t, hashed, again.Password)
}

func TestGitHubAccountHasNoPassword(t *testing.T) {
	db := openDB(t)
	require.NoError(t, AutoMigrate(db))

	u := &User{Username: "octo", Email: "octo@example.com", OAuthGithub: "42"}
	require.NoError(t, db.Create(u).Error)
	assert.Empty(t, u.Password)
	assert.False(t, CheckPasswordHash("", u.Password))
}

func TestPatchUserColumnsCreatesTable(t *testing.T) {
	db := openDB(t)

	report, err := PatchUserColumns(db)
	require.NoError(t, err)
	assert.True(t, report.CreatedTable)
	assert.Empty(t, report.Added)
	assert.True(t, db.Migrator().HasColumn(&User{}, "ProfileImage"))
}

func TestPatchUserColumnsAddsMissing(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.Exec(`CREATE TABLE users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username VARCHAR(64) UNIQUE NOT NULL,
		email VARCHAR(64) UNIQUE NOT NULL,
		password VARCHAR(255),
		oauth_github VARCHAR(100)
	)`).Error)
	require.NoError(t, db.Exec(`INSERT INTO users (username, email) VALUES ('legacy', 'legacy@example.com')`).Error)

	report, err := PatchUserColumns(db)
	require.NoError(t, err)
	assert.False(t, report.CreatedTable)
	assert.ElementsMatch(t, profileColumns, report.Added)

	var legacy User
	require.NoError(t, db.Where("username = ?", "legacy").First(&legacy).Error)
	assert.Equal(t, "legacy@example.com", legacy.Email)

	report, err = PatchUserColumns(db)
	require.NoError(t, err)
	assert.Empty(t, report.Added)
}

func TestProfileViews(t *testing.T) {
	u := &User{ID: 3, Username: "alice", Email: "a@example.com", FirstName: "Alice", AboutMe: "hi", Position: "Lead"}

	assert.Equal(t, ProfileResponse{ID: 3, Username: "alice", Email: "a@example.com"}, u.ToProfile())
	details := u.ToDetails()
	assert.Equal(t, "Alice", details.Name)
	assert.Equal(t, "hi", details.Bio)

	name := "A"
	assert.True(t, ProfileUpdate{}.Empty())
	assert.False(t, ProfileUpdate{Name: &name}.Empty())
}
