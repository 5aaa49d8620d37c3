package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/repository"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/jwt"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/oauth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type fixture struct {
	store  repository.UserStore
	tokens *jwt.Service
	users  *UserService
	auth   *Authenticator
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dsn := fmt.Sprintf("file:svc-%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	f := &fixture{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	f.store = repository.NewGormUserRepository(db)
	f.tokens = jwt.NewService("test-secret", 24*time.Hour, jwt.WithClock(func() time.Time { return f.now }))
	f.users = NewUserService(f.store, f.tokens, logger.Discard())
	f.auth = NewAuthenticator(f.tokens, f.store)
	return f
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	assert.NotZero(t, u.ID)

	_, err = f.users.Register(ctx, "alice", "other@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = f.users.Register(ctx, "bob", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrEmailTaken)

	// Both collide: username wins.
	_, err = f.users.Register(ctx, "alice", "alice@example.com", "secret123")
	assert.ErrorIs(t, err, ErrUsernameTaken)

	tok, err := f.users.Login(ctx, "alice", "secret123")
	require.NoError(t, err)
	assert.EqualValues(t, 86400, tok.ExpiresIn)
	assert.NotEmpty(t, tok.Token)

	_, err = f.users.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.users.Login(ctx, "nobody", "secret123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	n, err := f.users.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAuthenticate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u, err := f.users.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	tok, err := f.users.Login(ctx, "alice", "secret123")
	require.NoError(t, err)

	got, err := f.auth.Authenticate(ctx, "Bearer "+tok.Token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	code := func(err error) string { return apperrors.GetErrorCode(err) }

	_, err = f.auth.Authenticate(ctx, "")
	assert.Equal(t, apperrors.CodeTokenMissing, code(err))
	_, err = f.auth.Authenticate(ctx, "Token "+tok.Token)
	assert.Equal(t, apperrors.CodeTokenMissing, code(err))
	_, err = f.auth.Authenticate(ctx, "Bearer garbage")
	assert.Equal(t, apperrors.CodeTokenInvalid, code(err))

	other := jwt.NewService("other", time.Hour)
	forged, _, err := other.GenerateToken(u.ID, "alice")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, "Bearer "+forged)
	assert.Equal(t, apperrors.CodeTokenInvalid, code(err))

	ghost, _, err := f.tokens.GenerateToken(999, "ghost")
	require.NoError(t, err)
	_, err = f.auth.Authenticate(ctx, "Bearer "+ghost)
	assert.Equal(t, apperrors.CodeUserNotFound, code(err))

	f.now = f.now.Add(24 * time.Hour)
	_, err = f.auth.Authenticate(ctx, "Bearer "+tok.Token)
	assert.Equal(t, apperrors.CodeTokenExpired, code(err))
	assert.Equal(t, 401, apperrors.GetStatusCode(err))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.users.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	_, err = f.users.Register(ctx, "bob", "bob@example.com", "secret123")
	require.NoError(t, err)

	name, bio := "Alice Liddell", "Down the rabbit hole"
	updated, err := f.users.UpdateProfile(ctx, alice, models.ProfileUpdate{Name: &name, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", updated.FirstName)
	assert.Equal(t, "Down the rabbit hole", updated.AboutMe)

	taken := "bob@example.com"
	_, err = f.users.UpdateProfile(ctx, alice, models.ProfileUpdate{Email: &taken})
	assert.ErrorIs(t, err, ErrEmailTaken)

	fresh := "alice@wonderland.io"
	updated, err = f.users.UpdateProfile(ctx, alice, models.ProfileUpdate{Email: &fresh})
	require.NoError(t, err)
	assert.Equal(t, fresh, updated.Email)

	// Password hash is untouched by profile writes.
	_, err = f.users.Login(ctx, "alice", "secret123")
	assert.NoError(t, err)

	same, err := f.users.UpdateProfile(ctx, alice, models.ProfileUpdate{})
	require.NoError(t, err)
	assert.Same(t, alice, same)

	require.NoError(t, f.users.SetProfileImage(ctx, alice, "img/profile_uploads/x.png"))
	reloaded, err := f.store.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "img/profile_uploads/x.png", reloaded.ProfileImage)
}

func TestLoginWithGitHub(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.Register(ctx, "octocat", "taken@example.com", "secret123")
	require.NoError(t, err)

	gh := &oauth.GitHubUser{ID: "42", Login: "octocat", Email: "taken@example.com", Name: "Mona"}
	tok, err := f.users.LoginWithGitHub(ctx, gh)
	require.NoError(t, err)

	linked, err := f.auth.Authenticate(ctx, "Bearer "+tok.Token)
	require.NoError(t, err)
	assert.Equal(t, "octocat_42", linked.Username)
	assert.Equal(t, "42+octocat@users.noreply.github.com", linked.Email)
	assert.Equal(t, "42", linked.OAuthGithub)
	assert.Equal(t, "Mona", linked.FirstName)

	// Second sign-in reuses the linked account.
	tok2, err := f.users.LoginWithGitHub(ctx, gh)
	require.NoError(t, err)
	again, err := f.auth.Authenticate(ctx, "Bearer "+tok2.Token)
	require.NoError(t, err)
	assert.Equal(t, linked.ID, again.ID)

	n, err := f.users.CountUsers(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestStatsSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	alice, err := f.users.Register(ctx, "alice", "alice@example.com", "secret123")
	require.NoError(t, err)
	_, err = f.users.Register(ctx, "bob", "bob@example.com", "secret123")
	require.NoError(t, err)

	stats := NewStatsService(f.users, func() int { return 3 }, func() int64 { return 42 })
	got, err := stats.Snapshot(ctx, alice)
	require.NoError(t, err)

	assert.Equal(t, &DashboardStats{
		TotalUsers:     2,
		ActiveSessions: 3,
		DailyRequests:  42,
		UserInfo:       UserInfo{ID: alice.ID, Username: "alice"},
	}, got)
}
