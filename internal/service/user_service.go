package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/repository"
	"admin-dashboard/backend/pkg/jwt"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/oauth"
)

var (
	ErrUsernameTaken      = errors.New("username already registered")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = repository.ErrUserNotFound
)

// IssuedToken is a signed bearer token and its lifetime in seconds.
type IssuedToken struct {
	Token     string `json:"token"`
	ExpiresIn int64  `json:"expires_in"`
}

// UserService handles account registration, login and profile changes.
type UserService struct {
	store  repository.UserStore
	tokens *jwt.Service
	logger *logger.Logger
}

// NewUserService creates a new user service
func NewUserService(store repository.UserStore, tokens *jwt.Service, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &UserService{store: store, tokens: tokens, logger: log}
}

// Register creates an account. Username is checked before email, so a
// request colliding on both reports the username.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	if err := s.checkAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	user := &models.User{
		Username: username,
		Email:    email,
		Password: password,
	}
	if err := s.store.Insert(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a race with a concurrent registration; report which column.
			if cerr := s.checkAvailable(ctx, username, email); cerr != nil {
				return nil, cerr
			}
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil
}

func (s *UserService) checkAvailable(ctx context.Context, username, email string) error {
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		return ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup username: %w", err)
	}

	if _, err := s.store.FindByEmail(ctx, email); err == nil {
		return ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	return nil
}

// Login checks the credentials and issues a token.
func (s *UserService) Login(ctx context.Context, username, password string) (*IssuedToken, error) {
	user, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if !models.CheckPasswordHash(password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.IssueToken(user)
}

// IssueToken signs a bearer token for user.
func (s *UserService) IssueToken(user *models.User) (*IssuedToken, error) {
	token, _, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{
		Token:     token,
		ExpiresIn: int64(s.tokens.Expiry().Seconds()),
	}, nil
}

// UpdateProfile applies the optional fields of upd to user. The display
// name is stored as the first name and the bio as about_me.
func (s *UserService) UpdateProfile(ctx context.Context, user *models.User, upd models.ProfileUpdate) (*models.User, error) {
	if upd.Empty() {
		return user, nil
	}

	patch := &models.User{ID: user.ID}
	var fields []string

	if upd.Name != nil {
		patch.FirstName = strings.TrimSpace(*upd.Name)
		fields = append(fields, repository.FieldFirstName)
	}
	if upd.Bio != nil {
		patch.AboutMe = *upd.Bio
		fields = append(fields, repository.FieldAboutMe)
	}
	if upd.Email != nil && *upd.Email != user.Email {
		existing, err := s.store.FindByEmail(ctx, *upd.Email)
		switch {
		case err == nil && existing.ID != user.ID:
			return nil, ErrEmailTaken
		case err != nil && !errors.Is(err, repository.ErrUserNotFound):
			return nil, fmt.Errorf("lookup email: %w", err)
		}
		patch.Email = *upd.Email
		fields = append(fields, repository.FieldEmail)
	}

	if len(fields) > 0 {
		if err := s.store.Update(ctx, patch, fields...); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrEmailTaken
			}
			return nil, fmt.Errorf("update profile: %w", err)
		}
	}

	return s.store.FindByID(ctx, user.ID)
}

// SetProfileImage records the stored image path on the user.
func (s *UserService) SetProfileImage(ctx context.Context, user *models.User, path string) error {
	patch := &models.User{ID: user.ID, ProfileImage: path}
	if err := s.store.Update(ctx, patch, repository.FieldProfileImage); err != nil {
		return fmt.Errorf("set profile image: %w", err)
	}
	return nil
}

// CountUsers returns the number of registered accounts.
func (s *UserService) CountUsers(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}

// LoginWithGitHub signs in the account linked to a GitHub identity, creating
// it on first use. A clashing username gets the GitHub id appended; a
// clashing or missing email falls back to the GitHub noreply address.
func (s *UserService) LoginWithGitHub(ctx context.Context, gh *oauth.GitHubUser) (*IssuedToken, error) {
	user, err := s.store.FindByGithub(ctx, gh.ID)
	if err == nil {
		return s.IssueToken(user)
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, fmt.Errorf("lookup github user: %w", err)
	}

	username := gh.Login
	if _, err := s.store.FindByUsername(ctx, username); err == nil {
		username = gh.Login + "_" + gh.ID
	}

	email := gh.Email
	if email != "" {
		if _, err := s.store.FindByEmail(ctx, email); err == nil {
			email = ""
		}
	}
	if email == "" {
		email = gh.ID + "+" + gh.Login + "@users.noreply.github.com"
	}

	user = &models.User{
		Username:    username,
		Email:       email,
		OAuthGithub: gh.ID,
		FirstName:   gh.Name,
	}
	if err := s.store.Insert(ctx, user); err != nil {
		return nil, fmt.Errorf("create github user: %w", err)
	}

	s.logger.Info("user registered via github", "user_id", user.ID, "username", user.Username)
	return s.IssueToken(user)
}
