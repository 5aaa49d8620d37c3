package repository

import (
	"context"
	"errors"
	"fmt"

	"admin-dashboard/backend/internal/models"

	"gorm.io/gorm"
)

var (
	// ErrUserNotFound is returned when no row matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique column already holds the value.
	ErrDuplicate = errors.New("duplicate user")
)

// Profile columns written by Update.
const (
	FieldFirstName    = "first_name"
	FieldEmail        = "email"
	FieldAboutMe      = "about_me"
	FieldProfileImage = "profile_image"
)

// UserStore is the credential store behind registration, login and token
// authentication.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByGithub(ctx context.Context, githubID string) (*models.User, error)
	Insert(ctx context.Context, user *models.User) error
	// Update writes only the named columns of user.
	Update(ctx context.Context, user *models.User, fields ...string) error
	Count(ctx context.Context) (int64, error)
}

// GormUserRepository implements UserStore on gorm.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findBy(ctx, "username", username)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *GormUserRepository) FindByGithub(ctx context.Context, githubID string) (*models.User, error) {
	return r.findBy(ctx, "oauth_github", githubID)
}

func (r *GormUserRepository) findBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where(column+" = ?", value).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormUserRepository) Insert(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *GormUserRepository) Update(ctx context.Context, user *models.User, fields ...string) error {
	if user.ID == 0 {
		return fmt.Errorf("update user: missing id")
	}
	if len(fields) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(user).Select(fields).Updates(user)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrUserNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}
