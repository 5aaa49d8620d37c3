package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Column defaults of the users table.
const (
	DefaultPosition     = "Member"
	DefaultProfileImage = "img/default-avatar.png"
)

// User is a dashboard account.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email        string `gorm:"size:64;uniqueIndex;not null" json:"email"`
	Password     string `gorm:"size:255" json:"-"`
	OAuthGithub  string `gorm:"column:oauth_github;size:100" json:"-"`
	FirstName    string `gorm:"size:64" json:"first_name,omitempty"`
	LastName     string `gorm:"size:64" json:"last_name,omitempty"`
	Address      string `gorm:"size:128" json:"address,omitempty"`
	City         string `gorm:"size:64" json:"city,omitempty"`
	Country      string `gorm:"size:64" json:"country,omitempty"`
	PostalCode   string `gorm:"size:20" json:"postal_code,omitempty"`
	AboutMe      string `gorm:"type:text" json:"about_me,omitempty"`
	Position     string `gorm:"size:64;default:Member" json:"position"`
	ProfileImage string `gorm:"size:128;default:img/default-avatar.png" json:"profile_image"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName pins the table to the name the dashboard has always used.
func (User) TableName() string {
	return "users"
}

// ProfileResponse is the body of GET /api/profile.
type ProfileResponse struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// ProfileDetails is the body returned after a profile update.
type ProfileDetails struct {
	ID           uint   `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Bio          string `json:"bio"`
	Position     string `json:"position"`
	ProfileImage string `json:"profile_image"`
}

// ProfileUpdate holds the optional fields accepted by PUT /api/profile.
// Nil means "leave unchanged".
type ProfileUpdate struct {
	Name  *string
	Email *string
	Bio   *string
}

// Empty reports whether the update carries no changes.
func (p ProfileUpdate) Empty() bool {
	return p.Name == nil && p.Email == nil && p.Bio == nil
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	if hash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

func isHashed(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// BeforeCreate hashes a plaintext password and fills column defaults.
// Accounts created through GitHub have no password.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Password != "" && !isHashed(u.Password) {
		hashed, err := HashPassword(u.Password)
		if err != nil {
			return err
		}
		u.Password = hashed
	}

	u.Username = strings.TrimSpace(u.Username)
	u.Email = strings.TrimSpace(u.Email)
	if u.Position == "" {
		u.Position = DefaultPosition
	}
	if u.ProfileImage == "" {
		u.ProfileImage = DefaultProfileImage
	}
	return nil
}

// ToProfile converts a User to the GET /api/profile body.
func (u *User) ToProfile() ProfileResponse {
	return ProfileResponse{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
	}
}

// ToDetails converts a User to the extended profile body.
func (u *User) ToDetails() ProfileDetails {
	return ProfileDetails{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.FirstName,
		Bio:          u.AboutMe,
		Position:     u.Position,
		ProfileImage: u.ProfileImage,
	}
}
