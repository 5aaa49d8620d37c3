package service

import (
	"context"
	"errors"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/repository"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/jwt"
)

// Authenticator resolves the user behind an Authorization header.
type Authenticator struct {
	tokens *jwt.Service
	users  repository.UserStore
}

// NewAuthenticator creates a token authenticator backed by users.
func NewAuthenticator(tokens *jwt.Service, users repository.UserStore) *Authenticator {
	return &Authenticator{tokens: tokens, users: users}
}

// Authenticate returns the user named by a valid bearer token. Failures are
// *apperrors.AppError values with a reason-specific 401.
func (a *Authenticator) Authenticate(ctx context.Context, authorization string) (*models.User, error) {
	token := jwt.BearerToken(authorization)
	if token == "" {
		return nil, apperrors.TokenMissing()
	}

	claims, err := a.tokens.ValidateToken(token)
	switch {
	case errors.Is(err, jwt.ErrExpiredToken):
		return nil, apperrors.TokenExpired()
	case errors.Is(err, jwt.ErrMissingToken):
		return nil, apperrors.TokenMissing()
	case err != nil:
		return nil, apperrors.TokenInvalid()
	}

	user, err := a.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.UserNotFound()
		}
		return nil, apperrors.Internal(err)
	}
	return user, nil
}
