package api

import (
	"errors"

	"admin-dashboard/backend/internal/service"
	apperrors "admin-dashboard/backend/pkg/errors"
)

// Upload failures.
const (
	MsgNoFilePart     = "No file part"
	MsgNoSelectedFile = "No selected file"
	MsgInvalidUpload  = "Invalid upload"
)

// serviceError maps a service failure onto the API error taxonomy.
func serviceError(err error) error {
	switch {
	case errors.Is(err, service.ErrUsernameTaken):
		return apperrors.UsernameTaken()
	case errors.Is(err, service.ErrEmailTaken):
		return apperrors.EmailTaken()
	case errors.Is(err, service.ErrInvalidCredentials):
		return apperrors.InvalidCredentials()
	case errors.Is(err, service.ErrUserNotFound):
		return apperrors.UserNotFound()
	default:
		return apperrors.Internal(err)
	}
}
