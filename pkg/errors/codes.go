package errors

import (
	"net/http"
	"strconv"
	"time"
)

// Error codes returned in the "code" member of the error envelope.
const (
	CodeRateLimited        = "RATE_LIMIT_EXCEEDED"
	CodeValidationFailed   = "VALIDATION_FAILED"
	CodeTokenMissing       = "TOKEN_MISSING"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeTokenInvalid       = "TOKEN_INVALID"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeUsernameTaken      = "USERNAME_TAKEN"
	CodeEmailTaken         = "EMAIL_TAKEN"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidUpload      = "INVALID_UPLOAD"
	CodeOAuthDisabled      = "OAUTH_DISABLED"
	CodeOAuthFailed        = "OAUTH_FAILED"
	CodeUnavailable        = "SERVICE_UNAVAILABLE"
	CodeInternal           = "INTERNAL_ERROR"
	CodeServerPanic        = "SERVER_ERROR"
)

// Client-facing messages.
const (
	MsgTokenMissing       = "Token is missing"
	MsgTokenExpired       = "Token has expired"
	MsgTokenInvalid       = "Invalid token"
	MsgUserNotFound       = "User not found"
	MsgValidationFailed   = "Validation failed"
	MsgUsernameTaken      = "Username already registered"
	MsgEmailTaken         = "Email already registered"
	MsgInvalidCredentials = "Invalid credentials"
	MsgInternal           = "An unexpected error occurred"
)

// RateLimited builds the 429 rejection; retryAfter is rounded up to whole seconds.
func RateLimited(message string, retryAfter time.Duration) *AppError {
	secs := int((retryAfter + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return NewTooManyRequestsError(CodeRateLimited, message).
		WithHeader("Retry-After", strconv.Itoa(secs))
}

// ValidationFailed carries every failing field with all of its messages.
func ValidationFailed(fields map[string][]string) *AppError {
	return NewBadRequestError(CodeValidationFailed, MsgValidationFailed).WithDetails(fields)
}

func TokenMissing() *AppError {
	return NewUnauthorizedError(CodeTokenMissing, MsgTokenMissing)
}

func TokenExpired() *AppError {
	return NewUnauthorizedError(CodeTokenExpired, MsgTokenExpired)
}

func TokenInvalid() *AppError {
	return NewUnauthorizedError(CodeTokenInvalid, MsgTokenInvalid)
}

func UserNotFound() *AppError {
	return NewUnauthorizedError(CodeUserNotFound, MsgUserNotFound)
}

func UsernameTaken() *AppError {
	return NewBadRequestError(CodeUsernameTaken, MsgUsernameTaken)
}

func EmailTaken() *AppError {
	return NewBadRequestError(CodeEmailTaken, MsgEmailTaken)
}

func InvalidCredentials() *AppError {
	return NewUnauthorizedError(CodeInvalidCredentials, MsgInvalidCredentials)
}

// Internal hides cause from the client; it is still logged by ErrorHandler.
func Internal(cause error) *AppError {
	return NewError(http.StatusInternalServerError, CodeInternal, MsgInternal).Wrap(cause)
}
