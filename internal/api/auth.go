package api

import (
	"net/http"

	"admin-dashboard/backend/internal/service"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/pipeline"

	"github.com/gin-gonic/gin"
)

// MsgRegistered is returned on successful registration.
const MsgRegistered = "User registered successfully"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Login checks the credentials and returns a bearer token.
func (h *AuthHandler) Login(req *pipeline.Request) error {
	username, _ := req.Payload.Get("username")
	password, _ := req.Payload.Get("password")

	token, err := h.users.Login(req.Request.Context(), username, password)
	if err != nil {
		return serviceError(err)
	}

	logger.FromGin(req.Context).Info("User logged in", "username", username)
	req.JSON(http.StatusOK, token)
	return nil
}

// Register creates an account from the validated registration body.
func (h *AuthHandler) Register(req *pipeline.Request) error {
	username, _ := req.Payload.Get("username")
	email, _ := req.Payload.Get("email")
	password, _ := req.Payload.Get("password")

	if _, err := h.users.Register(req.Request.Context(), username, email, password); err != nil {
		return serviceError(err)
	}

	req.JSON(http.StatusCreated, gin.H{"message": MsgRegistered})
	return nil
}
