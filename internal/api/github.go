package api

import (
	"errors"
	"net/http"

	"admin-dashboard/backend/internal/service"
	apperrors "admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/oauth"
	"admin-dashboard/backend/pkg/pipeline"
)

const (
	stateCookie   = "oauth_state"
	stateLifetime = 600
	callbackPath  = "/api/auth/github"
)

// GitHubHandler runs the GitHub sign-in flow.
type GitHubHandler struct {
	github *oauth.GitHub
	users  *service.UserService
	secure bool
}

// NewGitHubHandler creates the handler. A nil provider means GitHub sign-in
// is not configured and both endpoints answer 404. secure marks the state
// cookie Secure.
func NewGitHubHandler(github *oauth.GitHub, users *service.UserService, secure bool) *GitHubHandler {
	return &GitHubHandler{github: github, users: users, secure: secure}
}

func oauthDisabled() error {
	return apperrors.NewNotFoundError(apperrors.CodeOAuthDisabled, "GitHub sign-in is not configured")
}

// Start redirects the browser to GitHub with a fresh state cookie.
func (h *GitHubHandler) Start(req *pipeline.Request) error {
	if h.github == nil {
		return oauthDisabled()
	}
	state := oauth.NewState()
	req.SetSameSite(http.SameSiteLaxMode)
	req.SetCookie(stateCookie, state, stateLifetime, callbackPath, "", h.secure, true)
	req.Redirect(http.StatusFound, h.github.AuthCodeURL(state))
	return nil
}

// Callback completes the flow and returns an API token for the linked account.
func (h *GitHubHandler) Callback(req *pipeline.Request) error {
	if h.github == nil {
		return oauthDisabled()
	}

	want, err := req.Cookie(stateCookie)
	if err != nil || want == "" || want != req.Query("state") {
		return apperrors.NewBadRequestError(apperrors.CodeOAuthFailed, "Invalid OAuth state")
	}
	req.SetCookie(stateCookie, "", -1, callbackPath, "", h.secure, true)

	gh, err := h.github.Exchange(req.Request.Context(), req.Query("code"))
	switch {
	case errors.Is(err, oauth.ErrMissingCode):
		return apperrors.NewBadRequestError(apperrors.CodeOAuthFailed, "Missing authorization code")
	case err != nil:
		return apperrors.NewBadGatewayError(apperrors.CodeOAuthFailed, "GitHub sign-in failed").Wrap(err)
	}

	token, err := h.users.LoginWithGitHub(req.Request.Context(), gh)
	if err != nil {
		return serviceError(err)
	}
	req.JSON(http.StatusOK, token)
	return nil
}
