package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/resilience"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultAPIBase = "https://api.github.com"

// ErrMissingCode is returned when the callback carries no authorization code.
var ErrMissingCode = errors.New("missing authorization code")

// GitHubUser is the subset of the GitHub profile used to link accounts.
type GitHubUser struct {
	ID    string
	Login string
	Email string
	Name  string
}

// GitHub drives the authorization-code flow against GitHub.
type GitHub struct {
	oauth   *oauth2.Config
	apiBase string
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// Option customises the GitHub provider.
type Option func(*GitHub)

// WithEndpoint points the flow at a different authorization server.
func WithEndpoint(ep oauth2.Endpoint) Option {
	return func(g *GitHub) { g.oauth.Endpoint = ep }
}

// WithAPIBase points profile lookups at a different API host.
func WithAPIBase(base string) Option {
	return func(g *GitHub) { g.apiBase = base }
}

// NewGitHub builds the provider from configuration.
func NewGitHub(cfg config.GitHubConfig, breaker *resilience.CircuitBreaker, log *logger.Logger, opts ...Option) *GitHub {
	if log == nil {
		log = logger.GetGlobal()
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultConfig("github"), log)
	}
	g := &GitHub{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     github.Endpoint,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: defaultAPIBase,
		breaker: breaker,
		log:     log,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NewState returns an unguessable value for the state parameter.
func NewState() string {
	return uuid.NewString()
}

// AuthCodeURL is where the browser is sent to authorize the app.
func (g *GitHub) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// Exchange trades the callback code for a token and fetches the profile.
func (g *GitHub) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	if code == "" {
		return nil, ErrMissingCode
	}

	var user *GitHubUser
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		token, err := g.oauth.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("exchange code: %w", err)
		}
		client := g.oauth.Client(ctx, token)

		user, err = g.fetchUser(ctx, client)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (g *GitHub) fetchUser(ctx context.Context, client *http.Client) (*GitHubUser, error) {
	var profile struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := g.getJSON(ctx, client, "/user", &profile); err != nil {
		return nil, err
	}
	if profile.ID == 0 || profile.Login == "" {
		return nil, errors.New("github profile is missing id or login")
	}

	user := &GitHubUser{
		ID:    strconv.FormatInt(profile.ID, 10),
		Login: profile.Login,
		Email: profile.Email,
		Name:  profile.Name,
	}

	if user.Email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := g.getJSON(ctx, client, "/user/emails", &emails); err != nil {
			g.log.Debug("github email lookup failed", "login", user.Login, "error", err)
		}
		for _, e := range emails {
			if e.Primary && e.Verified {
				user.Email = e.Email
				break
			}
		}
	}
	return user, nil
}

func (g *GitHub) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("github %s returned %d: %s", path, resp.StatusCode, body)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
