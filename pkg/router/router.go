package router

import (
	"net/http"
	"path/filepath"
	"strings"

	"admin-dashboard/backend/internal/api"
	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/di"
	"admin-dashboard/backend/pkg/errors"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/middleware"
	"admin-dashboard/backend/pkg/pipeline"
	"admin-dashboard/backend/pkg/validator"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"
)

// APIVersion is reported in the OpenAPI document.
const APIVersion = "1.0.0"

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Config    *config.Config

	routes []route
}

// route is one guarded API endpoint; the same table drives registration and
// the OpenAPI document.
type route struct {
	method    string
	path      string
	summary   string
	tag       string
	policy    pipeline.Policy
	handler   pipeline.Handler
	responses map[int]string
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	cfg := container.Config

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(errors.ErrorHandler())
	engine.Use(errors.RecoveryWithLogger())
	engine.Use(middleware.SecurityHeaders())
	engine.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	engine.Use(middleware.MaxBodySize(cfg.Server.MaxBodySize))
	if container.Metrics != nil {
		engine.Use(container.Metrics.Middleware())
	}

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	c := r.Container

	authHandler := api.NewAuthHandler(c.UserService)
	statusHandler := api.NewStatusHandler(nil)
	profileHandler := api.NewProfileHandler(c.UserService, c.Files, r.Config.Storage.MaxFileSize)
	dashboardHandler := api.NewDashboardHandler(c.Stats)
	githubHandler := api.NewGitHubHandler(c.GitHub, c.UserService, r.Config.IsProduction())

	limited := pipeline.Policy{Limiter: c.APILimiter}
	secured := pipeline.Policy{Limiter: c.APILimiter, Auth: c.Authenticator}
	withSchema := func(p pipeline.Policy, s *validator.Schema) pipeline.Policy {
		p.Schema = s
		return p
	}

	r.routes = []route{
		{http.MethodGet, "/api/status", "API status", "system", limited, statusHandler.Status,
			map[int]string{200: "Service is online", 429: "Rate limit exceeded"}},
		{http.MethodPost, "/api/auth/login", "Log in with username and password", "auth", withSchema(limited, validator.Login), authHandler.Login,
			map[int]string{200: "Bearer token", 400: "Validation failed", 401: "Invalid credentials", 429: "Rate limit exceeded"}},
		{http.MethodPost, "/api/auth/register", "Register an account", "auth", withSchema(limited, validator.Registration), authHandler.Register,
			map[int]string{201: "Account created", 400: "Validation failed or already registered", 429: "Rate limit exceeded"}},
		{http.MethodGet, "/api/auth/github", "Start GitHub sign-in", "auth", limited, githubHandler.Start,
			map[int]string{302: "Redirect to GitHub", 404: "GitHub sign-in disabled", 429: "Rate limit exceeded"}},
		{http.MethodGet, "/api/auth/github/callback", "Complete GitHub sign-in", "auth", limited, githubHandler.Callback,
			map[int]string{200: "Bearer token", 400: "Invalid state or code", 502: "GitHub unavailable", 429: "Rate limit exceeded"}},
		{http.MethodGet, "/api/profile", "Current user's profile", "profile", secured, profileHandler.Get,
			map[int]string{200: "Profile", 401: "Authentication failed", 429: "Rate limit exceeded"}},
		{http.MethodPut, "/api/profile", "Update the current user's profile", "profile", withSchema(secured, validator.ProfileUpdate), profileHandler.Update,
			map[int]string{200: "Updated profile", 400: "Validation failed", 401: "Authentication failed", 429: "Rate limit exceeded"}},
		{http.MethodPost, "/api/profile/image", "Upload a profile image", "profile", secured, profileHandler.UploadImage,
			map[int]string{200: "Image stored", 400: "Missing or invalid file", 401: "Authentication failed", 429: "Rate limit exceeded"}},
		{http.MethodGet, "/api/dashboard/stats", "Dashboard statistics", "dashboard", secured, dashboardHandler.Stats,
			map[int]string{200: "Stats", 401: "Authentication failed", 429: "Rate limit exceeded"}},
	}

	apiGroup := r.Engine.Group("/api")
	apiGroup.Use(c.Requests.Middleware())
	for _, rt := range r.routes {
		apiGroup.Handle(rt.method, strings.TrimPrefix(rt.path, "/api"), c.Pipeline.Route(rt.policy, rt.handler))
	}

	doc := r.OpenAPI()
	apiGroup.GET("/openapi.json", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, doc)
	})

	r.Engine.GET("/ws/dashboard", c.Pipeline.Route(secured, c.LiveStats.Serve))

	r.setupHealthRoutes()

	if dir := assetsDir(r.Config.Storage); dir != "" {
		r.Engine.Use(static.Serve(r.Config.Server.AssetsRoot, static.LocalFile(dir, false)))
	}
}

// OpenAPI describes the registered API routes.
func (r *Router) OpenAPI() *openapi3.T {
	ops := make([]validator.Operation, 0, len(r.routes))
	for _, rt := range r.routes {
		ops = append(ops, validator.Operation{
			Method:    rt.method,
			Path:      rt.path,
			Summary:   rt.summary,
			Tag:       rt.tag,
			Schema:    rt.policy.Schema,
			Secured:   rt.policy.Auth != nil,
			Responses: rt.responses,
		})
	}
	return validator.Document("Admin Dashboard API", APIVersion, r.Config.Server.BaseURL, ops)
}

// assetsDir is the directory served under the assets root: the upload
// directory minus its public prefix. Empty unless images are stored locally.
func assetsDir(cfg config.StorageConfig) string {
	if cfg.Backend != "" && cfg.Backend != "local" {
		return ""
	}
	dir := filepath.ToSlash(filepath.Clean(cfg.LocalDir))
	prefix := strings.Trim(cfg.URLPrefix, "/")
	if prefix == "" || !strings.HasSuffix(dir, prefix) {
		return dir
	}
	return strings.TrimSuffix(strings.TrimSuffix(dir, prefix), "/")
}
