package di

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"admin-dashboard/backend/internal/models"
	"admin-dashboard/backend/internal/repository"
	"admin-dashboard/backend/internal/service"
	"admin-dashboard/backend/internal/ws"
	"admin-dashboard/backend/pkg/cache"
	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/health"
	"admin-dashboard/backend/pkg/jwt"
	"admin-dashboard/backend/pkg/logger"
	"admin-dashboard/backend/pkg/middleware"
	"admin-dashboard/backend/pkg/oauth"
	"admin-dashboard/backend/pkg/observability"
	"admin-dashboard/backend/pkg/pipeline"
	"admin-dashboard/backend/pkg/resilience"
	"admin-dashboard/backend/pkg/scheduler"
	"admin-dashboard/backend/pkg/secrets"
	"admin-dashboard/backend/pkg/storage"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Container holds all the dependencies for the application
type Container struct {
	Config *config.Config
	DB     *gorm.DB
	Logger *logger.Logger
	Redis  *redis.Client

	Secrets       secrets.Manager
	JWTService    *jwt.Service
	Users         repository.UserStore
	UserService   *service.UserService
	Authenticator *service.Authenticator
	Stats         *service.StatsService

	APILimiter *middleware.RateLimiter
	Metrics    *observability.Metrics
	Requests   *observability.RequestTracker
	Pipeline   *pipeline.Pipeline

	Files     storage.FileStore
	GitHub    *oauth.GitHub
	LiveStats *ws.Handler

	Health    *health.Checker
	Scheduler *scheduler.Scheduler

	closers []func() error
}

// Option customises container construction, mostly for tests.
type Option func(*options)

type options struct {
	githubOpts []oauth.Option
	now        func() time.Time
}

// WithGitHubOptions forwards options to the GitHub provider.
func WithGitHubOptions(opts ...oauth.Option) Option {
	return func(o *options) { o.githubOpts = append(o.githubOpts, opts...) }
}

// WithClock sets the clock used for token issue and verification.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New wires every component from cfg on top of an open database.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *logger.Logger, opts ...Option) (*Container, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{Config: cfg, DB: db, Logger: log}

	// Signing secret: Vault first, then configuration.
	manager, err := secrets.New(cfg.Vault, secrets.Static{cfg.Vault.Key: cfg.JWT.Secret}, log)
	if err != nil {
		return nil, fmt.Errorf("secrets: %w", err)
	}
	c.Secrets = manager
	signingKey := manager.GetSecretWithDefault(ctx, cfg.Vault.Key, cfg.JWT.Secret)
	c.JWTService = jwt.NewService(signingKey, cfg.JWT.Expiry, jwt.WithClock(o.now))

	users, err := c.userStore(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Users = users
	c.UserService = service.NewUserService(users, c.JWTService, log)
	c.Authenticator = service.NewAuthenticator(c.JWTService, users)

	c.APILimiter = middleware.NewRateLimiter(log, middleware.OptionsFromConfig(cfg.RateLimit))
	c.Requests = observability.NewDailyTracker()
	c.Stats = service.NewStatsService(c.UserService, c.APILimiter.ClientCount, c.Requests.CountNow)

	if cfg.Observability.Metrics {
		m, err := observability.NewMetrics(prometheus.NewRegistry(), c.APILimiter.ClientCount)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("metrics: %w", err)
		}
		c.Metrics = m
		c.closers = append(c.closers, func() error { return m.Shutdown(context.Background()) })
	}
	c.Pipeline = pipeline.New(c.Metrics)

	files, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("storage: %w", err)
	}
	c.Files = files

	c.Health = health.NewChecker(log)
	if sqlDB, err := db.DB(); err == nil {
		c.Health.RegisterDatabaseCheck(sqlDB)
	}
	if c.Redis != nil {
		c.Health.RegisterPingCheck("redis", func(ctx context.Context) error {
			return c.Redis.Ping(ctx).Err()
		})
	}

	if cfg.GitHub.Enabled() {
		breaker := resilience.NewCircuitBreaker(resilience.DefaultConfig("github"), log)
		c.GitHub = oauth.NewGitHub(cfg.GitHub, breaker, log, o.githubOpts...)
		c.Health.RegisterCheck("github", false, func(context.Context) (health.Status, string, error) {
			if breaker.State() == resilience.StateOpen {
				return health.StatusDegraded, "GitHub circuit is open", nil
			}
			return health.StatusUp, "GitHub circuit is closed", nil
		})
	}

	c.LiveStats = ws.NewHandler(c.Stats, cfg.Observability.StatsInterval, originChecker(cfg.Server.AllowedOrigins))
	c.closers = append(c.closers, c.LiveStats.Close)
	c.Health.RegisterCheck("live_stats", false, func(context.Context) (health.Status, string, error) {
		return health.StatusUp, fmt.Sprintf("%d open streams", c.LiveStats.ActiveConnections()), nil
	})

	c.Scheduler = scheduler.New(log)
	sweep := cfg.RateLimit.SweepInterval
	if sweep <= 0 {
		sweep = c.APILimiter.SweepInterval()
	}
	if err := c.Scheduler.Every("rate-limit-sweep", sweep, func(context.Context) { c.APILimiter.SweepNow() }); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.Scheduler.Every("health-checks", cfg.Observability.HealthPeriod, c.Health.RunChecks); err != nil {
		c.Close()
		return nil, err
	}

	return c, nil
}

// userStore builds the GORM repository behind the configured cache.
func (c *Container) userStore(ctx context.Context) (repository.UserStore, error) {
	cfg := c.Config
	var store repository.UserStore = repository.NewGormUserRepository(c.DB)

	switch cfg.Cache.Backend {
	case "", "none":
		return store, nil
	case "memory":
		return repository.NewCachedUserStore(store, cache.NewLRU[models.User](cfg.Cache.MaxSize, cfg.Cache.TTL)), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		c.Redis = client
		c.closers = append(c.closers, client.Close)
		return repository.NewCachedUserStore(store, cache.NewRedis[models.User](client, "user:", cfg.Cache.TTL, c.Logger)), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// originChecker mirrors the CORS origin list for websocket upgrades.
func originChecker(allowed []string) func(*http.Request) bool {
	for _, o := range allowed {
		if o == "*" {
			return nil
		}
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Close releases the resources the container opened, in reverse order.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
