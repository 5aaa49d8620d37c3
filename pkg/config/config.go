package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Port            string        `yaml:"port"`
	Env             string        `yaml:"env"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	BaseURL         string        `yaml:"base_url"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	MaxBodySize     int64         `yaml:"max_body_size"`
	AssetsRoot      string        `yaml:"assets_root"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	// Engine is one of sqlite, postgres, mysql.
	Engine     string        `yaml:"engine"`
	Path       string        `yaml:"path"`
	Host       string        `yaml:"host"`
	Port       string        `yaml:"port"`
	User       string        `yaml:"user"`
	Password   string        `yaml:"password"`
	Name       string        `yaml:"name"`
	SSLMode    string        `yaml:"ssl_mode"`
	MaxConns   int           `yaml:"max_conns"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// JWTConfig holds the token signing settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RateLimitConfig configures the sliding-window limiter.
type RateLimitConfig struct {
	Window        time.Duration `yaml:"window"`
	MaxRequests   int           `yaml:"max_requests"`
	Message       string        `yaml:"message"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// LoggingConfig configures pkg/logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// CacheConfig configures the user lookup cache.
type CacheConfig struct {
	// Backend is one of memory, redis, none.
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	MaxSize int           `yaml:"max_size"`
}

// RedisConfig holds the redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// VaultConfig points at the KV secret that holds the signing key.
type VaultConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
	Token   string `yaml:"token"`
	Mount   string `yaml:"mount"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
}

// StorageConfig selects where uploaded profile images go.
type StorageConfig struct {
	// Backend is one of local, s3.
	Backend     string `yaml:"backend"`
	LocalDir    string `yaml:"local_dir"`
	URLPrefix   string `yaml:"url_prefix"`
	MaxFileSize int64  `yaml:"max_file_size"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
}

// GitHubConfig enables the GitHub OAuth login when ClientID is set.
type GitHubConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether GitHub login is configured.
func (g GitHubConfig) Enabled() bool {
	return g.ClientID != "" && g.ClientSecret != ""
}

// GRPCConfig configures the gRPC health listener.
type GRPCConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    string `yaml:"port"`
}

// ObservabilityConfig toggles tracing and metrics.
type ObservabilityConfig struct {
	ServiceName   string        `yaml:"service_name"`
	Tracing       bool          `yaml:"tracing"`
	Metrics       bool          `yaml:"metrics"`
	HealthPeriod  time.Duration `yaml:"health_period"`
	StatsInterval time.Duration `yaml:"stats_interval"`
}

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	JWT           JWTConfig           `yaml:"jwt"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Logging       LoggingConfig       `yaml:"logging"`
	Cache         CacheConfig         `yaml:"cache"`
	Redis         RedisConfig         `yaml:"redis"`
	Vault         VaultConfig         `yaml:"vault"`
	Storage       StorageConfig       `yaml:"storage"`
	GitHub        GitHubConfig        `yaml:"github"`
	GRPC          GRPCConfig          `yaml:"grpc"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// DefaultRateLimitMessage is returned with every 429.
const DefaultRateLimitMessage = "Too many requests from this IP, please try again later."

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Env:             "development",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
			MaxBodySize:     10 << 20,
			AssetsRoot:      "/static/assets",
		},
		Database: DatabaseConfig{
			Engine:     "sqlite",
			Path:       "db.sqlite3",
			Host:       "localhost",
			Port:       "3306",
			User:       "appseed_db_usr",
			Name:       "appseed_db",
			SSLMode:    "disable",
			MaxConns:   20,
			Retries:    5,
			RetryDelay: 5 * time.Second,
		},
		JWT: JWTConfig{
			Secret: "S#perS3crEt_007",
			Expiry: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			Window:      15 * time.Minute,
			MaxRequests: 100,
			Message:     DefaultRateLimitMessage,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Cache: CacheConfig{
			Backend: "memory",
			TTL:     5 * time.Minute,
			MaxSize: 1000,
		},
		Redis: RedisConfig{
			Addr: "localhost:6379",
		},
		Vault: VaultConfig{
			Mount: "secret",
			Path:  "admin-dashboard",
			Key:   "jwt_secret",
		},
		Storage: StorageConfig{
			Backend:     "local",
			LocalDir:    "static/assets/img/profile_uploads",
			URLPrefix:   "img/profile_uploads",
			MaxFileSize: 5 << 20,
		},
		GRPC: GRPCConfig{
			Port: "9090",
		},
		Observability: ObservabilityConfig{
			ServiceName:   "admin-dashboard",
			Metrics:       true,
			HealthPeriod:  30 * time.Second,
			StatsInterval: 5 * time.Second,
		},
	}
}

// Load builds a Config from defaults, the optional YAML file named by
// CONFIG_FILE, and finally the environment (including a .env file).
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnvString("PORT", c.Server.Port)
	c.Server.Env = getEnvString("APP_ENV", c.Server.Env)
	c.Server.ReadTimeout = getEnvDuration("SERVER_READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvDuration("SERVER_WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)
	c.Server.BaseURL = getEnvString("BASE_URL", c.Server.BaseURL)
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:" + c.Server.Port
	}
	c.Server.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Server.MaxBodySize = getEnvInt64("MAX_BODY_SIZE", c.Server.MaxBodySize)
	c.Server.AssetsRoot = getEnvString("ASSETS_ROOT", c.Server.AssetsRoot)

	c.Database.Engine = strings.ToLower(getEnvString("DB_ENGINE", c.Database.Engine))
	c.Database.Path = getEnvString("DB_PATH", c.Database.Path)
	c.Database.Host = getEnvString("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvString("DB_PORT", c.Database.Port)
	c.Database.User = getEnvString("DB_USERNAME", c.Database.User)
	c.Database.Password = getEnvString("DB_PASS", c.Database.Password)
	c.Database.Name = getEnvString("DB_NAME", c.Database.Name)
	c.Database.SSLMode = getEnvString("DB_SSL_MODE", c.Database.SSLMode)
	c.Database.MaxConns = getEnvInt("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.Retries = getEnvInt("DB_RETRIES", c.Database.Retries)
	c.Database.RetryDelay = getEnvDuration("DB_RETRY_DELAY", c.Database.RetryDelay)

	c.JWT.Secret = getEnvString("SECRET_KEY", c.JWT.Secret)
	c.JWT.Expiry = getEnvDuration("JWT_EXPIRY", c.JWT.Expiry)

	c.RateLimit.Window = getEnvDuration("RATE_LIMIT_WINDOW", c.RateLimit.Window)
	c.RateLimit.MaxRequests = getEnvInt("RATE_LIMIT_MAX", c.RateLimit.MaxRequests)
	c.RateLimit.Message = getEnvString("RATE_LIMIT_MESSAGE", c.RateLimit.Message)
	c.RateLimit.SweepInterval = getEnvDuration("RATE_LIMIT_SWEEP", c.RateLimit.SweepInterval)

	c.Logging.Level = getEnvString("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnvString("LOG_FORMAT", c.Logging.Format)

	c.Cache.Backend = getEnvString("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.TTL = getEnvDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", c.Cache.MaxSize)

	c.Redis.Addr = getEnvString("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getEnvString("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Vault.Enabled = getEnvBool("VAULT_ENABLED", c.Vault.Enabled)
	c.Vault.Address = getEnvString("VAULT_ADDR", c.Vault.Address)
	c.Vault.Token = getEnvString("VAULT_TOKEN", c.Vault.Token)
	c.Vault.Mount = getEnvString("VAULT_MOUNT", c.Vault.Mount)
	c.Vault.Path = getEnvString("VAULT_SECRET_PATH", c.Vault.Path)
	c.Vault.Key = getEnvString("VAULT_SECRET_KEY", c.Vault.Key)

	c.Storage.Backend = getEnvString("STORAGE_BACKEND", c.Storage.Backend)
	c.Storage.LocalDir = getEnvString("UPLOAD_DIR", c.Storage.LocalDir)
	c.Storage.URLPrefix = getEnvString("UPLOAD_URL_PREFIX", c.Storage.URLPrefix)
	c.Storage.MaxFileSize = getEnvInt64("UPLOAD_MAX_SIZE", c.Storage.MaxFileSize)
	c.Storage.S3Bucket = getEnvString("S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Region = getEnvString("S3_REGION", c.Storage.S3Region)
	c.Storage.S3Endpoint = getEnvString("S3_ENDPOINT", c.Storage.S3Endpoint)
	c.Storage.S3AccessKey = getEnvString("S3_ACCESS_KEY", c.Storage.S3AccessKey)
	c.Storage.S3SecretKey = getEnvString("S3_SECRET_KEY", c.Storage.S3SecretKey)

	c.GitHub.ClientID = getEnvString("GITHUB_ID", c.GitHub.ClientID)
	c.GitHub.ClientSecret = getEnvString("GITHUB_SECRET", c.GitHub.ClientSecret)
	c.GitHub.RedirectURL = getEnvString("GITHUB_REDIRECT_URL", c.GitHub.RedirectURL)
	if c.GitHub.RedirectURL == "" {
		c.GitHub.RedirectURL = c.Server.BaseURL + "/api/auth/github/callback"
	}

	c.GRPC.Enabled = getEnvBool("GRPC_ENABLED", c.GRPC.Enabled)
	c.GRPC.Port = getEnvString("GRPC_PORT", c.GRPC.Port)

	c.Observability.ServiceName = getEnvString("SERVICE_NAME", c.Observability.ServiceName)
	c.Observability.Tracing = getEnvBool("TRACING_ENABLED", c.Observability.Tracing)
	c.Observability.Metrics = getEnvBool("METRICS_ENABLED", c.Observability.Metrics)
	c.Observability.HealthPeriod = getEnvDuration("HEALTH_CHECK_PERIOD", c.Observability.HealthPeriod)
	c.Observability.StatsInterval = getEnvDuration("STATS_PUSH_INTERVAL", c.Observability.StatsInterval)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Engine {
	case "sqlite", "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_ENGINE %q", c.Database.Engine)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}
	if c.RateLimit.MaxRequests <= 0 {
		return fmt.Errorf("rate limit max must be positive, got %d", c.RateLimit.MaxRequests)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("SECRET_KEY must not be empty")
	}
	if c.JWT.Expiry <= 0 {
		return fmt.Errorf("token expiry must be positive, got %s", c.JWT.Expiry)
	}
	if c.Observability.HealthPeriod <= 0 {
		return fmt.Errorf("health check period must be positive, got %s", c.Observability.HealthPeriod)
	}
	if c.Observability.StatsInterval <= 0 {
		return fmt.Errorf("stats push interval must be positive, got %s", c.Observability.StatsInterval)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}
