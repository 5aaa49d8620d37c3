package secrets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"admin-dashboard/backend/pkg/cache"
	"admin-dashboard/backend/pkg/config"
	"admin-dashboard/backend/pkg/logger"

	vault "github.com/hashicorp/vault/api"
)

const (
	vaultTimeout    = 10 * time.Second
	vaultMaxRetries = 3
	secretCacheTTL  = 5 * time.Minute
)

// VaultManager reads keys from one KV v2 secret. Keys that Vault does not
// hold are looked up in the fallback manager.
type VaultManager struct {
	client   *vault.Client
	mount    string
	path     string
	cache    cache.Cache[string]
	fallback Manager
	log      *logger.Logger
}

// NewVaultManager creates a new Vault manager instance
func NewVaultManager(cfg config.VaultConfig, fallback Manager, log *logger.Logger) (*VaultManager, error) {
	if cfg.Address == "" {
		return nil, ErrNoVaultAddress
	}
	if cfg.Token == "" {
		return nil, ErrNoVaultToken
	}
	if fallback == nil {
		fallback = Static{}
	}

	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address
	vaultConfig.Timeout = vaultTimeout
	vaultConfig.MaxRetries = vaultMaxRetries

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &VaultManager{
		client:   client,
		mount:    cfg.Mount,
		path:     cfg.Path,
		cache:    cache.NewLRU[string](64, secretCacheTTL),
		fallback: fallback,
		log:      log,
	}, nil
}

// GetSecret retrieves a secret from Vault, with fallback to the static source.
func (m *VaultManager) GetSecret(ctx context.Context, key string) (string, error) {
	if v, ok := m.cache.Get(ctx, key); ok {
		return v, nil
	}

	value, err := m.getFromVault(ctx, key)
	if errors.Is(err, ErrSecretNotFound) {
		m.log.Warn("Secret not found in Vault, falling back to environment", "key", key)
		return m.fallback.GetSecret(ctx, key)
	}
	if err != nil {
		return "", err
	}

	m.cache.Set(ctx, key, value)
	return value, nil
}

// GetSecretWithDefault retrieves a secret with a default value if not found
func (m *VaultManager) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	value, err := m.GetSecret(ctx, key)
	if err != nil {
		m.log.Warn("Failed to get secret, using default value",
			"key", key,
			"error", err.Error(),
		)
		return defaultValue
	}
	return value
}

func (m *VaultManager) getFromVault(ctx context.Context, key string) (string, error) {
	secret, err := m.client.KVv2(m.mount).Get(ctx, m.path)
	if errors.Is(err, vault.ErrSecretNotFound) {
		return "", ErrSecretNotFound
	}
	if err != nil {
		m.log.Error("Failed to read secret from Vault",
			"mount", m.mount,
			"path", m.path,
			"error", err.Error(),
		)
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return "", ErrSecretNotFound
	}
	value, ok := secret.Data[key].(string)
	if !ok || value == "" {
		return "", ErrSecretNotFound
	}
	return value, nil
}

// New returns the manager described by cfg: Vault when enabled, otherwise
// just the static fallback.
func New(cfg config.VaultConfig, fallback Static, log *logger.Logger) (Manager, error) {
	if !cfg.Enabled {
		return fallback, nil
	}
	return NewVaultManager(cfg, fallback, log)
}
