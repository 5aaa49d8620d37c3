// Package secrets resolves sensitive settings, preferring HashiCorp Vault and
// falling back to values from the environment.
package secrets

import (
	"context"
	"errors"
)

// Common errors
var (
	ErrSecretNotFound = errors.New("secret not found")
	ErrNoVaultToken   = errors.New("no vault token provided")
	ErrNoVaultAddress = errors.New("no vault address provided")
)

// Manager provides access to secrets from various sources
type Manager interface {
	// GetSecret retrieves a secret by key
	GetSecret(ctx context.Context, key string) (string, error)

	// GetSecretWithDefault retrieves a secret with a default value if not found
	GetSecretWithDefault(ctx context.Context, key, defaultValue string) string
}

// Static serves secrets from a fixed map, usually built from config.
type Static map[string]string

// GetSecret returns the named value. Empty values count as missing.
func (s Static) GetSecret(_ context.Context, key string) (string, error) {
	if v := s[key]; v != "" {
		return v, nil
	}
	return "", ErrSecretNotFound
}

// GetSecretWithDefault returns the named value or defaultValue.
func (s Static) GetSecretWithDefault(ctx context.Context, key, defaultValue string) string {
	if v, err := s.GetSecret(ctx, key); err == nil {
		return v
	}
	return defaultValue
}
