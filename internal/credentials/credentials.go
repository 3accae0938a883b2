// Package credentials resolves the API key for the hosted backend.
package credentials

import (
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keyring service under which keys are stored.
	ServiceName = "bmo"

	// DefaultUser is the keyring account of the hosted backend key.
	DefaultUser = "openai"

	// EnvAPIKey is consulted when the settings record has no key.
	EnvAPIKey = "OPENAI_API_KEY"
)

// Resolver looks up the key in the settings value, then the environment,
// then the OS keyring.
type Resolver struct {
	Getenv     func(string) string
	KeyringGet func(service, user string) (string, error)
	User       string
	Logger     *slog.Logger
}

// NewResolver returns a resolver backed by the process environment and the
// OS keyring.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		Getenv:     os.Getenv,
		KeyringGet: keyring.Get,
		User:       DefaultUser,
		Logger:     logger,
	}
}

// APIKey returns the first non-empty key. A missing or unreachable keyring
// yields an empty key, not an error.
func (r *Resolver) APIKey(fromSettings string) (string, error) {
	if key := strings.TrimSpace(fromSettings); key != "" {
		return key, nil
	}
	if r.Getenv != nil {
		if key := strings.TrimSpace(r.Getenv(EnvAPIKey)); key != "" {
			return key, nil
		}
	}
	if r.KeyringGet == nil {
		return "", nil
	}
	user := r.User
	if user == "" {
		user = DefaultUser
	}
	key, err := r.KeyringGet(ServiceName, user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) && r.Logger != nil {
			r.Logger.Debug("credentials: keyring lookup failed", "err", err)
		}
		return "", nil
	}
	return strings.TrimSpace(key), nil
}

// Store saves key in the OS keyring.
func Store(user, key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("API key is empty")
	}
	if user == "" {
		user = DefaultUser
	}
	return keyring.Set(ServiceName, user, key)
}

// Delete removes the stored key. Deleting a missing key is not an error.
func Delete(user string) error {
	if user == "" {
		user = DefaultUser
	}
	if err := keyring.Delete(ServiceName, user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return err
	}
	return nil
}
