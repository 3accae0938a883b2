package credentials

import (
	"errors"
	"testing"

	"github.com/zalando/go-keyring"
)

func TestAPIKeyOrder(t *testing.T) {
	env := map[string]string{}
	stored := ""
	r := &Resolver{
		Getenv: func(k string) string { return env[k] },
		KeyringGet: func(service, user string) (string, error) {
			if service != ServiceName || user != DefaultUser {
				t.Errorf("keyring lookup %s/%s", service, user)
			}
			if stored == "" {
				return "", keyring.ErrNotFound
			}
			return stored, nil
		},
	}

	if key, err := r.APIKey(""); err != nil || key != "" {
		t.Errorf("empty: key=%q err=%v", key, err)
	}

	stored = "sk-ring"
	if key, _ := r.APIKey(""); key != "sk-ring" {
		t.Errorf("keyring: key=%q", key)
	}

	env[EnvAPIKey] = "sk-env"
	if key, _ := r.APIKey(""); key != "sk-env" {
		t.Errorf("env: key=%q", key)
	}

	if key, _ := r.APIKey("  sk-settings "); key != "sk-settings" {
		t.Errorf("settings: key=%q", key)
	}
}

func TestAPIKeyKeyringUnavailable(t *testing.T) {
	r := &Resolver{
		KeyringGet: func(string, string) (string, error) { return "", errors.New("no dbus") },
	}
	key, err := r.APIKey("")
	if err != nil || key != "" {
		t.Errorf("key=%q err=%v", key, err)
	}
}

func TestStoreUsesKeyring(t *testing.T) {
	keyring.MockInit()

	if err := Store("", ""); err == nil {
		t.Error("empty key should fail")
	}
	if err := Store("", "sk-stored"); err != nil {
		t.Fatal(err)
	}
	key, err := NewResolver(nil).APIKey("")
	if err != nil || key != "sk-stored" {
		t.Skipf("environment overrides keyring: key=%q err=%v", key, err)
	}
	if err := Delete(""); err != nil {
		t.Fatal(err)
	}
	if err := Delete(""); err != nil {
		t.Errorf("second delete: %v", err)
	}
}
