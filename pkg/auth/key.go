package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "keydist"
	keyFileSuffix  = "_key"
	fileMode       = 0600
)

// SaveKey stores the routing provider API key in the OS keychain,
// falling back to a file under the app home dir when no keychain is available.
func SaveKey(home, provider, key string) error {
	if provider == "" || key == "" {
		return errors.New("provider and key are required")
	}

	if err := keyring.Set(keyringService, provider, key); err != nil {
		slog.Warn("keychain unavailable, falling back to file", "error", err)
		return saveKeyFile(home, provider, key)
	}

	// Clean up legacy file if it exists
	os.Remove(keyFilePath(home, provider))

	return nil
}

// GetKey returns the stored API key for the given provider.
func GetKey(home, provider string) (string, error) {
	// Try keychain first
	key, err := keyring.Get(keyringService, provider)
	if err == nil && key != "" {
		return key, nil
	}

	// Fall back to file
	key, err = getKeyFile(home, provider)
	if err != nil {
		return "", fmt.Errorf("no API key stored for %s, run 'keydist auth --provider %s' first: %w",
			provider, provider, err)
	}

	// Migrate to keychain
	if migrateErr := keyring.Set(keyringService, provider, key); migrateErr == nil {
		slog.Info("migrated key from file to OS keychain", "provider", provider)
		os.Remove(keyFilePath(home, provider))
	}

	return key, nil
}

func keyFilePath(home, provider string) string {
	return path.Join(home, provider+keyFileSuffix)
}

func saveKeyFile(home, provider, key string) error {
	return os.WriteFile(keyFilePath(home, provider), []byte(key), fileMode)
}

func getKeyFile(home, provider string) (string, error) {
	b, err := os.ReadFile(keyFilePath(home, provider))
	if err != nil {
		return "", fmt.Errorf("reading key file: %w", err)
	}
	return string(b), nil
}
