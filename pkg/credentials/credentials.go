// Package credentials stores the CAPTCHA solver token outside the config file.
//
// Tokens are kept per provider. The Manager tries the system keychain first,
// then an encrypted file under the user config directory, then the environment.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Token is a CAPTCHA solver API key
type Token struct {
	Provider     string    `json:"provider"`
	Value        string    `json:"value"`
	LastModified time.Time `json:"last_modified"`
}

// Store is implemented by every token backend
type Store interface {
	// Store saves the token for its provider
	Store(token *Token) error

	// Retrieve gets the token for a provider
	Retrieve(provider string) (*Token, error)

	// Delete removes the token for a provider
	Delete(provider string) error

	// Exists checks if a token exists for a provider
	Exists(provider string) bool
}

// Manager handles token storage with fallback backends
type Manager struct {
	stores []Store
}

// NewManager creates a manager over the keychain, the encrypted file and the environment
func NewManager() (*Manager, error) {
	var stores []Store

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves the token in the first store that accepts it
func (m *Manager) Store(token *Token) error {
	if token == nil || strings.TrimSpace(token.Provider) == "" {
		return errors.New("provider is required")
	}
	if strings.TrimSpace(token.Value) == "" {
		return errors.New("token is required")
	}

	token.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(token)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store token: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the token from the first store that has it
func (m *Manager) Retrieve(provider string) (*Token, error) {
	for _, store := range m.stores {
		if token, err := store.Retrieve(provider); err == nil && token != nil {
			return token, nil
		}
	}
	return nil, fmt.Errorf("%w for provider: %s", ErrTokenNotFound, provider)
}

// Delete removes the token from every store holding it
func (m *Manager) Delete(provider string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(provider); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrTokenNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete token: %w", lastErr)
	}
	return fmt.Errorf("%w for provider: %s", ErrTokenNotFound, provider)
}

// Resolve returns explicit when set, otherwise the stored token for provider, otherwise "".
// Lookup failures are not errors: a missing token only disables CAPTCHA solving.
func (m *Manager) Resolve(explicit, provider string) string {
	if explicit != "" {
		return explicit
	}
	if m == nil {
		return ""
	}
	token, err := m.Retrieve(provider)
	if err != nil {
		return ""
	}
	return token.Value
}

// ConfigDir returns the per-user ttscraper directory, creating it if needed
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "ttscraper")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "ttscraper")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "ttscraper")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "ttscraper")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy of the token with the value masked
func Sanitize(token *Token) *Token {
	if token == nil {
		return nil
	}
	return &Token{
		Provider:     token.Provider,
		Value:        maskString(token.Value),
		LastModified: token.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrInvalidToken     = errors.New("invalid token")
	ErrStoreUnavailable = errors.New("token store unavailable")
)
