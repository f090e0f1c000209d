package credentials

import (
	"os"
	"time"
)

// TokenEnvVars are read in order by EnvironmentStore
var TokenEnvVars = []string{"TTSCRAPER_CAPTCHA_TOKEN", "RECAPTCHA_TOKEN"}

// EnvironmentStore reads the token from the environment. It is read-only and
// answers for any provider.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(token *Token) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(provider string) (*Token, error) {
	value := lookupEnvToken()
	if value == "" {
		return nil, ErrTokenNotFound
	}
	return &Token{Provider: provider, Value: value, LastModified: time.Now()}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(provider string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(provider string) bool {
	return lookupEnvToken() != ""
}

func lookupEnvToken() string {
	for _, name := range TokenEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}
