package apiclient

import (
	"errors"
	"strings"
	"time"

	"github.com/tabsdata-labs/tabsdata-go/internal/platform/env"
)

// Config carries the connection settings for the Tabsdata server API.
// Either a static token or password credentials must be present.
type Config struct {
	BaseURL  string
	Token    string
	Username string
	Password string
	TokenURL string
	Timeout  time.Duration
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:  env.String("TD_API_URL", ""),
		Token:    env.String("TD_API_TOKEN", ""),
		Username: env.String("TD_API_USER", ""),
		Password: env.String("TD_API_PASSWORD", ""),
		TokenURL: env.String("TD_API_TOKEN_URL", ""),
		Timeout:  30 * time.Second,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return errors.New("api base url is required")
	}
	if strings.TrimSpace(c.Token) == "" {
		if strings.TrimSpace(c.Username) == "" || strings.TrimSpace(c.Password) == "" {
			return errors.New("api credentials are required: set a token or a username and password")
		}
	}
	return nil
}

// tokenURL returns the password-grant endpoint, defaulting to the
// server's own token route when not overridden.
func (c Config) tokenURL() string {
	if strings.TrimSpace(c.TokenURL) != "" {
		return c.TokenURL
	}
	return strings.TrimRight(strings.TrimSpace(c.BaseURL), "/") + "/auth/token"
}
