package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for the multi-tenant identity provider endpoints. The key discovery
// URL is the common-tenant key set; token endpoints are per-tenant under
// AuthorityBase.
const (
	DefaultAuthorityBase   = "https://login.microsoftonline.com"
	DefaultKeyDiscoveryURL = "https://login.microsoftonline.com/common/discovery/keys"
	DefaultGraphScope      = "https://graph.microsoft.com/.default"
)

type Config struct {
	// Server settings
	ServerAddr string

	// Confidential client credentials used for the on-behalf-of exchange
	ClientID     string
	ClientSecret string

	// Token validation
	ExpectedAudience string
	KeyDiscoveryURL  string

	// Identity provider authority base URL
	AuthorityBase string

	// Scopes used by the server-configured exchange variant
	DefaultScopes []string

	// Outbound HTTP
	HTTPTimeout time.Duration
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	return &Config{
		ServerAddr:       getEnv("SERVER_ADDR", ":8080"),
		ClientID:         getEnv("CLIENT_ID", ""),
		ClientSecret:     getEnv("CLIENT_SECRET", ""),
		ExpectedAudience: getEnv("EXPECTED_AUDIENCE", ""),
		KeyDiscoveryURL:  getEnv("KEY_DISCOVERY_URL", DefaultKeyDiscoveryURL),
		AuthorityBase:    getEnv("AUTHORITY_BASE", DefaultAuthorityBase),
		DefaultScopes:    getEnvList("DEFAULT_SCOPES", []string{DefaultGraphScope}),
		HTTPTimeout:      getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
	}
}

// Validate checks that the settings required to validate tokens and run the
// exchange are present. Endpoint URLs have working defaults and are not
// checked here.
func (c *Config) Validate() error {
	if c.ExpectedAudience == "" {
		return fmt.Errorf("EXPECTED_AUDIENCE is required")
	}
	if c.ClientID == "" {
		return fmt.Errorf("CLIENT_ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("CLIENT_SECRET is required")
	}
	if len(c.DefaultScopes) == 0 {
		return fmt.Errorf("DEFAULT_SCOPES must contain at least one scope")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
