// Package config loads the API's file-based configuration.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"teamhub/pkg/ratelimit"
)

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// AppEntry is one registered application.
type AppEntry struct {
	ID string `yaml:"id"`

	// KeySHA256 is the hex SHA-256 of the app's API key. Plain keys are
	// never stored.
	KeySHA256 string `yaml:"key_sha256"`

	// RequestsPerMinute overrides the default limit when positive.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AppsConfig represents the app registry file.
type AppsConfig struct {
	Apps []AppEntry `yaml:"apps"`

	// PublicEndpoints bypass identity resolution and app rate limiting.
	PublicEndpoints []string `yaml:"public_endpoints"`
}

// AppRegistry resolves API keys to rate limit identities.
// It is immutable after loading and safe for concurrent use.
type AppRegistry struct {
	byHash map[string]ratelimit.AppIdentity
	public []string
}

// LoadAppRegistry loads the app registry from a YAML file.
// The path parameter is expected to come from a trusted source (environment or hardcoded default).
func LoadAppRegistry(path string, defaultRPM int) (*AppRegistry, error) {
	// #nosec G304 -- path is provided by trusted source (APPS_CONFIG), not user input
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read apps config: %w", err)
	}
	return ParseAppRegistry(data, defaultRPM)
}

// ParseAppRegistry parses and validates registry YAML. Apps without a limit
// get defaultRPM.
func ParseAppRegistry(data []byte, defaultRPM int) (*AppRegistry, error) {
	var config AppsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse apps config: %w", err)
	}

	if err := validateAppsConfig(&config); err != nil {
		return nil, fmt.Errorf("apps config validation failed: %w", err)
	}

	registry := &AppRegistry{
		byHash: make(map[string]ratelimit.AppIdentity, len(config.Apps)),
		public: config.PublicEndpoints,
	}
	for _, app := range config.Apps {
		rpm := app.RequestsPerMinute
		if rpm == 0 {
			rpm = defaultRPM
		}
		registry.byHash[strings.ToLower(app.KeySHA256)] = ratelimit.AppIdentity{
			ID:                app.ID,
			RequestsPerMinute: rpm,
		}
	}
	return registry, nil
}

// validateAppsConfig validates the loaded configuration.
func validateAppsConfig(config *AppsConfig) error {
	ids := make(map[string]struct{}, len(config.Apps))
	hashes := make(map[string]struct{}, len(config.Apps))

	for i, app := range config.Apps {
		if strings.TrimSpace(app.ID) == "" {
			return fmt.Errorf("apps[%d]: id is required", i)
		}
		if _, dup := ids[app.ID]; dup {
			return fmt.Errorf("apps[%d]: duplicate id %q", i, app.ID)
		}
		ids[app.ID] = struct{}{}

		hash := strings.ToLower(app.KeySHA256)
		if !sha256Hex.MatchString(hash) {
			return fmt.Errorf("apps[%d] (%s): key_sha256 must be 64 hex characters", i, app.ID)
		}
		if _, dup := hashes[hash]; dup {
			return fmt.Errorf("apps[%d] (%s): duplicate key_sha256", i, app.ID)
		}
		hashes[hash] = struct{}{}

		if app.RequestsPerMinute < 0 {
			return fmt.Errorf("apps[%d] (%s): requests_per_minute must not be negative", i, app.ID)
		}
	}

	for _, p := range config.PublicEndpoints {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("public endpoint %q must start with /", p)
		}
	}
	return nil
}

// HashAPIKey returns the hex SHA-256 of key, as stored in key_sha256.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Lookup returns the identity registered for apiKey.
func (r *AppRegistry) Lookup(apiKey string) (*ratelimit.AppIdentity, bool) {
	if apiKey == "" {
		return nil, false
	}
	identity, ok := r.byHash[HashAPIKey(apiKey)]
	if !ok {
		return nil, false
	}
	return &identity, true
}

// Len returns the number of registered apps.
func (r *AppRegistry) Len() int {
	return len(r.byHash)
}

// PublicEndpoints returns the paths that skip identity resolution.
func (r *AppRegistry) PublicEndpoints() []string {
	return r.public
}
