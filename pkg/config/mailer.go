package config

import (
	"log/slog"
	"time"
)

// MailerConfig holds the outbound email provider settings.
type MailerConfig struct {
	Enabled     bool
	ProviderURL string
	APIKey      string
	From        string

	// RPS is the outbound request rate allowed towards the provider.
	RPS float64

	// Burst is the token bucket size for the outbound throttle.
	Burst int

	// HTTPTimeout bounds the HTTP client. Per-attempt deadlines come from
	// ResilienceConfig.Timeout.
	HTTPTimeout time.Duration
}

// LoadMailerConfig loads the email provider configuration.
//
// Environment variables:
//   - EMAIL_ENABLED (default: false)
//   - EMAIL_PROVIDER_URL: provider send endpoint
//   - EMAIL_API_KEY: bearer token for the provider
//   - EMAIL_FROM (default: no-reply@teamhub.local)
//   - EMAIL_RPS (default: 5)
//   - EMAIL_BURST (default: 1)
//
// Email is disabled, with a warning, when enabled without a provider URL.
func LoadMailerConfig() MailerConfig {
	config := MailerConfig{
		Enabled:     GetEnvBool("EMAIL_ENABLED", false),
		ProviderURL: GetEnvString("EMAIL_PROVIDER_URL", ""),
		APIKey:      GetEnvString("EMAIL_API_KEY", ""),
		From:        GetEnvString("EMAIL_FROM", "no-reply@teamhub.local"),
		RPS:         GetEnvFloat("EMAIL_RPS", 5),
		Burst:       positiveInt("EMAIL_BURST", 1),
		HTTPTimeout: positiveDuration("EMAIL_HTTP_TIMEOUT", 30*time.Second),
	}

	if config.RPS <= 0 {
		slog.Warn("invalid EMAIL_RPS, using default",
			slog.Float64("value", config.RPS),
			slog.Float64("default", 5))
		config.RPS = 5
	}

	if config.Enabled && config.ProviderURL == "" {
		slog.Warn("EMAIL_ENABLED is set without EMAIL_PROVIDER_URL, disabling email")
		config.Enabled = false
	}

	return config
}
