// Package config defines the global configuration structure for the Plara
// payment intermediary. Configuration is loaded once at process startup and is
// immutable thereafter. It follows 12-Factor App principles by strictly
// separating code from configuration.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File (Lowest)
//
// Any missing required value or invalid format causes the application to exit
// immediately on startup (fail fast).
package config

import "plara/internal/types"

// SecretString is an alias for types.SecretString, the redacted secret type
// used throughout configuration to prevent accidental logging of sensitive
// values.
type SecretString = types.SecretString

// Polar API base URLs selected by the ENVIRONMENT setting when POLAR_API_BASE
// is not set explicitly.
const (
	polarAPIBaseProduction = "https://api.polar.sh/v1"
	polarAPIBaseSandbox    = "https://sandbox-api.polar.sh/v1"
)

// Config is the top-level configuration struct. It is populated once during
// process initialization and never modified. Sub-components receive only the
// specific config subsets they require.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development" validate:"required,oneof=development sandbox production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Server   ServerConfig
	Polar    PolarConfig
	Security SecurityConfig
}

// ServerConfig holds HTTP server and storefront URL configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	// FrontendURL is the storefront base used to build the checkout success
	// redirect (no trailing slash), e.g. http://localhost:5173.
	FrontendURL string `envconfig:"FRONTEND_URL" default:"http://localhost:5173" validate:"required,url"`
}

// PolarConfig holds the Polar API credentials and endpoint configuration.
type PolarConfig struct {
	AccessToken SecretString `envconfig:"POLAR_ACCESS_TOKEN" validate:"required"`
	// WebhookSecret may be left empty; the webhook endpoint then fails closed
	// (rejects all deliveries) rather than skipping verification.
	WebhookSecret  SecretString `envconfig:"POLAR_WEBHOOK_SECRET"`
	OrganizationID string       `envconfig:"POLAR_ORGANIZATION_ID" validate:"required"`
	// BaseURL overrides the API endpoint; when empty it is derived from
	// ENVIRONMENT (sandbox vs production) by APIBase.
	BaseURL string `envconfig:"POLAR_API_BASE" validate:"omitempty,url"`
}

// SecurityConfig holds CORS settings for the storefront origins.
type SecurityConfig struct {
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173,http://127.0.0.1:5173"`
}

// APIBase returns the effective Polar API base URL: the explicit override if
// configured, otherwise the production endpoint for ENVIRONMENT=production
// and the sandbox endpoint for everything else. Development traffic must
// never reach the live API by accident.
func (c *Config) APIBase() string {
	if c.Polar.BaseURL != "" {
		return c.Polar.BaseURL
	}
	if c.Environment == "production" {
		return polarAPIBaseProduction
	}
	return polarAPIBaseSandbox
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
