package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - database.go: Redis job store and archive database configuration
//   - directory.go: External directory search API configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode, resolver, and sweeper configuration
type AppConfig struct {
	// IsDev controls development mode behavior (relaxed logging, etc.)
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Store configuration
	Redis   RedisConfig   `envPrefix:"REDIS_"`
	Jobs    JobsConfig    `envPrefix:"JOBS_"`
	Archive ArchiveConfig `envPrefix:"ARCHIVE_"`

	// External directory search API configuration
	Directory DirectoryConfig `envPrefix:"DIRECTORY_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Services is a comma-delimited list of enabled services.
	// Valid values: http, resolver, sweeper
	Services string `env:"SERVICES" envDefault:"http,resolver"`

	// Resolver worker configuration
	Resolver ResolverConfig

	// Sweeper configuration
	Sweeper SweeperConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.Jobs.Sanitize()
	c.Directory.Sanitize()
	c.HTTP.Sanitize()
	c.Resolver.Sanitize()
	c.Sweeper.Sanitize()
	c.Observability.Sanitize()

	// Check NODE_ENV for dev mode
	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback (common in frontend tooling).
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeHTTP]
}

// IsResolverEnabled returns true if the resolution worker service is enabled.
func (c *AppConfig) IsResolverEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeResolver]
}

// IsSweeperEnabled returns true if the stuck-job sweeper service is enabled.
func (c *AppConfig) IsSweeperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeSweeper]
}
