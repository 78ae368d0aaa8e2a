package config

import "time"

// RedisConfig contains Redis configuration for the job store and event bus.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelPort       string   `env:"SENTINEL_PORT"        envDefault:"26379"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:"localhost:26379"`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
}

// JobsConfig contains job store configuration.
type JobsConfig struct {
	// KeyPrefix is prepended to every job store key ("job:<jobId>").
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"job:"`

	// TTL is the job record expiration window. Records are never deleted
	// explicitly; the store discards them after this duration.
	TTL time.Duration `env:"TTL" envDefault:"24h"`
}

// Sanitize applies guardrails to job store configuration values.
func (j *JobsConfig) Sanitize() {
	if j.KeyPrefix == "" {
		j.KeyPrefix = "job:"
	}
	// Records must outlive resolution; anything below a minute is a misconfiguration.
	if j.TTL < time.Minute {
		j.TTL = 24 * time.Hour
	}
}

// ArchiveConfig contains the optional PostgreSQL archive database configuration.
// When disabled, terminal job outcomes are not recorded outside the job store.
type ArchiveConfig struct {
	Enabled  bool   `env:"ENABLED"     envDefault:"false"`
	Host     string `env:"DB_HOST"     envDefault:"localhost"`
	Port     int    `env:"DB_PORT"     envDefault:"5432"`
	User     string `env:"DB_USER"     envDefault:"resolver"`
	Password string `env:"DB_PASSWORD" envDefault:"resolver"`
	Name     string `env:"DB_NAME"     envDefault:"resolver"`
	SSLMode  string `env:"DB_SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
}
