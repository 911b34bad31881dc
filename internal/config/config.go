// Package config loads and validates application configuration from
// environment variables and an optional config file.
package config

// Config holds all application configuration, grouped by concern.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Sched    SchedConfig    `mapstructure:"sched"`
}

// ServerConfig contains the sync server settings.
type ServerConfig struct {
	Port     int    `mapstructure:"port"      validate:"required,gt=0,lt=65536"`
	LogLevel string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
}

// DatabaseConfig contains the entity store connection settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains the sync server's credential settings. PasswordHash
// is a bcrypt hash of the sync account password.
type AuthConfig struct {
	JWTSecret    string `mapstructure:"jwt_secret"    validate:"required,min=32"`
	Username     string `mapstructure:"username"      validate:"required"`
	PasswordHash string `mapstructure:"password_hash" validate:"required"`
}

// SyncConfig contains the client-side settings for talking to a remote
// peer. Empty Endpoint means sync is not configured.
type SyncConfig struct {
	Endpoint       string `mapstructure:"endpoint"        validate:"omitempty,url"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	DeckName       string `mapstructure:"deck_name"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"gte=0"`
}

// SchedConfig carries the scheduling defaults applied when a deck row is
// first created. Once the deck exists its own row is authoritative and
// these values are ignored.
type SchedConfig struct {
	NewCardsPerDay   int  `mapstructure:"new_cards_per_day" validate:"gte=0"`
	LeechThreshold   int  `mapstructure:"leech_threshold"   validate:"gte=0"`
	LeechAutoSuspend bool `mapstructure:"leech_auto_suspend"`
}
