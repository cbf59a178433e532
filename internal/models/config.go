package models

import "time"

// Config represents the application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Ledger   LedgerConfig
	Inbox    InboxConfig
	Logging  LoggingConfig
	Metrics  MetricsConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Path             string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	ConnMaxIdleTime  time.Duration
	PingTimeout      time.Duration
	CreateDummyUsers bool
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxConnections  int
	MaxUploadBytes  int64
}

// LedgerConfig holds the posting policy of the ledger engine
type LedgerConfig struct {
	AllowOverdraft bool
	MaxRetries     int
	CategoryFile   string
}

// InboxConfig holds statement inbox watcher settings. An empty Dir disables the watcher.
type InboxConfig struct {
	Dir             string
	PollingInterval time.Duration
	CleanupInterval time.Duration
	Retention       time.Duration
	// SettleTime is how long a file must go unmodified before it is imported.
	// Zero imports files as soon as they appear.
	SettleTime time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// MetricsConfig holds Prometheus settings
type MetricsConfig struct {
	Namespace string
}
