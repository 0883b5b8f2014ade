package config

import "time"

// ArchiverConfig is the root configuration for a news archiver instance.
type ArchiverConfig struct {
	Instance  InstanceConfig  `yaml:"instance"`
	Feed      FeedConfig      `yaml:"feed"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Database  DatabaseConfig  `yaml:"database"`
	Writers   WritersConfig   `yaml:"writers"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// InstanceConfig identifies this archiver.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// FeedConfig holds the Elektron WebSocket endpoint and login identity.
type FeedConfig struct {
	URL           string `yaml:"url"`
	User          string `yaml:"user"`
	ApplicationID string `yaml:"application_id"`
	Position      string `yaml:"position"`
	Service       string `yaml:"service"`
}

// WatchlistConfig names what the archiver subscribes to.
type WatchlistConfig struct {
	Items    []string `yaml:"items"`
	News     bool     `yaml:"news"`
	NewsItem string   `yaml:"news_item"`
}

// DatabaseConfig holds the archive store connection.
type DatabaseConfig struct {
	Archive DBConfig `yaml:"archive"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// ReconnectConfig controls redial behavior after the feed drops.
type ReconnectConfig struct {
	Enabled      bool          `yaml:"enabled"`
	InitialDelay time.Duration `yaml:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay"`
}

// SnapshotsConfig controls periodic full-image refreshes of the watchlist.
type SnapshotsConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
