package config

import (
	"time"

	"github.com/google/uuid"
)

// Default values for optional configuration fields.
const (
	DefaultNewsItem              = "MRN_STORY"
	DefaultDBPort                = 5432
	DefaultDBSSLMode             = "prefer"
	DefaultMaxConns              = 10
	DefaultMinConns              = 2
	DefaultBatchSize             = 200
	DefaultFlushInterval         = 1 * time.Second
	DefaultBufferSize            = 1000
	DefaultReconnectInitialDelay = 1 * time.Second
	DefaultReconnectMaxDelay     = 60 * time.Second
	DefaultSnapshotInterval      = 15 * time.Minute
	DefaultMetricsPort           = 9090
	DefaultMetricsPath           = "/metrics"
)

func (c *ArchiverConfig) applyDefaults() {
	// Instance defaults
	if c.Instance.ID == "" {
		c.Instance.ID = uuid.NewString()
	}

	// Watchlist defaults
	if c.Watchlist.News && c.Watchlist.NewsItem == "" {
		c.Watchlist.NewsItem = DefaultNewsItem
	}

	// Database defaults
	applyDBDefaults(&c.Database.Archive)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Reconnect defaults
	if c.Reconnect.InitialDelay == 0 {
		c.Reconnect.InitialDelay = DefaultReconnectInitialDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}

	// Snapshots defaults
	if c.Snapshots.Interval == 0 {
		c.Snapshots.Interval = DefaultSnapshotInterval
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
