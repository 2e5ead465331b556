package reconciler

import (
	"time"

	"github.com/slotworks/bookpay/internal/config"
)

// Config controls sweep cadence and batch sizes.
type Config struct {
	RunInterval   time.Duration
	BatchSize     int
	PendingMaxAge time.Duration
	JobTimeout    time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval:   time.Minute,
		BatchSize:     50,
		PendingMaxAge: 15 * time.Minute,
		JobTimeout:    5 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PendingMaxAge <= 0 {
		c.PendingMaxAge = defaults.PendingMaxAge
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaults.JobTimeout
	}
	return c
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval:   cfg.Reconcile.Interval,
		BatchSize:     cfg.Reconcile.BatchSize,
		PendingMaxAge: cfg.Reconcile.PendingMaxAge,
		JobTimeout:    cfg.Reconcile.JobTimeout,
	}.withDefaults()
}
