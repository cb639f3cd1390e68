// Package worker runs the scheduled advisory job that recomputes irrigation
// advice for every saved plot.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds worker configuration.
type Config struct {
	// Interval between advisory runs when no Pub/Sub subscription is configured.
	Interval time.Duration

	// PageSize is the number of plots loaded per repository page.
	PageSize int

	// PlotTimeout bounds the advice computation for one plot.
	PlotTimeout time.Duration

	// ProbeLat and ProbeLon locate the weather fetch of the health check.
	ProbeLat float64
	ProbeLon float64

	// PubSubProjectID enables the Pub/Sub trigger when set.
	PubSubProjectID    string
	PubSubSubscription string
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Interval:           6 * time.Hour,
		PageSize:           100,
		PlotTimeout:        20 * time.Second,
		ProbeLat:           6.3654,
		ProbeLon:           2.4183,
		PubSubSubscription: "irrigation-advisory",
	}
}

// ConfigFromEnv overlays ADVISORY_INTERVAL, ADVISORY_PAGE_SIZE,
// ADVISORY_PLOT_TIMEOUT, PUBSUB_PROJECT_ID and PUBSUB_SUBSCRIPTION on the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if d, err := time.ParseDuration(os.Getenv("ADVISORY_INTERVAL")); err == nil && d > 0 {
		cfg.Interval = d
	}
	if n, err := strconv.Atoi(os.Getenv("ADVISORY_PAGE_SIZE")); err == nil && n > 0 {
		cfg.PageSize = n
	}
	if d, err := time.ParseDuration(os.Getenv("ADVISORY_PLOT_TIMEOUT")); err == nil && d > 0 {
		cfg.PlotTimeout = d
	}
	cfg.PubSubProjectID = os.Getenv("PUBSUB_PROJECT_ID")
	if s := os.Getenv("PUBSUB_SUBSCRIPTION"); s != "" {
		cfg.PubSubSubscription = s
	}
	return cfg
}
