// Package session holds the caller-side policy around a traci connection:
// connect timeouts, per-I/O deadlines and retrying the initial dial while
// the simulation peer is still starting up.
package session

import (
	"errors"
	"time"

	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

// BackoffConfig defines retry backoff behavior.
type BackoffConfig struct {
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
	Jitter       bool
}

// Config defines how a peer connection is established.
type Config struct {
	ConnectTimeout time.Duration
	// IOTimeout bounds each send and receive once connected. Zero disables
	// the deadline; a simulation step may legitimately take long.
	IOTimeout time.Duration
	// MaxConnectAttempts of zero or less retries until the context ends.
	MaxConnectAttempts int
	Backoff            BackoffConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout:     5 * time.Second,
		MaxConnectAttempts: 10,
		Backoff: BackoffConfig{
			InitialDelay: 250 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     5 * time.Second,
			Jitter:       true,
		},
	}
}

// WithDefaults fills unset fields from DefaultConfig.
func (c Config) WithDefaults() Config {
	d := DefaultConfig()
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = d.ConnectTimeout
	}
	if c.Backoff.InitialDelay <= 0 {
		c.Backoff.InitialDelay = d.Backoff.InitialDelay
	}
	if c.Backoff.Multiplier <= 0 {
		c.Backoff.Multiplier = d.Backoff.Multiplier
	}
	if c.Backoff.MaxDelay <= 0 {
		c.Backoff.MaxDelay = d.Backoff.MaxDelay
	}
	return c
}

func (c Config) Validate() error {
	if c.ConnectTimeout < 0 {
		return errors.New("session: connect timeout must not be negative")
	}
	if c.IOTimeout < 0 {
		return errors.New("session: io timeout must not be negative")
	}
	if c.Backoff.Multiplier != 0 && c.Backoff.Multiplier < 1 {
		return errors.New("session: backoff multiplier must be >= 1")
	}
	if c.Backoff.MaxDelay > 0 && c.Backoff.InitialDelay > c.Backoff.MaxDelay {
		return errors.New("session: backoff initial delay exceeds max delay")
	}
	return nil
}

// Options translates the timeouts into connection options.
func (c Config) Options() []traci.Option {
	return []traci.Option{
		traci.WithConnectTimeout(c.ConnectTimeout),
		traci.WithIOTimeout(c.IOTimeout),
	}
}
