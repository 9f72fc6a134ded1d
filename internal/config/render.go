package config

import (
	"github.com/pelletier/go-toml/v2"

	"github.com/seyedmohammadhosseini/veins/internal/coords"
)

// Render encodes cfg back into the file layout Load reads.
func Render(cfg ClientConfig) ([]byte, error) {
	raw := fileConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Dialect:     cfg.Dialect.String(),
		LogLevel:    cfg.LogLevel,
		MetricsAddr: cfg.MetricsAddr,
		Node:        cfg.Node,
		Connect: connectTable{
			Timeout:           cfg.Session.ConnectTimeout.String(),
			IOTimeout:         cfg.Session.IOTimeout.String(),
			MaxAttempts:       cfg.Session.MaxConnectAttempts,
			BackoffInitial:    cfg.Session.Backoff.InitialDelay.String(),
			BackoffMax:        cfg.Session.Backoff.MaxDelay.String(),
			BackoffMultiplier: cfg.Session.Backoff.Multiplier,
			Jitter:            cfg.Session.Backoff.Jitter,
		},
		Coordinates: coordinatesTable{
			Projection: string(cfg.Coordinates.Projection),
			Heading:    string(cfg.Coordinates.Heading),
		},
	}
	if b := cfg.Coordinates.Bounds; b != nil {
		raw.Coordinates.LowerLeft = cornerValues(b.LowerLeft)
		raw.Coordinates.UpperRight = cornerValues(b.UpperRight)
		raw.Coordinates.Margin = b.Margin
	}
	return toml.Marshal(raw)
}

// cornerValues keeps the elevation only when the corner has one.
func cornerValues(c coords.PeerCoord) []float64 {
	if c.Z != 0 {
		return []float64{c.X, c.Y, c.Z}
	}
	return []float64{c.X, c.Y}
}
