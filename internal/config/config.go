package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/seyedmohammadhosseini/veins/internal/coords"
	"github.com/seyedmohammadhosseini/veins/internal/logging"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/message"
	"github.com/seyedmohammadhosseini/veins/internal/session"
	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

const DefaultPath = "tracictl.toml"

// ClientConfig is the resolved configuration of a peer client.
type ClientConfig struct {
	Host        string
	Port        int
	Dialect     message.Dialect
	LogLevel    string
	MetricsAddr string
	Node        string
	Session     session.Config
	Coordinates CoordinatesConfig
}

// CoordinatesConfig selects the conversion conventions. Bounds is nil until
// the peer or the file provides net boundaries.
type CoordinatesConfig struct {
	Projection coords.ProjectionKind
	Heading    coords.HeadingKind
	Bounds     *coords.NetBounds
}

type fileConfig struct {
	Host        string           `toml:"host"`
	Port        int              `toml:"port"`
	Dialect     string           `toml:"dialect"`
	LogLevel    string           `toml:"log_level"`
	MetricsAddr string           `toml:"metrics_addr"`
	Node        string           `toml:"node"`
	Connect     connectTable     `toml:"connect"`
	Coordinates coordinatesTable `toml:"coordinates"`
}

type connectTable struct {
	Timeout           string  `toml:"timeout"`
	IOTimeout         string  `toml:"io_timeout"`
	MaxAttempts       int     `toml:"max_attempts"`
	BackoffInitial    string  `toml:"backoff_initial"`
	BackoffMax        string  `toml:"backoff_max"`
	BackoffMultiplier float64 `toml:"backoff_multiplier"`
	Jitter            bool    `toml:"jitter"`
}

type coordinatesTable struct {
	Projection string    `toml:"projection"`
	Heading    string    `toml:"heading"`
	LowerLeft  []float64 `toml:"lower_left,omitempty"`
	UpperRight []float64 `toml:"upper_right,omitempty"`
	Margin     int       `toml:"margin,omitempty"`
}

func Default() ClientConfig {
	return ClientConfig{
		Host:     "localhost",
		Port:     9999,
		Dialect:  message.DialectPlain,
		LogLevel: "info",
		Node:     "tracictl",
		Session:  session.DefaultConfig(),
		Coordinates: CoordinatesConfig{
			Projection: coords.ProjectionBoundsAffine,
			Heading:    coords.HeadingCompass,
		},
	}
}

// Load reads path over Default and validates the result. Keys missing from
// the file keep their defaults.
func Load(path string) (ClientConfig, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return ClientConfig{}, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return ClientConfig{}, fmt.Errorf("config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("dialect") {
		d, err := message.ParseDialect(raw.Dialect)
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.Dialect = d
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("node") {
		cfg.Node = strings.TrimSpace(raw.Node)
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"timeout", raw.Connect.Timeout, &cfg.Session.ConnectTimeout},
		{"io_timeout", raw.Connect.IOTimeout, &cfg.Session.IOTimeout},
		{"backoff_initial", raw.Connect.BackoffInitial, &cfg.Session.Backoff.InitialDelay},
		{"backoff_max", raw.Connect.BackoffMax, &cfg.Session.Backoff.MaxDelay},
	}
	for _, d := range durations {
		if !meta.IsDefined("connect", d.key) {
			continue
		}
		v, err := time.ParseDuration(strings.TrimSpace(d.raw))
		if err != nil {
			return ClientConfig{}, fmt.Errorf("parse connect.%s: %w", d.key, err)
		}
		*d.dst = v
	}
	if meta.IsDefined("connect", "max_attempts") {
		cfg.Session.MaxConnectAttempts = raw.Connect.MaxAttempts
	}
	if meta.IsDefined("connect", "backoff_multiplier") {
		cfg.Session.Backoff.Multiplier = raw.Connect.BackoffMultiplier
	}
	if meta.IsDefined("connect", "jitter") {
		cfg.Session.Backoff.Jitter = raw.Connect.Jitter
	}

	if meta.IsDefined("coordinates", "projection") {
		cfg.Coordinates.Projection = coords.ProjectionKind(strings.TrimSpace(raw.Coordinates.Projection))
	}
	if meta.IsDefined("coordinates", "heading") {
		cfg.Coordinates.Heading = coords.HeadingKind(strings.TrimSpace(raw.Coordinates.Heading))
	}
	bounds, err := parseBounds(meta, raw.Coordinates)
	if err != nil {
		return ClientConfig{}, err
	}
	cfg.Coordinates.Bounds = bounds

	if err := Validate(cfg); err != nil {
		return ClientConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func parseBounds(meta toml.MetaData, raw coordinatesTable) (*coords.NetBounds, error) {
	hasLL := meta.IsDefined("coordinates", "lower_left")
	hasUR := meta.IsDefined("coordinates", "upper_right")
	if !hasLL && !hasUR {
		if meta.IsDefined("coordinates", "margin") {
			return nil, errors.New("coordinates.margin set without lower_left/upper_right")
		}
		return nil, nil
	}
	if hasLL != hasUR {
		return nil, errors.New("coordinates.lower_left and coordinates.upper_right must be set together")
	}
	ll, err := peerCoord("lower_left", raw.LowerLeft)
	if err != nil {
		return nil, err
	}
	ur, err := peerCoord("upper_right", raw.UpperRight)
	if err != nil {
		return nil, err
	}
	return &coords.NetBounds{LowerLeft: ll, UpperRight: ur, Margin: raw.Margin}, nil
}

func peerCoord(key string, v []float64) (coords.PeerCoord, error) {
	switch len(v) {
	case 2:
		return coords.PeerCoord{X: v[0], Y: v[1]}, nil
	case 3:
		return coords.PeerCoord{X: v[0], Y: v[1], Z: v[2]}, nil
	default:
		return coords.PeerCoord{}, fmt.Errorf("coordinates.%s needs 2 or 3 values, got %d", key, len(v))
	}
}

func Validate(cfg ClientConfig) error {
	if strings.TrimSpace(cfg.Host) == "" {
		return errors.New("host is required")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port %d out of range", cfg.Port)
	}
	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}
	if err := cfg.Session.Validate(); err != nil {
		return err
	}
	kind, err := coords.ParseProjectionKind(string(cfg.Coordinates.Projection))
	if err != nil {
		return err
	}
	if _, err := coords.NewHeadingConvention(cfg.Coordinates.Heading); err != nil {
		return err
	}
	if b := cfg.Coordinates.Bounds; b != nil {
		if _, err := coords.NewProjection(kind, *b); err != nil {
			return err
		}
	}
	return nil
}

// ConnectionOptions turns the wire and coordinate settings into connection
// options.
func (c ClientConfig) ConnectionOptions() ([]traci.Option, error) {
	heading, err := coords.NewHeadingConvention(c.Coordinates.Heading)
	if err != nil {
		return nil, err
	}
	return []traci.Option{
		traci.WithDialect(c.Dialect),
		traci.WithProjection(c.Coordinates.Projection),
		traci.WithHeadingConvention(heading),
		traci.WithLogger(logging.Component("traci")),
	}, nil
}

// Transform returns a transform configured from the file's net bounds, for
// converting coordinates without a live peer.
func (c ClientConfig) Transform() (*coords.Transform, error) {
	t, err := coords.NewTransform(c.Coordinates.Projection)
	if err != nil {
		return nil, err
	}
	b := c.Coordinates.Bounds
	if b == nil {
		return nil, coords.ErrNotConfigured
	}
	if err := t.SetNetbounds(b.LowerLeft, b.UpperRight, b.Margin); err != nil {
		return nil, err
	}
	return t, nil
}
