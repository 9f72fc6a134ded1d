package traci

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/seyedmohammadhosseini/veins/internal/coords"
	"github.com/seyedmohammadhosseini/veins/internal/logging"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/message"
)

// Dialect selects the on-wire layout of commands and statuses.
type Dialect = message.Dialect

const (
	DialectPlain = message.DialectPlain
	DialectSUMO  = message.DialectSUMO
)

type options struct {
	dialect        Dialect
	limits         frame.Limits
	projection     coords.ProjectionKind
	heading        coords.HeadingConvention
	logger         *zerolog.Logger
	dialer         Dialer
	connectTimeout time.Duration
	ioTimeout      time.Duration
}

// Option customizes a Connection.
type Option func(*options)

func defaultOptions() options {
	return options{
		dialect:        DialectPlain,
		limits:         frame.DefaultLimits(),
		projection:     coords.ProjectionBoundsAffine,
		heading:        coords.CompassConvention{},
		connectTimeout: 5 * time.Second,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		l := logging.Component("traci")
		o.logger = &l
	}
	if o.dialer == nil {
		o.dialer = TCPDialer(o.connectTimeout, o.ioTimeout)
	}
	return o
}

func WithDialect(d Dialect) Option {
	return func(o *options) { o.dialect = d }
}

// WithLimits bounds the size of accepted and sent frames.
func WithLimits(l frame.Limits) Option {
	return func(o *options) { o.limits = l }
}

func WithProjection(kind coords.ProjectionKind) Option {
	return func(o *options) { o.projection = kind }
}

func WithHeadingConvention(c coords.HeadingConvention) Option {
	return func(o *options) {
		if c != nil {
			o.heading = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = &l }
}

// WithDialer replaces the TCP dialer used by Connect.
func WithDialer(d Dialer) Option {
	return func(o *options) { o.dialer = d }
}

func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.connectTimeout = d }
}

// WithIOTimeout bounds every individual send and receive on the default
// TCP channel. Zero blocks indefinitely.
func WithIOTimeout(d time.Duration) Option {
	return func(o *options) { o.ioTimeout = d }
}
