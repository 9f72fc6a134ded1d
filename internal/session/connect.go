package session

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/seyedmohammadhosseini/veins/internal/logging"
	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

// DialFunc makes one connection attempt.
type DialFunc func(ctx context.Context) (*traci.Connection, error)

// ConnectWithRetry calls dial until it succeeds, the attempts run out or ctx
// ends. Only traci.ErrConnection failures are retried; anything else means
// retrying cannot help.
func ConnectWithRetry(ctx context.Context, cfg Config, dial DialFunc) (*traci.Connection, error) {
	cfg = cfg.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := logging.Component("session")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var attempt int
	for {
		attempt++
		conn, err := dial(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Info().Int("attempt", attempt).Msg("peer connected after retry")
			}
			return conn, nil
		}
		if !errors.Is(err, traci.ErrConnection) {
			return nil, err
		}
		logger.Warn().Int("attempt", attempt).Err(err).Msg("peer connect failed")
		if cfg.MaxConnectAttempts > 0 && attempt >= cfg.MaxConnectAttempts {
			return nil, err
		}
		if err := sleepBackoff(ctx, cfg.Backoff, attempt, rng); err != nil {
			return nil, err
		}
	}
}

// Dial connects to host:port with cfg's timeouts and retry policy.
func Dial(ctx context.Context, cfg Config, host string, port int, opts ...traci.Option) (*traci.Connection, error) {
	cfg = cfg.WithDefaults()
	all := append(cfg.Options(), opts...)
	return ConnectWithRetry(ctx, cfg, func(ctx context.Context) (*traci.Connection, error) {
		return traci.Connect(ctx, host, port, all...)
	})
}

func sleepBackoff(ctx context.Context, cfg BackoffConfig, attempt int, rng *rand.Rand) error {
	timer := time.NewTimer(NextBackoffDelay(cfg, attempt, rng))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
