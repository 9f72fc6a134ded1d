package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net"
	"testing"
	"time"

	"github.com/seyedmohammadhosseini/veins/internal/testutil/testlog"
	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

func fastConfig(attempts int) Config {
	cfg := DefaultConfig()
	cfg.MaxConnectAttempts = attempts
	cfg.Backoff = BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond}
	return cfg
}

func pipeConnection(t *testing.T) *traci.Connection {
	t.Helper()
	client, server := net.Pipe()
	t.Cleanup(func() { _ = server.Close() })
	c, err := traci.NewConnection(traci.NewStreamChannel(client, 0))
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestNextBackoffDelayDeterministicNoJitter(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       false,
	}
	if got := NextBackoffDelay(cfg, 1, nil); got != 250*time.Millisecond {
		t.Fatalf("attempt1 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 2, nil); got != 500*time.Millisecond {
		t.Fatalf("attempt2 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 3, nil); got != time.Second {
		t.Fatalf("attempt3 got=%v", got)
	}
	if got := NextBackoffDelay(cfg, 6, nil); got != 5*time.Second {
		t.Fatalf("attempt6 got=%v", got)
	}
}

func TestNextBackoffDelayJitterRange(t *testing.T) {
	testlog.Start(t)
	cfg := BackoffConfig{
		InitialDelay: 250 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     5 * time.Second,
		Jitter:       true,
	}
	rng := rand.New(rand.NewSource(7))
	for attempt := 1; attempt <= 8; attempt++ {
		base := NextBackoffDelay(BackoffConfig{
			InitialDelay: cfg.InitialDelay,
			Multiplier:   cfg.Multiplier,
			MaxDelay:     cfg.MaxDelay,
		}, attempt, nil)
		got := NextBackoffDelay(cfg, attempt, rng)
		if got < base/2 || got >= base*3/2 {
			t.Fatalf("attempt%d jitter out of range: %v base=%v", attempt, got, base)
		}
	}
}

func TestConnectWithRetryRecovers(t *testing.T) {
	testlog.Start(t)
	want := pipeConnection(t)
	calls := 0
	got, err := ConnectWithRetry(context.Background(), fastConfig(5), func(context.Context) (*traci.Connection, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("%w: refused", traci.ErrConnection)
		}
		return want, nil
	})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if got != want || calls != 3 {
		t.Fatalf("unexpected result: same=%v calls=%d", got == want, calls)
	}
}

func TestConnectWithRetryGivesUp(t *testing.T) {
	testlog.Start(t)
	calls := 0
	_, err := ConnectWithRetry(context.Background(), fastConfig(4), func(context.Context) (*traci.Connection, error) {
		calls++
		return nil, fmt.Errorf("%w: refused", traci.ErrConnection)
	})
	if !errors.Is(err, traci.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected 4 attempts, got %d", calls)
	}
}

func TestConnectWithRetryStopsOnOtherErrors(t *testing.T) {
	testlog.Start(t)
	boom := errors.New("bad projection")
	calls := 0
	_, err := ConnectWithRetry(context.Background(), fastConfig(0), func(context.Context) (*traci.Connection, error) {
		calls++
		return nil, boom
	})
	if !errors.Is(err, boom) || calls != 1 {
		t.Fatalf("expected single attempt with original error, got calls=%d err=%v", calls, err)
	}
}

func TestConnectWithRetryHonoursContext(t *testing.T) {
	testlog.Start(t)
	cfg := fastConfig(0)
	cfg.Backoff = BackoffConfig{InitialDelay: time.Hour, Multiplier: 1, MaxDelay: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := ConnectWithRetry(ctx, cfg, func(context.Context) (*traci.Connection, error) {
		return nil, traci.ErrConnection
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestDialRefusedPortExhaustsAttempts(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	_, err = Dial(context.Background(), fastConfig(2), "127.0.0.1", port)
	if !errors.Is(err, traci.ErrConnection) {
		t.Fatalf("expected ErrConnection, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	testlog.Start(t)
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	cfg := DefaultConfig()
	cfg.Backoff.Multiplier = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected multiplier error")
	}
	cfg = DefaultConfig()
	cfg.IOTimeout = -time.Second
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected io timeout error")
	}
	filled := Config{}.WithDefaults()
	if filled.ConnectTimeout != 5*time.Second || filled.Backoff.InitialDelay != 250*time.Millisecond {
		t.Fatalf("defaults not applied: %+v", filled)
	}
}
