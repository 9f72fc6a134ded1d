package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/seyedmohammadhosseini/veins/internal/observability"
)

type metricsServer struct {
	srv  *http.Server
	addr string
	done chan error
}

func startMetrics(addr, node string, logger zerolog.Logger, health observability.HealthFunc) (*metricsServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	observability.RegisterMetrics()
	m := &metricsServer{
		srv: &http.Server{
			Handler:           observability.NewRouter(logger, node, health),
			ReadHeaderTimeout: 5 * time.Second,
		},
		addr: ln.Addr().String(),
		done: make(chan error, 1),
	}
	go func() {
		err := m.srv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		m.done <- err
	}()
	logger.Info().Str("addr", m.addr).Msg("metrics listening")
	return m, nil
}

func (m *metricsServer) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := m.srv.Shutdown(ctx); err != nil {
		return err
	}
	return <-m.done
}
