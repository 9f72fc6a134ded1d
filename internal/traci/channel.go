package traci

import (
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

// Channel is an ordered, reliable byte stream to the peer.
type Channel interface {
	// Send writes all of p or fails.
	Send(p []byte) error
	// Recv blocks until exactly n bytes are read or fails.
	Recv(n int) ([]byte, error)
	Close() error
}

// Dialer opens a Channel to host:port.
type Dialer func(ctx context.Context, host string, port int) (Channel, error)

type deadliner interface {
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
}

// StreamChannel adapts an io.ReadWriteCloser, usually a net.Conn, to Channel.
// When the stream supports deadlines and a timeout is set, every Send and
// Recv gets its own deadline.
type StreamChannel struct {
	rw      io.ReadWriteCloser
	timeout time.Duration
}

func NewStreamChannel(rw io.ReadWriteCloser, ioTimeout time.Duration) *StreamChannel {
	return &StreamChannel{rw: rw, timeout: ioTimeout}
}

func (s *StreamChannel) Send(p []byte) error {
	if d, ok := s.rw.(deadliner); ok && s.timeout > 0 {
		_ = d.SetWriteDeadline(time.Now().Add(s.timeout))
	}
	for len(p) > 0 {
		n, err := s.rw.Write(p)
		if err != nil {
			return err
		}
		p = p[n:]
	}
	return nil
}

func (s *StreamChannel) Recv(n int) ([]byte, error) {
	if d, ok := s.rw.(deadliner); ok && s.timeout > 0 {
		_ = d.SetReadDeadline(time.Now().Add(s.timeout))
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(s.rw, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (s *StreamChannel) Close() error {
	return s.rw.Close()
}

// TCPDialer returns a Dialer producing StreamChannels over TCP. Hostnames are
// resolved up front, preferring IPv4 the way the peer listens by default.
func TCPDialer(connectTimeout, ioTimeout time.Duration) Dialer {
	return func(ctx context.Context, host string, port int) (Channel, error) {
		addr, err := PeerAddr(ctx, host, port)
		if err != nil {
			return nil, err
		}
		d := net.Dialer{Timeout: connectTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			// request/response traffic; small frames must not wait on Nagle
			_ = tcp.SetNoDelay(true)
		}
		return NewStreamChannel(conn, ioTimeout), nil
	}
}

// PeerAddr validates host and port and returns a dialable host:port with the
// host resolved to an IP address.
func PeerAddr(ctx context.Context, host string, port int) (string, error) {
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid peer port %d", port)
	}
	p := strconv.Itoa(port)
	host = strings.TrimSpace(host)
	if host == "" || strings.EqualFold(host, "localhost") {
		return net.JoinHostPort("127.0.0.1", p), nil
	}
	if ip := net.ParseIP(host); ip != nil {
		return net.JoinHostPort(ip.String(), p), nil
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil || len(ips) == 0 {
		return "", fmt.Errorf("resolve peer host %q: %w", host, err)
	}
	for i := range ips {
		if v4 := ips[i].To4(); v4 != nil {
			return net.JoinHostPort(v4.String(), p), nil
		}
	}
	return net.JoinHostPort(ips[0].String(), p), nil
}
