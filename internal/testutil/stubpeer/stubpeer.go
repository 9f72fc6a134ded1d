// Package stubpeer is a scripted stand-in for a simulation peer. Tests run
// a script against the peer end of a connection and assert on what the
// client sent.
package stubpeer

import (
	"fmt"
	"net"
	"time"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/message"
)

// Request is one command received from the client.
type Request struct {
	CommandID uint8
	Payload   []byte
}

type Peer struct {
	conn    net.Conn
	dialect message.Dialect
	limits  frame.Limits
}

// Pipe returns the client end of an in-memory pipe and a peer on the other.
func Pipe(dialect message.Dialect) (net.Conn, *Peer) {
	client, server := net.Pipe()
	return client, New(server, dialect)
}

// New wraps an accepted connection.
func New(conn net.Conn, dialect message.Dialect) *Peer {
	return &Peer{conn: conn, dialect: dialect, limits: frame.DefaultLimits()}
}

// Run executes script on its own goroutine. The returned channel yields the
// script's error, or nil, exactly once.
func (p *Peer) Run(script func(p *Peer) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- script(p)
	}()
	return done
}

// Wait blocks on a Run result for at most timeout.
func Wait(done <-chan error, timeout time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("stubpeer: script still running after %s", timeout)
	}
}

// ReadFrame returns the next complete frame body.
func (p *Peer) ReadFrame() ([]byte, error) {
	return frame.ReadMessage(p.conn, p.dialect.Prefix(), p.limits)
}

// ReadCommand reads one frame and decodes the first command in it.
func (p *Peer) ReadCommand() (Request, error) {
	body, err := p.ReadFrame()
	if err != nil {
		return Request{}, err
	}
	id, payload, err := p.dialect.DecodeCommand(buffer.From(body))
	if err != nil {
		return Request{}, err
	}
	return Request{CommandID: id, Payload: payload}, nil
}

// Expect reads one command and fails unless it carries id.
func (p *Peer) Expect(id uint8) (Request, error) {
	req, err := p.ReadCommand()
	if err != nil {
		return Request{}, err
	}
	if req.CommandID != id {
		return req, fmt.Errorf("stubpeer: got command 0x%02x, want 0x%02x", req.CommandID, id)
	}
	return req, nil
}

// Reply sends a status sub-message followed by tail in one frame.
func (p *Peer) Reply(status message.Status, tail []byte) error {
	head, err := p.dialect.EncodeStatus(status)
	if err != nil {
		return err
	}
	return p.WriteFrame(append(head, tail...))
}

// Response lays out a response command the way the peer's dialect does, for
// use as a Reply tail.
func (p *Peer) Response(id uint8, payload []byte) []byte {
	out, err := p.dialect.EncodeCommand(id, payload)
	if err != nil {
		panic(err)
	}
	return out
}

func (p *Peer) WriteFrame(body []byte) error {
	return frame.WriteMessage(p.conn, body, p.dialect.Prefix(), frame.Limits{MaxMessageBytes: ^uint32(0) - frame.PrefixLen})
}

// WriteRaw writes b without framing.
func (p *Peer) WriteRaw(b []byte) error {
	_, err := p.conn.Write(b)
	return err
}

func (p *Peer) Close() error {
	return p.conn.Close()
}
