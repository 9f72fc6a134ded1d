package traci

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/seyedmohammadhosseini/veins/internal/coords"
	"github.com/seyedmohammadhosseini/veins/internal/observability"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnected
	StateSending
	StateAwaitingResponse
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateSending:
		return "sending"
	case StateAwaitingResponse:
		return "awaiting_response"
	case StateClosed:
		return "closed"
	default:
		return "state(" + strconv.Itoa(int(s)) + ")"
	}
}

// Result receives the decoded status of a query when the caller wants to
// inspect failures instead of getting them as errors.
type Result struct {
	Success bool
	NotImpl bool
	Message string
}

// Connection is a single request/response link to the peer. Only one
// operation may be in flight at a time; overlapping calls fail with ErrBusy.
// Close may be called from any goroutine and unblocks a pending receive.
type Connection struct {
	id        xid.ID
	ch        Channel
	opts      options
	logger    zerolog.Logger
	transform *coords.Transform

	state     atomic.Int32
	closeOnce sync.Once
	closeErr  error
}

// Connect dials the peer and returns a connected Connection.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Connection, error) {
	o := buildOptions(opts)
	ch, err := o.dialer(ctx, host, port)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, net.JoinHostPort(host, strconv.Itoa(port)), err)
	}
	c, err := newConnection(ch, o)
	if err != nil {
		_ = ch.Close()
		return nil, err
	}
	c.logger.Info().
		Str("peer", net.JoinHostPort(host, strconv.Itoa(port))).
		Str("dialect", o.dialect.String()).
		Msg("traci connected")
	return c, nil
}

// NewConnection wraps an already open channel.
func NewConnection(ch Channel, opts ...Option) (*Connection, error) {
	return newConnection(ch, buildOptions(opts))
}

func newConnection(ch Channel, o options) (*Connection, error) {
	if ch == nil {
		return nil, fmt.Errorf("%w: nil channel", ErrConnection)
	}
	transform, err := coords.NewTransform(o.projection)
	if err != nil {
		return nil, err
	}
	id := xid.New()
	c := &Connection{
		id:        id,
		ch:        ch,
		opts:      o,
		logger:    o.logger.With().Str("conn", id.String()).Logger(),
		transform: transform,
	}
	c.state.Store(int32(StateConnected))
	observability.ConnectionOpened()
	return c, nil
}

func (c *Connection) ID() string {
	return c.id.String()
}

func (c *Connection) State() State {
	return State(c.state.Load())
}

func (c *Connection) Dialect() Dialect {
	return c.opts.dialect
}

func (c *Connection) acquire(next State) error {
	if c.state.CompareAndSwap(int32(StateConnected), int32(next)) {
		return nil
	}
	switch State(c.state.Load()) {
	case StateClosed, StateDisconnected:
		return fmt.Errorf("%w: connection closed", ErrConnectionLost)
	default:
		return ErrBusy
	}
}

func (c *Connection) release() {
	if c.state.CompareAndSwap(int32(StateSending), int32(StateConnected)) {
		return
	}
	c.state.CompareAndSwap(int32(StateAwaitingResponse), int32(StateConnected))
}

// lose closes a connection whose stream can no longer be trusted.
func (c *Connection) lose(err error) error {
	if !errors.Is(err, ErrConnectionLost) {
		err = fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	if c.State() != StateClosed {
		c.logger.Warn().Err(err).Msg("traci connection lost")
	}
	_ = c.Close()
	return err
}

func (c *Connection) send(msg []byte) error {
	framed, err := frame.Encode(msg, c.opts.dialect.Prefix(), c.opts.limits)
	if err != nil {
		return err
	}
	if err := c.ch.Send(framed); err != nil {
		return c.lose(err)
	}
	observability.RecordFrame(observability.DirectionSent, len(framed))
	return nil
}

func (c *Connection) receive() ([]byte, error) {
	msg, err := frame.ReadMessage(channelReader{c.ch}, c.opts.dialect.Prefix(), c.opts.limits)
	if err != nil {
		return nil, c.lose(err)
	}
	observability.RecordFrame(observability.DirectionReceived, frame.PrefixLen+len(msg))
	return msg, nil
}

// SendMessage frames msg and writes it to the peer.
func (c *Connection) SendMessage(msg []byte) error {
	if err := c.acquire(StateSending); err != nil {
		return err
	}
	defer c.release()
	return c.send(msg)
}

// ReceiveMessage blocks until one complete frame arrives and returns its
// body. A frame cut short by the peer fails with ErrConnectionLost.
func (c *Connection) ReceiveMessage() ([]byte, error) {
	if err := c.acquire(StateAwaitingResponse); err != nil {
		return nil, err
	}
	defer c.release()
	return c.receive()
}

func (c *Connection) exchange(msg []byte) ([]byte, error) {
	if err := c.acquire(StateSending); err != nil {
		return nil, err
	}
	defer c.release()
	if err := c.send(msg); err != nil {
		return nil, err
	}
	c.state.CompareAndSwap(int32(StateSending), int32(StateAwaitingResponse))
	return c.receive()
}

// Query sends one command and waits for its response. The returned buffer is
// positioned just past the status sub-message.
//
// A non-OK status fills result when one is given and the remaining bytes are
// still returned; with a nil result it fails with *ProtocolError instead.
func (c *Connection) Query(commandID uint8, payload *buffer.Buffer, result *Result) (*buffer.Buffer, error) {
	start := time.Now()
	name := command.Name(commandID)

	msg, err := MakeCommand(commandID, payload).Encode(c.opts.dialect)
	if err != nil {
		c.observe(name, "encode_error", start, err)
		return nil, err
	}
	resp, err := c.exchange(msg)
	if err != nil {
		c.observe(name, failureLabel(err), start, err)
		return nil, err
	}

	body := buffer.From(resp)
	status, err := c.opts.dialect.DecodeStatus(body)
	if err != nil {
		c.observe(name, "malformed", start, err)
		return nil, fmt.Errorf("traci: %s: %w", name, err)
	}
	if status.CommandID != commandID {
		perr := statusMismatch(commandID, status.CommandID)
		c.observe(name, "mismatch", start, perr)
		return nil, perr
	}
	c.observe(name, command.ResultName(status.Code), start, nil)

	if !status.OK() && result == nil {
		return nil, &ProtocolError{CommandID: status.CommandID, Code: status.Code, Message: status.Description}
	}
	if result != nil {
		*result = Result{
			Success: status.OK(),
			NotImpl: status.NotImplemented(),
			Message: status.Description,
		}
	}
	return body, nil
}

// Do runs a prepared command through Query.
func (c *Connection) Do(cmd Command, result *Result) (*buffer.Buffer, error) {
	return c.Query(cmd.ID, cmd.Payload, result)
}

// NextResponse reads one response command from the bytes Query returned,
// honouring the connection's dialect.
func (c *Connection) NextResponse(b *buffer.Buffer) (uint8, *buffer.Buffer, error) {
	id, payload, err := c.opts.dialect.DecodeCommand(b)
	if err != nil {
		return 0, nil, err
	}
	return id, buffer.From(payload), nil
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, ErrBusy):
		return "busy"
	case errors.Is(err, frame.ErrMessageTooLarge):
		return "too_large"
	case errors.Is(err, ErrConnectionLost):
		return "connection_lost"
	default:
		return "failed"
	}
}

func (c *Connection) observe(name, status string, start time.Time, err error) {
	dur := time.Since(start)
	observability.RecordQuery(name, status, dur)
	ev := c.logger.Debug()
	if err != nil {
		ev = ev.Err(err)
	}
	ev.Str("command", name).Str("status", status).Dur("duration", dur).Msg("traci query")
}

// Close releases the channel. It is safe to call more than once; later
// operations fail with ErrConnectionLost.
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.state.Store(int32(StateClosed))
		c.closeErr = c.ch.Close()
		observability.ConnectionClosed()
		c.logger.Debug().Msg("traci connection closed")
	})
	return c.closeErr
}

// channelReader lets frame.ReadMessage pull exact byte counts from a Channel.
type channelReader struct {
	ch Channel
}

func (r channelReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	b, err := r.ch.Recv(len(p))
	if err != nil {
		return 0, err
	}
	return copy(p, b), nil
}
