package traci

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/message"
	"github.com/seyedmohammadhosseini/veins/internal/testutil/stubpeer"
	"github.com/seyedmohammadhosseini/veins/internal/testutil/testlog"
)

const peerTimeout = 2 * time.Second

func newPipeConn(t *testing.T, d Dialect, opts ...Option) (*Connection, *stubpeer.Peer) {
	t.Helper()
	testlog.Start(t)
	client, peer := stubpeer.Pipe(d)
	c, err := NewConnection(NewStreamChannel(client, 0), append([]Option{WithDialect(d)}, opts...)...)
	if err != nil {
		t.Fatalf("new connection: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Close()
		_ = peer.Close()
	})
	return c, peer
}

func waitPeer(t *testing.T, done <-chan error) {
	t.Helper()
	if err := stubpeer.Wait(done, peerTimeout); err != nil {
		t.Fatalf("peer script: %v", err)
	}
}

func okStatus(id uint8) message.Status {
	return message.Status{CommandID: id, Code: command.ResultOK}
}

func TestQueryOKReturnsEmptyRemainder(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		req, err := p.Expect(command.SimulationStep)
		if err != nil {
			return err
		}
		if !bytes.Equal(req.Payload, []byte{0xAB}) {
			return errors.New("unexpected payload")
		}
		return p.Reply(okStatus(command.SimulationStep), nil)
	})

	payload := buffer.New()
	payload.WriteUint8(0xAB)
	rest, err := c.Query(command.SimulationStep, payload, nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !rest.EOF() {
		t.Fatalf("expected empty remainder, remaining=%d", rest.Remaining())
	}
	if c.State() != StateConnected {
		t.Fatalf("expected connected after query, got %s", c.State())
	}
	waitPeer(t, done)
}

func TestQueryEmptyPayloadWithOKMessage(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		for i := 0; i < 2; i++ {
			body, err := p.ReadFrame()
			if err != nil {
				return err
			}
			if !bytes.Equal(body, []byte{command.SimulationStep}) {
				return fmt.Errorf("unexpected frame body %x", body)
			}
			status := message.Status{CommandID: command.SimulationStep, Code: command.ResultOK, Description: "OK"}
			if err := p.Reply(status, nil); err != nil {
				return err
			}
		}
		return nil
	})

	rest, err := c.Query(command.SimulationStep, buffer.New(), nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !rest.EOF() {
		t.Fatalf("expected empty remainder, remaining=%d", rest.Remaining())
	}

	var res Result
	rest, err = c.Query(command.SimulationStep, buffer.New(), &res)
	if err != nil {
		t.Fatalf("query with result: %v", err)
	}
	if !rest.EOF() || !res.Success || res.NotImpl || res.Message != "OK" {
		t.Fatalf("unexpected result %+v remaining=%d", res, rest.Remaining())
	}
	waitPeer(t, done)
}

func TestCommandEncodeFollowsDialect(t *testing.T) {
	cmd := MakeCommand(command.SimulationStep, nil)
	plain, err := cmd.Encode(DialectPlain)
	if err != nil || !bytes.Equal(plain, []byte{command.SimulationStep}) {
		t.Fatalf("plain: got=%x err=%v", plain, err)
	}
	sumo, err := cmd.Encode(DialectSUMO)
	if err != nil || !bytes.Equal(sumo, []byte{2, command.SimulationStep}) {
		t.Fatalf("sumo: got=%x err=%v", sumo, err)
	}
}

func TestQueryReturnsBytesAfterStatus(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.GetVehicleVariable); err != nil {
			return err
		}
		return p.Reply(okStatus(command.GetVehicleVariable), []byte{1, 2, 3})
	})

	var res Result
	rest, err := c.Query(command.GetVehicleVariable, nil, &res)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !res.Success || res.NotImpl {
		t.Fatalf("unexpected result: %+v", res)
	}
	raw, err := rest.ReadBytes(3)
	if err != nil || !bytes.Equal(raw, []byte{1, 2, 3}) || !rest.EOF() {
		t.Fatalf("remainder mismatch: %x err=%v", raw, err)
	}
	waitPeer(t, done)
}

func TestQueryErrorWithoutResultIsProtocolError(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.GetVehicleVariable); err != nil {
			return err
		}
		if err := p.Reply(message.Status{
			CommandID:   command.GetVehicleVariable,
			Code:        command.ResultError,
			Description: "unknown variable",
		}, nil); err != nil {
			return err
		}
		if _, err := p.Expect(command.SimulationStep); err != nil {
			return err
		}
		return p.Reply(okStatus(command.SimulationStep), nil)
	})

	rest, err := c.Query(command.GetVehicleVariable, nil, nil)
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if rest != nil {
		t.Fatalf("expected no remainder on protocol error")
	}
	if perr.Error() != "unknown variable" || perr.CommandID != command.GetVehicleVariable || perr.NotImplemented() {
		t.Fatalf("unexpected protocol error: %+v", perr)
	}

	// the link stays usable after a peer-reported failure
	if _, err := c.Query(command.SimulationStep, nil, nil); err != nil {
		t.Fatalf("query after protocol error: %v", err)
	}
	waitPeer(t, done)
}

func TestQueryNotImplementedFillsResult(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(0xAC); err != nil {
			return err
		}
		return p.Reply(message.Status{
			CommandID:   0xAC,
			Code:        command.ResultNotImplemented,
			Description: "gui not available",
		}, []byte{0x09})
	})

	var res Result
	rest, err := c.Query(0xAC, nil, &res)
	if err != nil {
		t.Fatalf("query with result sink: %v", err)
	}
	if res.Success || !res.NotImpl || res.Message != "gui not available" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if rest.Remaining() != 1 {
		t.Fatalf("expected one byte after status, got %d", rest.Remaining())
	}
	waitPeer(t, done)
}

func TestQueryRejectsStatusForOtherCommand(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.GetVersion); err != nil {
			return err
		}
		return p.Reply(okStatus(command.SimulationStep), nil)
	})

	_, err := c.Query(command.GetVersion, nil, &Result{})
	var perr *ProtocolError
	if !errors.As(err, &perr) || perr.CommandID != command.SimulationStep {
		t.Fatalf("expected status mismatch ProtocolError, got %v", err)
	}
	waitPeer(t, done)
}

func TestQueryMalformedStatus(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.SimulationStep); err != nil {
			return err
		}
		return p.WriteFrame([]byte{command.SimulationStep, 0x00, 0x00})
	})

	_, err := c.Query(command.SimulationStep, nil, nil)
	if !errors.Is(err, message.ErrMalformedStatus) || !errors.Is(err, buffer.ErrBufferUnderrun) {
		t.Fatalf("expected malformed status underrun, got %v", err)
	}
	if c.State() != StateConnected {
		t.Fatalf("complete frame with bad status must not drop the link, state=%s", c.State())
	}
	waitPeer(t, done)
}

func TestSUMODialectExtendedCommand(t *testing.T) {
	c, peer := newPipeConn(t, DialectSUMO)
	big := bytes.Repeat([]byte{0x5A}, 300)
	done := peer.Run(func(p *stubpeer.Peer) error {
		req, err := p.Expect(command.SetVehicleVariable)
		if err != nil {
			return err
		}
		if !bytes.Equal(req.Payload, big) {
			return errors.New("payload mangled")
		}
		return p.Reply(okStatus(command.SetVehicleVariable), nil)
	})

	payload := buffer.New()
	payload.WriteBytes(big)
	rest, err := c.Do(MakeCommand(command.SetVehicleVariable, payload), nil)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if !rest.EOF() {
		t.Fatalf("expected empty remainder, remaining=%d", rest.Remaining())
	}
	waitPeer(t, done)
}

func TestGetVersion(t *testing.T) {
	for _, d := range []Dialect{DialectPlain, DialectSUMO} {
		t.Run(d.String(), func(t *testing.T) {
			c, peer := newPipeConn(t, d)
			done := peer.Run(func(p *stubpeer.Peer) error {
				if _, err := p.Expect(command.GetVersion); err != nil {
					return err
				}
				body := buffer.New()
				body.WriteInt32(21)
				body.WriteString("SUMO 1.18.0")
				return p.Reply(okStatus(command.GetVersion), p.Response(command.GetVersion, body.Bytes()))
			})

			api, software, err := c.GetVersion()
			if err != nil {
				t.Fatalf("get version: %v", err)
			}
			if api != 21 || software != "SUMO 1.18.0" {
				t.Fatalf("unexpected version: api=%d software=%q", api, software)
			}
			waitPeer(t, done)
		})
	}
}

func TestSimulationStepSendsTargetTime(t *testing.T) {
	c, peer := newPipeConn(t, DialectSUMO)
	done := peer.Run(func(p *stubpeer.Peer) error {
		req, err := p.Expect(command.SimulationStep)
		if err != nil {
			return err
		}
		v, err := buffer.From(req.Payload).ReadFloat64()
		if err != nil {
			return err
		}
		if v != 12.5 {
			return errors.New("unexpected target time")
		}
		return p.Reply(okStatus(command.SimulationStep), []byte{0, 0, 0, 0})
	})

	rest, err := c.SimulationStep(12.5)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if n, err := rest.ReadInt32(); err != nil || n != 0 {
		t.Fatalf("subscription count: n=%d err=%v", n, err)
	}
	waitPeer(t, done)
}

func TestCloseSimulationClosesConnection(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.Close); err != nil {
			return err
		}
		return p.Reply(okStatus(command.Close), nil)
	})

	if err := c.CloseSimulation(); err != nil {
		t.Fatalf("close simulation: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed, got %s", c.State())
	}
	waitPeer(t, done)
}

func TestReceiveMessagePartialPrefixIsConnectionLost(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if err := p.WriteRaw([]byte{0x00, 0x00}); err != nil {
			return err
		}
		return p.Close()
	})

	msg, err := c.ReceiveMessage()
	if !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	if msg != nil {
		t.Fatalf("expected no partial message, got %x", msg)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed after lost link, got %s", c.State())
	}
	waitPeer(t, done)
}

func TestReceiveMessageTruncatedBody(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain)
	done := peer.Run(func(p *stubpeer.Peer) error {
		if err := p.WriteRaw([]byte{0, 0, 0, 8, 1, 2, 3}); err != nil {
			return err
		}
		return p.Close()
	})

	if _, err := c.ReceiveMessage(); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected ErrConnectionLost, got %v", err)
	}
	waitPeer(t, done)
}

func TestSendReceiveRawMessages(t *testing.T) {
	c, peer := newPipeConn(t, DialectSUMO)
	done := peer.Run(func(p *stubpeer.Peer) error {
		body, err := p.ReadFrame()
		if err != nil {
			return err
		}
		return p.WriteFrame(body)
	})

	if err := c.SendMessage([]byte("echo")); err != nil {
		t.Fatalf("send: %v", err)
	}
	got, err := c.ReceiveMessage()
	if err != nil || string(got) != "echo" {
		t.Fatalf("receive: got=%q err=%v", got, err)
	}
	waitPeer(t, done)
}

func TestOversizedResponseDropsConnection(t *testing.T) {
	c, peer := newPipeConn(t, DialectPlain, WithLimits(frame.Limits{MaxMessageBytes: 16}))
	done := peer.Run(func(p *stubpeer.Peer) error {
		if _, err := p.Expect(command.GetVersion); err != nil {
			return err
		}
		// the client hangs up after the prefix, so this write may fail
		_ = p.Reply(okStatus(command.GetVersion), make([]byte, 64))
		return nil
	})

	_, err := c.Query(command.GetVersion, nil, nil)
	if !errors.Is(err, frame.ErrMessageTooLarge) || !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("expected oversized frame to drop the link, got %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed, got %s", c.State())
	}
	waitPeer(t, done)
}

func TestOversizedCommandIsRejectedLocally(t *testing.T) {
	c, _ := newPipeConn(t, DialectPlain, WithLimits(frame.Limits{MaxMessageBytes: 4}))
	payload := buffer.New()
	payload.WriteBytes(make([]byte, 8))
	if _, err := c.Query(command.SetVehicleVariable, payload, nil); !errors.Is(err, frame.ErrMessageTooLarge) {
		t.Fatalf("expected ErrMessageTooLarge, got %v", err)
	}
	if c.State() != StateConnected {
		t.Fatalf("nothing was written, link should stay up; state=%s", c.State())
	}
}

func TestUseAfterCloseIsConnectionLost(t *testing.T) {
	c, _ := newPipeConn(t, DialectPlain)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := c.Query(command.GetVersion, nil, nil); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("query after close: %v", err)
	}
	if err := c.SendMessage([]byte{1}); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("send after close: %v", err)
	}
	if _, err := c.ReceiveMessage(); !errors.Is(err, ErrConnectionLost) {
		t.Fatalf("receive after close: %v", err)
	}
}

func TestOverlappingUseIsBusy(t *testing.T) {
	c, _ := newPipeConn(t, DialectPlain)
	c.state.Store(int32(StateAwaitingResponse))
	if _, err := c.Query(command.GetVersion, nil, nil); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	c.state.Store(int32(StateConnected))
}

func TestConnectOverTCP(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	done := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			done <- err
			return
		}
		peer := stubpeer.New(conn, DialectSUMO)
		defer peer.Close()
		if _, err := peer.Expect(command.GetVersion); err != nil {
			done <- err
			return
		}
		body := buffer.New()
		body.WriteInt32(20)
		body.WriteString("stub")
		done <- peer.Reply(okStatus(command.GetVersion), peer.Response(command.GetVersion, body.Bytes()))
	}()

	port := ln.Addr().(*net.TCPAddr).Port
	ctx, cancel := context.WithTimeout(context.Background(), peerTimeout)
	defer cancel()
	c, err := Connect(ctx, "localhost", port, WithDialect(DialectSUMO), WithIOTimeout(peerTimeout))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()
	if c.ID() == "" {
		t.Fatalf("expected connection id")
	}

	api, software, err := c.GetVersion()
	if err != nil || api != 20 || software != "stub" {
		t.Fatalf("get version over tcp: api=%d software=%q err=%v", api, software, err)
	}
	waitPeer(t, done)
}

func TestConnectFailureIsErrConnection(t *testing.T) {
	testlog.Start(t)
	refused := errors.New("refused")
	_, err := Connect(context.Background(), "sim.example", 9999, WithDialer(
		func(context.Context, string, int) (Channel, error) { return nil, refused },
	))
	if !errors.Is(err, ErrConnection) || !errors.Is(err, refused) {
		t.Fatalf("expected ErrConnection wrapping dial error, got %v", err)
	}
}

func TestNewConnectionRejectsUnknownProjection(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()
	if _, err := NewConnection(NewStreamChannel(client, 0), WithProjection("lambert")); err == nil {
		t.Fatalf("expected unknown projection error")
	}
	_ = client.Close()
}
