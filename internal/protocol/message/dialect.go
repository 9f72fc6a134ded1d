// Package message lays out commands and status sub-messages inside a frame
// body. Two dialects are supported: the plain layout, where a frame body is
// the command id followed by its payload, and the SUMO layout, where the
// frame length counts itself and every command carries its own length
// header.
package message

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
)

var (
	ErrUnknownDialect   = errors.New("message: unknown dialect")
	ErrMalformedCommand = errors.New("message: malformed command")
	ErrMalformedStatus  = errors.New("message: malformed status")
	ErrCommandTooLarge  = errors.New("message: command too large")
)

type Dialect uint8

const (
	DialectPlain Dialect = iota
	DialectSUMO
)

func ParseDialect(raw string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "plain":
		return DialectPlain, nil
	case "sumo", "traci":
		return DialectSUMO, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDialect, raw)
	}
}

func (d Dialect) String() string {
	switch d {
	case DialectPlain:
		return "plain"
	case DialectSUMO:
		return "sumo"
	default:
		return fmt.Sprintf("dialect(%d)", uint8(d))
	}
}

// Prefix is the frame length convention used by the dialect.
func (d Dialect) Prefix() frame.Prefix {
	if d == DialectSUMO {
		return frame.PrefixInclusive
	}
	return frame.PrefixExclusive
}

// shortHeaderMax is the largest command, header included, that still fits a
// one byte length header.
const shortHeaderMax = math.MaxUint8

// writeHeader appends the SUMO command length header for a command whose
// content (id and everything after it) is n bytes long.
func writeHeader(b *buffer.Buffer, n int) error {
	if 1+n <= shortHeaderMax {
		b.WriteUint8(uint8(1 + n))
		return nil
	}
	if uint64(1+4+n) > math.MaxInt32 {
		return fmt.Errorf("%w: %d bytes", ErrCommandTooLarge, n)
	}
	b.WriteUint8(0)
	b.WriteInt32(int32(1 + 4 + n))
	return nil
}

// readHeader consumes a SUMO command length header and returns the content
// length that follows it.
func readHeader(b *buffer.Buffer) (int, error) {
	short, err := b.ReadUint8()
	if err != nil {
		return 0, err
	}
	if short != 0 {
		if short < 2 {
			return 0, fmt.Errorf("length byte %d leaves no room for an id", short)
		}
		return int(short) - 1, nil
	}
	long, err := b.ReadInt32()
	if err != nil {
		return 0, err
	}
	if long < 1+4+1 {
		return 0, fmt.Errorf("extended length %d leaves no room for an id", long)
	}
	return int(long) - 1 - 4, nil
}

// EncodeCommand lays out one command for a frame body.
func (d Dialect) EncodeCommand(id uint8, payload []byte) ([]byte, error) {
	b := buffer.New()
	if d == DialectSUMO {
		if err := writeHeader(b, 1+len(payload)); err != nil {
			return nil, err
		}
	}
	b.WriteUint8(id)
	b.WriteBytes(payload)
	return b.Bytes(), nil
}

// DecodeCommand reads one command from b and returns its id and payload.
// In the plain dialect the payload runs to the end of b.
func (d Dialect) DecodeCommand(b *buffer.Buffer) (uint8, []byte, error) {
	n := b.Remaining()
	if d == DialectSUMO {
		var err error
		if n, err = readHeader(b); err != nil {
			return 0, nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
		}
	}
	if n < 1 {
		return 0, nil, fmt.Errorf("%w: empty command", ErrMalformedCommand)
	}
	id, err := b.ReadUint8()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	payload, err := b.ReadBytes(n - 1)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrMalformedCommand, err)
	}
	return id, payload, nil
}
