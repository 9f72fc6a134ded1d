package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// PrefixLen is the width of the big-endian length field preceding every message.
const PrefixLen = 4

var (
	ErrConnectionLost   = errors.New("frame: connection lost")
	ErrMessageTooLarge  = errors.New("frame: message too large")
	ErrLengthTooSmall   = errors.New("frame: declared length smaller than prefix")
	ErrMessageNotFramed = errors.New("frame: message shorter than prefix")
)

// Prefix selects what the length field counts.
type Prefix uint8

const (
	// PrefixExclusive counts only the bytes following the length field.
	PrefixExclusive Prefix = iota
	// PrefixInclusive counts the length field itself as well (SUMO TraCI).
	PrefixInclusive
)

func (p Prefix) String() string {
	switch p {
	case PrefixExclusive:
		return "exclusive"
	case PrefixInclusive:
		return "inclusive"
	default:
		return fmt.Sprintf("prefix(%d)", uint8(p))
	}
}

// Limits constrains frame decode/encode memory use.
type Limits struct {
	MaxMessageBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxMessageBytes: 16 * 1024 * 1024,
	}
}

// Encode returns msg preceded by its length prefix.
func Encode(msg []byte, prefix Prefix, limits Limits) ([]byte, error) {
	if uint64(len(msg)) > uint64(limits.MaxMessageBytes) || uint64(len(msg))+PrefixLen > math.MaxUint32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooLarge, len(msg))
	}
	declared := uint32(len(msg))
	if prefix == PrefixInclusive {
		declared += PrefixLen
	}
	out := make([]byte, PrefixLen, PrefixLen+len(msg))
	binary.BigEndian.PutUint32(out, declared)
	return append(out, msg...), nil
}

// Decode strips the length prefix from one complete encoded message.
func Decode(data []byte, prefix Prefix, limits Limits) ([]byte, error) {
	if len(data) < PrefixLen {
		return nil, ErrMessageNotFramed
	}
	n, err := bodyLen(binary.BigEndian.Uint32(data[:PrefixLen]), prefix, limits)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)-PrefixLen) != uint64(n) {
		return nil, fmt.Errorf("frame: declared %d body bytes, have %d", n, len(data)-PrefixLen)
	}
	out := make([]byte, n)
	copy(out, data[PrefixLen:])
	return out, nil
}

// WriteMessage frames msg and writes it with a single Write call.
func WriteMessage(w io.Writer, msg []byte, prefix Prefix, limits Limits) error {
	framed, err := Encode(msg, prefix, limits)
	if err != nil {
		return err
	}
	if _, err := w.Write(framed); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return nil
}

// ReadMessage blocks until one complete message is read and returns its body.
// A short read anywhere in the frame, including the length prefix, fails with
// ErrConnectionLost; partial bodies are never returned.
func ReadMessage(r io.Reader, prefix Prefix, limits Limits) ([]byte, error) {
	var head [PrefixLen]byte
	if _, err := io.ReadFull(r, head[:]); err != nil {
		return nil, fmt.Errorf("%w: reading length prefix: %w", ErrConnectionLost, err)
	}
	n, err := bodyLen(binary.BigEndian.Uint32(head[:]), prefix, limits)
	if err != nil {
		return nil, err
	}
	body := make([]byte, n)
	if n == 0 {
		return body, nil
	}
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, fmt.Errorf("%w: reading %d byte body: %w", ErrConnectionLost, n, err)
	}
	return body, nil
}

func bodyLen(declared uint32, prefix Prefix, limits Limits) (uint32, error) {
	n := declared
	if prefix == PrefixInclusive {
		if declared < PrefixLen {
			return 0, fmt.Errorf("%w: %d", ErrLengthTooSmall, declared)
		}
		n = declared - PrefixLen
	}
	if n > limits.MaxMessageBytes {
		return 0, fmt.Errorf("%w: declared %d, limit %d", ErrMessageTooLarge, n, limits.MaxMessageBytes)
	}
	return n, nil
}
