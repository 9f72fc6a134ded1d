package message

import (
	"fmt"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
)

// Status is the sub-message leading every response.
type Status struct {
	CommandID   uint8
	Code        uint8
	Description string
}

func (s Status) OK() bool {
	return s.Code == command.ResultOK
}

func (s Status) NotImplemented() bool {
	return s.Code == command.ResultNotImplemented
}

// EncodeStatus lays out a status sub-message.
func (d Dialect) EncodeStatus(s Status) ([]byte, error) {
	b := buffer.New()
	if d == DialectSUMO {
		if err := writeHeader(b, 1+1+4+len(s.Description)); err != nil {
			return nil, err
		}
	}
	b.WriteUint8(s.CommandID)
	b.WriteUint8(s.Code)
	b.WriteString(s.Description)
	return b.Bytes(), nil
}

// DecodeStatus consumes the status sub-message from b, leaving b positioned
// at the first command-specific byte.
func (d Dialect) DecodeStatus(b *buffer.Buffer) (Status, error) {
	declared := -1
	if d == DialectSUMO {
		n, err := readHeader(b)
		if err != nil {
			return Status{}, fmt.Errorf("%w: %w", ErrMalformedStatus, err)
		}
		declared = n
	}
	start := b.Cursor()

	var s Status
	var err error
	if s.CommandID, err = b.ReadUint8(); err != nil {
		return Status{}, fmt.Errorf("%w: command id: %w", ErrMalformedStatus, err)
	}
	if s.Code, err = b.ReadUint8(); err != nil {
		return Status{}, fmt.Errorf("%w: result code: %w", ErrMalformedStatus, err)
	}
	if s.Description, err = b.ReadString(); err != nil {
		return Status{}, fmt.Errorf("%w: description: %w", ErrMalformedStatus, err)
	}
	if declared >= 0 && b.Cursor()-start != declared {
		return Status{}, fmt.Errorf("%w: header declares %d bytes, status used %d", ErrMalformedStatus, declared, b.Cursor()-start)
	}
	return s, nil
}
