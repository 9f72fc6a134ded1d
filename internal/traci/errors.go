package traci

import (
	"errors"
	"fmt"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/frame"
)

var (
	// ErrConnection reports that the peer could not be reached.
	ErrConnection = errors.New("traci: connection failed")
	// ErrConnectionLost reports a channel that closed or failed mid-frame,
	// or use of a connection after Close.
	ErrConnectionLost = frame.ErrConnectionLost
	// ErrBusy reports a second operation started while one is in flight.
	ErrBusy = errors.New("traci: connection busy")
)

// ProtocolError is a non-OK status returned by the peer when the caller did
// not ask for a Result. Error returns the peer's description verbatim.
type ProtocolError struct {
	CommandID uint8
	Code      uint8
	Message   string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// NotImplemented reports whether the peer does not support the command.
func (e *ProtocolError) NotImplemented() bool {
	return e.Code == command.ResultNotImplemented
}

func statusMismatch(sent, got uint8) *ProtocolError {
	return &ProtocolError{
		CommandID: got,
		Code:      command.ResultError,
		Message: fmt.Sprintf("status answers %s (0x%02x) but %s (0x%02x) was sent",
			command.Name(got), got, command.Name(sent), sent),
	}
}
