package traci

import (
	"errors"
	"fmt"

	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
)

// Command is a command id with its payload, ready to be queried.
type Command struct {
	ID      uint8
	Payload *buffer.Buffer
}

func MakeCommand(id uint8, payload *buffer.Buffer) Command {
	if payload == nil {
		payload = buffer.New()
	}
	return Command{ID: id, Payload: payload}
}

// Encode lays the command out as a frame body for d.
func (cmd Command) Encode(d Dialect) ([]byte, error) {
	return d.EncodeCommand(cmd.ID, cmd.Payload.Bytes())
}

// GetVersion asks the peer for its API version and software identifier.
func (c *Connection) GetVersion() (int32, string, error) {
	rest, err := c.Query(command.GetVersion, nil, nil)
	if err != nil {
		return 0, "", err
	}
	id, payload, err := c.NextResponse(rest)
	if err != nil {
		return 0, "", fmt.Errorf("traci: get_version response: %w", err)
	}
	if id != command.GetVersion {
		return 0, "", statusMismatch(command.GetVersion, id)
	}
	api, err := payload.ReadInt32()
	if err != nil {
		return 0, "", fmt.Errorf("traci: get_version api: %w", err)
	}
	software, err := payload.ReadString()
	if err != nil {
		return 0, "", fmt.Errorf("traci: get_version software: %w", err)
	}
	return api, software, nil
}

// SimulationStep advances the peer to targetTime seconds. Zero asks for a
// single step. The returned buffer holds any subscription responses.
func (c *Connection) SimulationStep(targetTime float64) (*buffer.Buffer, error) {
	payload := buffer.New()
	payload.WriteFloat64(targetTime)
	return c.Query(command.SimulationStep, payload, nil)
}

// CloseSimulation tells the peer to shut down and then closes the channel.
func (c *Connection) CloseSimulation() error {
	_, qerr := c.Query(command.Close, nil, nil)
	return errors.Join(qerr, c.Close())
}
