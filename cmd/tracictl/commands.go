package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seyedmohammadhosseini/veins/internal/config"
	"github.com/seyedmohammadhosseini/veins/internal/coords"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/buffer"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/command"
	"github.com/seyedmohammadhosseini/veins/internal/protocol/tagged"
	"github.com/seyedmohammadhosseini/veins/internal/traci"
)

func (a *app) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the peer's API version and software identifier",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			api, software, err := conn.GetVersion()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "api=%d software=%q\n", api, software)
			return nil
		},
	}
}

func (a *app) stepCmd() *cobra.Command {
	var until float64
	var count int
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Advance the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be positive")
			}
			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			for i := 0; i < count; i++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}
				rest, err := conn.SimulationStep(until)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "step=%d response_bytes=%d\n", i+1, rest.Remaining())
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&until, "until", 0, "target simulation time in seconds; 0 performs one step")
	cmd.Flags().IntVar(&count, "count", 1, "number of step commands to send")
	return cmd
}

func (a *app) closeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Ask the peer to end the simulation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			if err := conn.CloseSimulation(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "simulation closed")
			return nil
		},
	}
}

func (a *app) queryCmd() *cobra.Command {
	var rawID, rawPayload string
	var decode bool
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Send one raw command and print the response",
		Long: "query sends a command id with a hex encoded payload and prints the status " +
			"and the remaining response bytes. With --decode each response command is " +
			"read as <variable><object id><typed value>.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := parseCommandID(rawID)
			if err != nil {
				return err
			}
			payload, err := hex.DecodeString(strings.ReplaceAll(rawPayload, " ", ""))
			if err != nil {
				return fmt.Errorf("--hex: %w", err)
			}
			conn, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			b := buffer.New()
			b.WriteBytes(payload)
			var res traci.Result
			rest, err := conn.Do(traci.MakeCommand(id, b), &res)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "command=%s success=%t not_implemented=%t message=%q\n",
				command.Name(id), res.Success, res.NotImpl, res.Message)
			if !res.Success && !res.NotImpl {
				return fmt.Errorf("%s: peer reported error: %s", command.Name(id), res.Message)
			}
			if !decode {
				fmt.Fprintf(out, "rest=%s\n", hex.EncodeToString(rest.Bytes()[rest.Cursor():]))
				return nil
			}
			for !rest.EOF() {
				line, err := describeResponse(conn, rest)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rawID, "id", "", "command id, decimal or 0x hex")
	cmd.Flags().StringVar(&rawPayload, "hex", "", "payload bytes as hex")
	cmd.Flags().BoolVar(&decode, "decode", false, "decode get-variable style responses")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

func parseCommandID(raw string) (uint8, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(raw), 0, 8)
	if err != nil {
		return 0, fmt.Errorf("--id %q: %w", raw, err)
	}
	return uint8(v), nil
}

// describeResponse renders one get-variable response command.
func describeResponse(conn *traci.Connection, rest *buffer.Buffer) (string, error) {
	id, body, err := conn.NextResponse(rest)
	if err != nil {
		return "", err
	}
	variable, err := body.ReadUint8()
	if err != nil {
		return "", err
	}
	object, err := body.ReadString()
	if err != nil {
		return "", err
	}
	v, err := tagged.Read(body)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("response=%s variable=0x%02x object=%q value=%s",
		command.Name(id), variable, object, v.Format()), nil
}

func (a *app) convertCmd() *cobra.Command {
	var x, y, heading float64
	var toPeer bool
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a position and heading using the configured net bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t, err := a.cfg.Transform()
			if err != nil {
				return fmt.Errorf("convert needs [coordinates] lower_left/upper_right: %w", err)
			}
			conv, err := coords.NewHeadingConvention(a.cfg.Coordinates.Heading)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if toPeer {
				p, err := t.ToPeer(coords.Coord{X: x, Y: y})
				if err != nil {
					return err
				}
				h := conv.ToPeer(coords.Heading(heading))
				fmt.Fprintf(out, "peer x=%.6f y=%.6f heading=%.6f\n", p.X, p.Y, float64(h))
				return nil
			}
			c, err := t.ToLocal(coords.PeerCoord{X: x, Y: y})
			if err != nil {
				return err
			}
			h := conv.ToLocal(coords.PeerHeading(heading))
			fmt.Fprintf(out, "local x=%.6f y=%.6f heading=%.6f\n", c.X, c.Y, h.Radians())
			return nil
		},
	}
	cmd.Flags().Float64Var(&x, "x", 0, "x coordinate")
	cmd.Flags().Float64Var(&y, "y", 0, "y coordinate")
	cmd.Flags().Float64Var(&heading, "heading", 0, "heading; peer degrees, or local radians with --to-peer")
	cmd.Flags().BoolVar(&toPeer, "to-peer", false, "convert local to peer instead")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := config.Render(a.cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
