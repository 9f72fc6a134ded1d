// Package traci is the client side of a TraCI style command/response link to
// a traffic microsimulation peer.
//
// A Connection owns one byte channel and runs strictly one request at a time:
// Query frames a command, blocks for the single response frame, decodes the
// leading status sub-message and hands back the remaining bytes for the
// caller to interpret. The package knows nothing about individual command
// payloads beyond the handful of convenience commands in commands.go.
//
// Connections also carry the per-peer coordinate and heading conversions,
// configured once the peer has announced its network boundaries.
package traci
