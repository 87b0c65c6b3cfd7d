package server

import (
	"encoding/json"
	"fmt"
)

// Identifies a daemon command or response kind.
type Command string

const (
	CmdBuild    Command = "build"
	CmdStatus   Command = "status"
	CmdShutdown Command = "shutdown"

	CmdOK    Command = "ok"
	CmdError Command = "error"
)

// Wire format for a single message. Every request and response is one
// envelope, JSON-encoded on a single line.
type Envelope struct {
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Payload of a build command.
type BuildRequest struct {
	Context   string   `json:"context"`             // Project directory to build.
	Output    string   `json:"output,omitempty"`    // Directory for the exported image.
	Platforms []string `json:"platforms,omitempty"` // Target platforms.
}

// Payload of a successful build response.
type BuildResult struct {
	Output  string `json:"output"`
	BuildID string `json:"build_id"`
}

// Payload of a status response.
type StatusResult struct {
	Running bool   `json:"running"`
	Version string `json:"version"`
	Pid     int    `json:"pid"`
	Uptime  string `json:"uptime"`
	Builds  int    `json:"builds"`
}

// Payload of an error response.
type ErrorResult struct {
	Message string `json:"message"`
}

// Serializes a command and payload into an envelope.
func Encode(cmd Command, payload any) ([]byte, error) {
	env := Envelope{Command: cmd}

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
		env.Payload = data
	}

	return json.Marshal(env)
}

// Deserializes an envelope and returns its command and raw payload.
func Decode(data []byte) (*Envelope, json.RawMessage, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	if env.Command == "" {
		return nil, nil, fmt.Errorf("%w: missing command", ErrProtocol)
	}
	return &env, env.Payload, nil
}

// Deserializes a raw payload into the given type.
func DecodePayload[T any](payload json.RawMessage) (*T, error) {
	var v T
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &v); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrProtocol, err)
		}
	}
	return &v, nil
}
