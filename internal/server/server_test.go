package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kilnproject/kiln/internal/pipeline"
)

func startTestServer(t *testing.T, build BuildFunc) *Server {
	t.Helper()

	dir := t.TempDir()
	srv, err := New(Config{
		SocketPath: filepath.Join(dir, "kiln.sock"),
		PIDPath:    filepath.Join(dir, "kiln.pid"),
		Build:      build,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := srv.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { srv.Stop() })

	return srv
}

// Sends one request and reads one response over a fresh connection.
func exchange(t *testing.T, srv *Server, cmd Command, payload any) *Envelope {
	t.Helper()

	conn, err := net.Dial("unix", srv.socketPath)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	data, err := Encode(cmd, payload)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	data = append(data, byte(10))
	if _, err := conn.Write(data); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	line, err := bufio.NewReader(conn).ReadBytes(byte(10))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	env, _, err := Decode(line)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	return env
}

func TestServerStatus(t *testing.T) {
	srv := startTestServer(t, nil)

	env := exchange(t, srv, CmdStatus, nil)
	if env.Command != CmdOK {
		t.Fatalf("command = %s, want %s", env.Command, CmdOK)
	}

	status, err := DecodePayload[StatusResult](env.Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Running {
		t.Error("status reports not running")
	}
	if status.Builds != 0 {
		t.Errorf("builds = %d, want 0", status.Builds)
	}
}

func TestServerBuild(t *testing.T) {
	var mu sync.Mutex
	var got pipeline.Options
	srv := startTestServer(t, func(_ context.Context, opts pipeline.Options) (*pipeline.Result, error) {
		mu.Lock()
		got = opts
		mu.Unlock()
		return &pipeline.Result{Output: opts.Output, BuildID: "test-build"}, nil
	})

	env := exchange(t, srv, CmdBuild, &BuildRequest{
		Context:   "/srv/app",
		Output:    "/srv/app/dist",
		Platforms: []string{"linux/arm64"},
	})
	if env.Command != CmdOK {
		t.Fatalf("command = %s, want %s", env.Command, CmdOK)
	}

	result, err := DecodePayload[BuildResult](env.Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Output != "/srv/app/dist" || result.BuildID != "test-build" {
		t.Errorf("result = %+v", result)
	}

	mu.Lock()
	defer mu.Unlock()
	if got.ContextDir != "/srv/app" {
		t.Errorf("context = %q, want /srv/app", got.ContextDir)
	}
	if len(got.Platforms) != 1 || got.Platforms[0] != "linux/arm64" {
		t.Errorf("platforms = %v", got.Platforms)
	}

	// A completed build shows up in the status counters.
	env = exchange(t, srv, CmdStatus, nil)
	status, err := DecodePayload[StatusResult](env.Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Builds != 1 {
		t.Errorf("builds = %d, want 1", status.Builds)
	}
}

func TestServerBuildFailure(t *testing.T) {
	srv := startTestServer(t, func(context.Context, pipeline.Options) (*pipeline.Result, error) {
		return nil, errors.New("resolution failed")
	})

	env := exchange(t, srv, CmdBuild, &BuildRequest{Context: "/srv/app"})
	if env.Command != CmdError {
		t.Fatalf("command = %s, want %s", env.Command, CmdError)
	}

	result, err := DecodePayload[ErrorResult](env.Payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Message != "resolution failed" {
		t.Errorf("message = %q", result.Message)
	}
}

func TestServerStopIdempotent(t *testing.T) {
	srv := startTestServer(t, nil)

	if err := srv.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// A second stop must be a no-op, not a panic. The daemon reaches Stop
	// from both a client shutdown command and a signal.
	if err := srv.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServerShutdownCommand(t *testing.T) {
	srv := startTestServer(t, nil)

	env := exchange(t, srv, CmdShutdown, nil)
	if env.Command != CmdOK {
		t.Fatalf("command = %s, want %s", env.Command, CmdOK)
	}

	select {
	case <-srv.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop after shutdown command")
	}

	if err := srv.Stop(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestServerUnknownCommand(t *testing.T) {
	srv := startTestServer(t, nil)

	env := exchange(t, srv, Command("restart"), nil)
	if env.Command != CmdError {
		t.Fatalf("command = %s, want %s", env.Command, CmdError)
	}
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "pick a card\n"},
		{"missing command", `{"payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode([]byte(tt.input)); !errors.Is(err, ErrProtocol) {
				t.Fatalf("err = %v, want ErrProtocol", err)
			}
		})
	}
}
