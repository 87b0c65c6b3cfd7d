package cli

import (
	"context"
	"log/slog"

	"github.com/kilnproject/kiln/internal/server"
)

// Represents the 'kiln daemon' command.
type DaemonCmd struct {
	Socket   string `short:"s" help:"Override the default Unix socket path." placeholder:"PATH"`
	CacheDir string `help:"Override the dependency cache location." placeholder:"DIR"`
}

// Executes the daemon command.
//
// Starts the build server on a Unix domain socket and blocks until the
// context is cancelled (e.g. via SIGINT or SIGTERM).
func (c *DaemonCmd) Run(ctx context.Context) error {
	srv, err := server.New(server.Config{
		SocketPath: c.Socket,
		CacheDir:   c.CacheDir,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	slog.Info("kiln daemon is running")

	// The server stops on its own when a client sends shutdown.
	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case <-srv.Done():
	}

	return srv.Stop()
}
