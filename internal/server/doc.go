// Package server implements the kiln build daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded commands
// from the kiln CLI. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the command, and writes the result back before
// closing the connection.
//
// Supported commands are building images, querying daemon status, and
// initiating shutdown. Build commands are delegated to the pipeline
// package; the daemon exists so that multiple CLI invocations share one
// long-lived dependency cache and build queue.
//
// Example usage:
//
//	srv, err := server.New(server.Config{})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
