package server

import "errors"

// Returned when the daemon fails to start, listen, or dispatch.
var ErrServer = errors.New("server error")

// Returned when a received message cannot be decoded.
var ErrProtocol = errors.New("protocol error")
