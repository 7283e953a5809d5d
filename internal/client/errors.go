package client

import "errors"

// ErrNoRemoteStore is returned when neither a server address nor a database
// DSN is configured.
var ErrNoRemoteStore = errors.New("no remote store configured")
