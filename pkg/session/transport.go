package session

import "errors"

// ErrTransportClosed indicates the transport went away. The session
// drops to disconnected and stops writing until a new transport is
// supplied; re-opening is the owner's job.
var ErrTransportClosed = errors.New("transport closed")

// Transport is the serial link the session drives. The session never
// discovers, opens or closes ports itself.
type Transport interface {
	// Write sends one complete frame.
	Write(p []byte) error
	// ReadAvailable returns pending bytes without blocking; empty when
	// nothing is waiting.
	ReadAvailable() []byte
	// IsOpen reports whether the link is still usable.
	IsOpen() bool
}
