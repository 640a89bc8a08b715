// Package constants holds the tunables shared by the transfer, memory
// reader, and extractor layers.
package constants

import "time"

// Retry and timing constants for the packet transfer layer.
//
// The devices occasionally drop a command under electrical noise; bounded
// retries are both necessary and sufficient, while I/O errors (a
// disconnected cable) are non-recoverable at this layer.
const (
	// MaxRetries is the number of retries permitted after the first
	// attempt (i.e. MaxRetries+1 total attempts) on TimeoutError or
	// ProtocolError before the transfer layer surfaces the last error.
	MaxRetries = 2

	// TransportReadTimeout is the fixed deadline applied to every
	// transport read.
	TransportReadTimeout = 3000 * time.Millisecond
)

// DefaultPacketSize is used by Layouts that do not specify one explicitly.
const DefaultPacketSize = 256
