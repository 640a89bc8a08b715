package divecore

import "github.com/divebridge/divecore/internal/constants"

// Re-exported tunables for callers that want to override defaults
// without reaching into internal packages.
const (
	MaxRetries           = constants.MaxRetries
	TransportReadTimeout = constants.TransportReadTimeout
	DefaultPacketSize    = constants.DefaultPacketSize
)
