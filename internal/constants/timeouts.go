package constants

import "time"

const (
	// ServerShutdownTimeout bounds graceful HTTP server shutdown.
	ServerShutdownTimeout = 30 * time.Second
	// StorageOpTimeout bounds a single storage backend call.
	StorageOpTimeout = 5 * time.Second
	// ProviderHTTPTimeout bounds one HTTP exchange with a camera or hub.
	ProviderHTTPTimeout = 20 * time.Second
	// DiscoveryResolveTimeout bounds resolution of one mDNS entry.
	DiscoveryResolveTimeout = 5 * time.Second
	// DefaultDiscoveryTimeout is the browse window when none is configured.
	DefaultDiscoveryTimeout = 10 * time.Second
)

// RTSP readiness polling defaults.
const (
	RTSPReadyAttempts = 20
	RTSPFrameAttempts = 10
	RTSPPollInterval  = 150 * time.Millisecond
)
