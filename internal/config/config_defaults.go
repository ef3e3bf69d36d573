package config

import (
	"time"

	"camgate-go/internal/constants"
	"camgate-go/internal/credential"
	"camgate-go/internal/logging"
	"camgate-go/internal/storage"
)

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *FileConfig {
	return &FileConfig{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8780,
		},
		Security: SecurityConfig{AllowRemote: true},
		Storage: storage.Options{
			Backend:       "file",
			BaseDir:       "./data",
			RedisPrefix:   "camgate:",
			MongoDatabase: "camgate",
		},
		Credentials: CredentialsConfig{
			Backend:   "memory",
			Namespace: credential.DefaultNamespace,
			Redis:     credential.RedisStoreConfig{Prefix: "camgate:secret:"},
		},
		HTTP: HTTPConfig{RequestTimeoutSec: 20},
		RTSP: RTSPConfig{
			ReadyAttempts:  constants.RTSPReadyAttempts,
			FrameAttempts:  constants.RTSPFrameAttempts,
			PollIntervalMS: int(constants.RTSPPollInterval / time.Millisecond),
			FFmpegPath:     "ffmpeg",
			Transport:      "tcp",
		},
		VendorLocal: VendorLocalConfig{InsecureTLS: true, DefaultPort: 443},
		Discovery: DiscoveryConfig{
			TimeoutSec: int(constants.DefaultDiscoveryTimeout / time.Second),
			Domain:     "local.",
		},
		Monitor:   MonitorConfig{IntervalSec: 5},
		RateLimit: RateLimitConfig{Enabled: true, RPS: 10, Burst: 20},
	}
}

// HTTPTimeout is the per-request timeout for provider HTTP calls.
func (c *FileConfig) HTTPTimeout() time.Duration {
	if c.HTTP.RequestTimeoutSec <= 0 {
		return constants.ProviderHTTPTimeout
	}
	return time.Duration(c.HTTP.RequestTimeoutSec) * time.Second
}

// RTSPPollInterval is the sleep between RTSP readiness probes.
func (c *FileConfig) RTSPPollInterval() time.Duration {
	if c.RTSP.PollIntervalMS <= 0 {
		return constants.RTSPPollInterval
	}
	return time.Duration(c.RTSP.PollIntervalMS) * time.Millisecond
}

// DiscoveryTimeout is how long a discovery scan browses.
func (c *FileConfig) DiscoveryTimeout() time.Duration {
	if c.Discovery.TimeoutSec <= 0 {
		return constants.DefaultDiscoveryTimeout
	}
	return time.Duration(c.Discovery.TimeoutSec) * time.Second
}

// MonitorInterval is zero when monitoring is disabled.
func (c *FileConfig) MonitorInterval() time.Duration {
	if c.Monitor.IntervalSec <= 0 {
		return 0
	}
	return time.Duration(c.Monitor.IntervalSec) * time.Second
}

// LoggingOptions maps the security block onto logger setup.
func (c *FileConfig) LoggingOptions() logging.Options {
	return logging.Options{
		Debug:   c.Security.Debug,
		Format:  c.Security.LogFormat,
		Level:   c.Security.LogLevel,
		LogFile: c.Security.LogFile,
	}
}

// Clone returns a deep-enough copy for safe handoff to callbacks.
func (c *FileConfig) Clone() *FileConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	if c.Security.RemoteAllowIPs != nil {
		out.Security.RemoteAllowIPs = append([]string(nil), c.Security.RemoteAllowIPs...)
	}
	return &out
}
