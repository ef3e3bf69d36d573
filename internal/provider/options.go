package provider

import (
	"time"

	"camgate-go/internal/config"
	"camgate-go/internal/constants"
)

// RTSPOptions tunes the media session and the readiness/frame polling.
type RTSPOptions struct {
	ReadyAttempts int
	FrameAttempts int
	PollInterval  time.Duration
	FFmpegPath    string
	Transport     string
}

// Options holds everything the factory needs besides the camera config.
type Options struct {
	HTTPTimeout       time.Duration
	InsecureTLS       bool
	DefaultVendorPort int
	RTSP              RTSPOptions
}

// DefaultOptions mirrors config.DefaultConfig.
func DefaultOptions() Options {
	return OptionsFromConfig(config.DefaultConfig())
}

// OptionsFromConfig extracts provider settings from the file config.
func OptionsFromConfig(cfg *config.FileConfig) Options {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return Options{
		HTTPTimeout:       cfg.HTTPTimeout(),
		InsecureTLS:       cfg.VendorLocal.InsecureTLS,
		DefaultVendorPort: cfg.VendorLocal.DefaultPort,
		RTSP: RTSPOptions{
			ReadyAttempts: cfg.RTSP.ReadyAttempts,
			FrameAttempts: cfg.RTSP.FrameAttempts,
			PollInterval:  cfg.RTSPPollInterval(),
			FFmpegPath:    cfg.RTSP.FFmpegPath,
			Transport:     cfg.RTSP.Transport,
		},
	}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.HTTPTimeout <= 0 {
		o.HTTPTimeout = constants.ProviderHTTPTimeout
	}
	if o.RTSP.ReadyAttempts <= 0 {
		o.RTSP.ReadyAttempts = constants.RTSPReadyAttempts
	}
	if o.RTSP.FrameAttempts <= 0 {
		o.RTSP.FrameAttempts = constants.RTSPFrameAttempts
	}
	if o.RTSP.PollInterval <= 0 {
		o.RTSP.PollInterval = constants.RTSPPollInterval
	}
	if o.RTSP.FFmpegPath == "" {
		o.RTSP.FFmpegPath = "ffmpeg"
	}
	if o.RTSP.Transport == "" {
		o.RTSP.Transport = "tcp"
	}
	return o
}
