package provider

import (
	"context"
	"net/url"
	"strings"

	"camgate-go/internal/credential"
	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/models"
)

// Factory turns a CameraConfig plus its stored secret into a Provider. New
// validates and assembles only; it never touches the network.
type Factory struct {
	secrets credential.Store
	opts    Options
	opener  SessionOpener
}

// NewFactory creates a factory reading secrets from store.
func NewFactory(store credential.Store, opts Options) *Factory {
	return &Factory{secrets: store, opts: opts.withDefaults()}
}

// WithSessionOpener overrides how RTSP media sessions are opened.
func (f *Factory) WithSessionOpener(open SessionOpener) *Factory {
	f.opener = open
	return f
}

// Options returns the effective provider options.
func (f *Factory) Options() Options { return f.opts }

// New builds the provider for cfg.
func (f *Factory) New(ctx context.Context, cfg models.CameraConfig) (Provider, error) {
	switch cfg.Kind {
	case models.KindRTSP:
		return f.newRTSP(ctx, cfg)
	case models.KindVendorLocal:
		return f.newVendorLocal(ctx, cfg)
	case models.KindHubProxy:
		return f.newHubProxy(ctx, cfg)
	default:
		return nil, apperrors.Newf(apperrors.KindUnsupported, "factory", "unknown provider kind %q", cfg.Kind)
	}
}

func (f *Factory) secret(ctx context.Context, cfg models.CameraConfig) (string, bool) {
	return credential.Resolve(ctx, f.secrets, cfg.SecretKey())
}

func (f *Factory) newRTSP(ctx context.Context, cfg models.CameraConfig) (Provider, error) {
	const op = "factory.rtsp"
	raw := strings.TrimSpace(cfg.StreamURL)
	if raw == "" {
		return nil, apperrors.New(apperrors.KindInvalidConfiguration, op, "stream url is required")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidConfiguration, op, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "rtsp" && scheme != "rtsps") || u.Host == "" {
		return nil, apperrors.Newf(apperrors.KindInvalidConfiguration, op, "not an rtsp url: %s", u.Redacted())
	}
	if user := strings.TrimSpace(cfg.Username); user != "" {
		if pass, ok := f.secret(ctx, cfg); ok {
			u.User = url.UserPassword(user, pass)
		} else {
			u.User = url.User(user)
		}
	}
	return NewRTSPProvider(u, f.opts.RTSP, f.opener), nil
}

func (f *Factory) newVendorLocal(ctx context.Context, cfg models.CameraConfig) (Provider, error) {
	const op = "factory.vendor_local"
	host := strings.TrimSpace(cfg.Host)
	if host == "" {
		return nil, apperrors.New(apperrors.KindInvalidConfiguration, op, "host is required")
	}
	user := strings.TrimSpace(cfg.Username)
	if user == "" {
		return nil, apperrors.New(apperrors.KindMissingCredentials, op, "username is required")
	}
	pass, ok := f.secret(ctx, cfg)
	if !ok {
		return nil, apperrors.New(apperrors.KindMissingCredentials, op, "no stored password")
	}
	port := cfg.Port
	if port == 0 {
		port = f.opts.DefaultVendorPort
	}
	return NewVendorLocalProvider(host, port, user, pass, f.opts), nil
}

func (f *Factory) newHubProxy(ctx context.Context, cfg models.CameraConfig) (Provider, error) {
	const op = "factory.hub_proxy"
	base := strings.TrimSpace(cfg.HubBaseURL)
	if base == "" {
		return nil, apperrors.New(apperrors.KindMissingCredentials, op, "hub base url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, apperrors.Newf(apperrors.KindInvalidConfiguration, op, "invalid hub base url %q", base)
	}
	entity := strings.TrimSpace(cfg.EntityID)
	if entity == "" {
		return nil, apperrors.New(apperrors.KindMissingCredentials, op, "entity id is required")
	}
	token, ok := f.secret(ctx, cfg)
	if !ok {
		return nil, apperrors.New(apperrors.KindMissingCredentials, op, "no stored token")
	}
	return NewHubProxyProvider(base, entity, token, f.opts), nil
}
