package provider

import (
	"context"

	"camgate-go/internal/frame"
	"camgate-go/internal/models"
)

// Provider is the uniform contract for one camera backend. A provider is
// owned by the caller that built it and is not shared between callers.
//
// Connect is idempotent. Disconnect is safe when not connected. CaptureFrame
// may connect implicitly. Every error returned is an *errors.CameraError.
type Provider interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	CaptureFrame(ctx context.Context) (*frame.Frame, error)
	// StreamURL returns a URL suitable for continuous viewing, if any.
	StreamURL() (string, bool)
	Kind() models.ProviderKind
}

var (
	_ Provider = (*RTSPProvider)(nil)
	_ Provider = (*VendorLocalProvider)(nil)
	_ Provider = (*HubProxyProvider)(nil)
)
