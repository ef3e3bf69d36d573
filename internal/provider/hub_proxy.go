package provider

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring/tracing"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"
)

const maxHubImageBytes = 32 << 20

// HubProxyProvider fetches stills from a home-automation hub's camera proxy.
// It holds no session; the bearer token rides on every request.
type HubProxyProvider struct {
	baseURL  string
	entityID string
	client   *http.Client
}

// NewHubProxyProvider builds a provider for an already validated base URL.
func NewHubProxyProvider(baseURL, entityID, token string, opts Options) *HubProxyProvider {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return &HubProxyProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		entityID: entityID,
		client: &http.Client{
			Timeout:   opts.HTTPTimeout,
			Transport: &oauth2.Transport{Source: src, Base: http.DefaultTransport},
		},
	}
}

func (p *HubProxyProvider) Kind() models.ProviderKind { return models.KindHubProxy }

func (p *HubProxyProvider) Connect(context.Context) error    { return nil }
func (p *HubProxyProvider) Disconnect(context.Context) error { return nil }

func (p *HubProxyProvider) proxyURL(route string) string {
	return fmt.Sprintf("%s/api/%s/%s", p.baseURL, route, url.PathEscape(p.entityID))
}

func (p *HubProxyProvider) StreamURL() (string, bool) {
	return p.proxyURL("camera_proxy_stream"), true
}

func (p *HubProxyProvider) CaptureFrame(ctx context.Context) (*frame.Frame, error) {
	const op = "hub.camera_proxy"
	ctx, span := tracing.StartSpan(ctx, "provider", op)
	defer span.End()
	span.SetAttributes(attribute.String("camera.entity_id", p.entityID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.proxyURL("camera_proxy"), nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidConfiguration, op, err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, apperrors.MapNetworkError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, apperrors.MapHTTPStatus(op, resp.StatusCode, snippet)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxHubImageBytes))
	if err != nil {
		return nil, apperrors.MapNetworkError(op, err)
	}
	f, err := frame.Decode(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFrameUnavailable, op, err)
	}
	return f, nil
}
