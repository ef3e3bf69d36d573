package provider

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"camgate-go/internal/constants"
	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	"camgate-go/internal/monitoring/tracing"
	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// vendorSession owns the bearer token. Every exchange with the camera runs
// with mu held so a login can never interleave with a snapshot.
type vendorSession struct {
	mu    sync.Mutex
	token string
}

// VendorLocalProvider talks to a camera's local JSON API: login for a token,
// then getSnapshot with the token as a query parameter.
type VendorLocalProvider struct {
	endpoint string
	username string
	password string
	client   *resty.Client
	session  vendorSession
}

// NewVendorLocalProvider builds a provider for host[:port]. A zero port uses
// the HTTPS default.
func NewVendorLocalProvider(host string, port int, username, password string, opts Options) *VendorLocalProvider {
	client := resty.New().
		SetTimeout(opts.HTTPTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", constants.ServiceName+"/"+constants.Version)
	if opts.InsecureTLS {
		// local cameras ship self-signed certificates
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true}) // #nosec G402
	}
	return &VendorLocalProvider{
		endpoint: vendorEndpoint(host, port),
		username: username,
		password: password,
		client:   client,
	}
}

func vendorEndpoint(host string, port int) string {
	authority := host
	if port > 0 && port != 443 {
		authority = net.JoinHostPort(host, strconv.Itoa(port))
	} else if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		authority = "[" + host + "]"
	}
	return (&url.URL{Scheme: "https", Host: authority, Path: "/"}).String()
}

func (p *VendorLocalProvider) Kind() models.ProviderKind { return models.KindVendorLocal }

func (p *VendorLocalProvider) Connect(ctx context.Context) error {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	if p.session.token != "" {
		return nil
	}
	return p.loginLocked(ctx)
}

func (p *VendorLocalProvider) loginLocked(ctx context.Context) error {
	const op = "vendor.login"
	ctx, span := tracing.StartSpan(ctx, "provider", op)
	defer span.End()

	body, _ := sjson.SetBytes([]byte(`{}`), "method", "login")
	body, _ = sjson.SetBytes(body, "params.username", p.username)
	body, _ = sjson.SetBytes(body, "params.password", p.password)

	resp, err := p.client.R().SetContext(ctx).SetBody(body).Post(p.endpoint)
	if err != nil {
		monitoring.ProviderLoginsTotal.WithLabelValues("connection_failed").Inc()
		return apperrors.MapNetworkError(op, err)
	}
	if resp.StatusCode() != http.StatusOK {
		cerr := apperrors.MapHTTPStatus(op, resp.StatusCode(), nil)
		monitoring.ProviderLoginsTotal.WithLabelValues(string(cerr.Kind)).Inc()
		return cerr
	}

	token := gjson.GetBytes(resp.Body(), "result.token").String()
	if token == "" {
		monitoring.ProviderLoginsTotal.WithLabelValues(string(apperrors.KindInvalidResponse)).Inc()
		return apperrors.New(apperrors.KindInvalidResponse, op, "login response has no result.token")
	}
	p.session.token = token
	monitoring.ProviderLoginsTotal.WithLabelValues("ok").Inc()
	log.WithFields(log.Fields{"component": "vendor-local", "endpoint": p.endpoint}).Debug("logged in")
	return nil
}

func (p *VendorLocalProvider) CaptureFrame(ctx context.Context) (*frame.Frame, error) {
	const op = "vendor.snapshot"
	p.session.mu.Lock()
	defer p.session.mu.Unlock()

	if p.session.token == "" {
		if err := p.loginLocked(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := tracing.StartSpan(ctx, "provider", op)
	defer span.End()

	body, _ := sjson.SetBytes([]byte(`{}`), "method", "getSnapshot")
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("token", p.session.token).
		SetBody(body).
		Post(p.endpoint)
	if err != nil {
		return nil, apperrors.MapNetworkError(op, err)
	}
	if resp.StatusCode() == http.StatusUnauthorized {
		// token expired; next call logs in again
		p.session.token = ""
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, apperrors.MapHTTPStatus(op, resp.StatusCode(), nil)
	}

	encoded := gjson.GetBytes(resp.Body(), "result.image").String()
	if encoded == "" {
		return nil, apperrors.New(apperrors.KindInvalidResponse, op, "snapshot response has no result.image")
	}
	if i := strings.Index(encoded, ";base64,"); i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidResponse, op, err)
	}
	f, err := frame.Decode(raw)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInvalidResponse, op, err)
	}
	return f, nil
}

// StreamURL carries the session token, so it exists only after login.
func (p *VendorLocalProvider) StreamURL() (string, bool) {
	p.session.mu.Lock()
	defer p.session.mu.Unlock()
	if p.session.token == "" {
		return "", false
	}
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", false
	}
	q := u.Query()
	q.Set("token", p.session.token)
	u.RawQuery = q.Encode()
	return u.String(), true
}

// Disconnect forgets the token. The camera has no logout call.
func (p *VendorLocalProvider) Disconnect(context.Context) error {
	p.session.mu.Lock()
	p.session.token = ""
	p.session.mu.Unlock()
	return nil
}
