package provider

import (
	"context"
	"encoding/base64"
	"fmt"
	"image/color"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"camgate-go/internal/credential"
	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

// fakeVendorCamera speaks the local JSON API over TLS.
type fakeVendorCamera struct {
	srv       *httptest.Server
	image     []byte
	logins    int32
	snapshots int32

	mu          sync.Mutex
	loginBody   string // raw login response, overrides the default
	expireOnce  bool
	issuedToken string
}

func newFakeVendorCamera(t *testing.T) *fakeVendorCamera {
	t.Helper()
	c := &fakeVendorCamera{
		image:       frame.SolidJPEG(8, 6, color.RGBA{G: 180, A: 255}),
		issuedToken: "abc",
	}
	c.srv = httptest.NewTLSServer(http.HandlerFunc(c.handle))
	t.Cleanup(c.srv.Close)
	return c
}

func (c *fakeVendorCamera) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	c.mu.Lock()
	defer c.mu.Unlock()

	switch gjson.GetBytes(body, "method").String() {
	case "login":
		atomic.AddInt32(&c.logins, 1)
		if gjson.GetBytes(body, "params.password").String() != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if c.loginBody != "" {
			_, _ = io.WriteString(w, c.loginBody)
			return
		}
		_, _ = fmt.Fprintf(w, `{"error_code":0,"result":{"token":%q}}`, c.issuedToken)
	case "getSnapshot":
		atomic.AddInt32(&c.snapshots, 1)
		if r.URL.Query().Get("token") != c.issuedToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if c.expireOnce {
			c.expireOnce = false
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = fmt.Fprintf(w, `{"error_code":0,"result":{"image":%q}}`, base64.StdEncoding.EncodeToString(c.image))
	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func (c *fakeVendorCamera) provider(t *testing.T, password string) Provider {
	t.Helper()
	ctx := context.Background()
	host, port := hostPort(t, c.srv.URL)
	store := credential.NewMemoryStore("")
	cfg := models.NewCameraConfig("door", models.KindVendorLocal)
	cfg.Host, cfg.Port, cfg.Username = host, port, "admin"
	require.NoError(t, store.Set(ctx, cfg.SecretKey(), password))
	opts := DefaultOptions()
	opts.InsecureTLS = true
	p, err := NewFactory(store, opts).New(ctx, cfg)
	require.NoError(t, err)
	return p
}

func TestVendorLocalLoginAndSnapshot(t *testing.T) {
	cam := newFakeVendorCamera(t)
	p := cam.provider(t, "secret")

	_, ok := p.StreamURL()
	assert.False(t, ok, "no stream url before login")

	f, err := p.CaptureFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f.Format)
	assert.Equal(t, cam.image, f.Data)
	assert.EqualValues(t, 1, atomic.LoadInt32(&cam.logins))

	stream, ok := p.StreamURL()
	require.True(t, ok)
	assert.Contains(t, stream, "token=abc")

	require.NoError(t, p.Disconnect(context.Background()))
	_, ok = p.StreamURL()
	assert.False(t, ok)
}

func TestVendorLocalMissingTokenIsInvalidResponse(t *testing.T) {
	cam := newFakeVendorCamera(t)
	cam.loginBody = `{"error_code":0,"result":{}}`
	p := cam.provider(t, "secret")

	err := p.Connect(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInvalidResponse)
	_, ok := p.StreamURL()
	assert.False(t, ok, "no token may be stored")

	_, err = p.CaptureFrame(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInvalidResponse)
	assert.Zero(t, atomic.LoadInt32(&cam.snapshots))
}

func TestVendorLocalWrongPassword(t *testing.T) {
	cam := newFakeVendorCamera(t)
	p := cam.provider(t, "wrong")
	require.ErrorIs(t, p.Connect(context.Background()), apperrors.ErrUnauthorized)
}

func TestVendorLocalConcurrentCallsLoginOnce(t *testing.T) {
	cam := newFakeVendorCamera(t)
	p := cam.provider(t, "secret")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.CaptureFrame(context.Background())
			errs <- err
		}()
		go func() {
			defer wg.Done()
			errs <- p.Connect(context.Background())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	assert.EqualValues(t, 1, atomic.LoadInt32(&cam.logins))
	assert.EqualValues(t, 8, atomic.LoadInt32(&cam.snapshots))
}

func TestVendorLocalExpiredTokenRelogs(t *testing.T) {
	cam := newFakeVendorCamera(t)
	p := cam.provider(t, "secret")
	require.NoError(t, p.Connect(context.Background()))

	cam.mu.Lock()
	cam.expireOnce = true
	cam.mu.Unlock()

	_, err := p.CaptureFrame(context.Background())
	require.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, ok := p.StreamURL()
	assert.False(t, ok, "401 clears the token")

	_, err = p.CaptureFrame(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&cam.logins))
}

func TestVendorLocalMalformedImage(t *testing.T) {
	cam := newFakeVendorCamera(t)
	cam.image = []byte("not an image")
	p := cam.provider(t, "secret")
	_, err := p.CaptureFrame(context.Background())
	require.ErrorIs(t, err, apperrors.ErrInvalidResponse)
}
