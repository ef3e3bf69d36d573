package provider

import (
	"context"
	"image/color"
	"net/http"
	"net/http/httptest"
	"testing"

	"camgate-go/internal/credential"
	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHubCamera(t *testing.T, base string) Provider {
	t.Helper()
	ctx := context.Background()
	store := credential.NewMemoryStore("")
	cfg := models.NewCameraConfig("porch", models.KindHubProxy)
	cfg.HubBaseURL, cfg.EntityID = base, "camera.porch"
	require.NoError(t, store.Set(ctx, cfg.SecretKey(), "tok"))
	p, err := NewFactory(store, DefaultOptions()).New(ctx, cfg)
	require.NoError(t, err)
	return p
}

func TestHubProxyCapture(t *testing.T) {
	img := frame.SolidPNG(4, 3, color.RGBA{R: 200, A: 255})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/camera_proxy/camera.porch", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(img)
	}))
	defer srv.Close()

	p := newHubCamera(t, srv.URL)
	require.NoError(t, p.Connect(context.Background()))
	f, err := p.CaptureFrame(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "png", f.Format)
	assert.Equal(t, 4, f.Bounds().Dx())
	assert.Equal(t, img, f.Data)

	stream, ok := p.StreamURL()
	require.True(t, ok)
	assert.Equal(t, srv.URL+"/api/camera_proxy_stream/camera.porch", stream)
}

func TestHubProxyStatusMapping(t *testing.T) {
	cases := []struct {
		status int
		body   []byte
		want   error
	}{
		{http.StatusUnauthorized, []byte("nope"), apperrors.ErrUnauthorized},
		// revoked long-lived tokens answer 403
		{http.StatusForbidden, []byte("forbidden"), apperrors.ErrUnauthorized},
		{http.StatusInternalServerError, []byte("boom"), apperrors.ErrConnectionFailed},
		{http.StatusNotFound, nil, apperrors.ErrConnectionFailed},
		{http.StatusOK, []byte("IMG"), apperrors.ErrFrameUnavailable},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write(tc.body)
		}))
		p := newHubCamera(t, srv.URL)
		_, err := p.CaptureFrame(context.Background())
		require.ErrorIs(t, err, tc.want, "status %d", tc.status)
		srv.Close()
	}
}

func TestHubProxyEscapesEntity(t *testing.T) {
	p := NewHubProxyProvider("http://hub.local/", "camera/with space", "tok", DefaultOptions())
	got, ok := p.StreamURL()
	require.True(t, ok)
	assert.Equal(t, "http://hub.local/api/camera_proxy_stream/camera%2Fwith%20space", got)
}

func TestHubProxyConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	p := newHubCamera(t, base)
	_, err := p.CaptureFrame(context.Background())
	require.ErrorIs(t, err, apperrors.ErrConnectionFailed)
}

func TestDisconnectIsIdempotent(t *testing.T) {
	ctx := context.Background()
	opts := DefaultOptions()
	providers := []Provider{
		NewHubProxyProvider("http://hub.local", "camera.porch", "tok", opts),
		NewVendorLocalProvider("127.0.0.1", 1, "admin", "pw", opts),
		NewRTSPProvider(mustURL(t, "rtsp://cam.local/stream"), opts.RTSP, func(string, RTSPOptions) (MediaSession, error) {
			return newFakeSession(), nil
		}),
	}
	for _, p := range providers {
		require.NoError(t, p.Disconnect(ctx), p.Kind())
		require.NoError(t, p.Disconnect(ctx), p.Kind())
	}
}
