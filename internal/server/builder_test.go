package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"camgate-go/internal/camera"
	"camgate-go/internal/config"
	"camgate-go/internal/credential"
	"camgate-go/internal/discovery"
	"camgate-go/internal/monitor"
	"camgate-go/internal/provider"
	"camgate-go/internal/runtime"
	"camgate-go/internal/storage"
	"camgate-go/internal/streaming"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noBrowser struct{}

func (noBrowser) Browse(context.Context, string, string, func(discovery.Entry)) error { return nil }
func (noBrowser) Resolve(context.Context, string, string, string) (discovery.Entry, error) {
	return discovery.Entry{}, discovery.ErrNotResolved
}

func testDeps(t *testing.T, mutate func(*config.FileConfig)) Dependencies {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RateLimit.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}

	fb := storage.NewFileBackend(t.TempDir())
	require.NoError(t, fb.Initialize(context.Background()))
	secrets := credential.NewMemoryStore("")
	frames := streaming.NewFrameHub(streaming.FrameHubOptions{})
	tasks := runtime.NewTaskManager(context.Background())
	mon := monitor.New(tasks)
	t.Cleanup(func() {
		mon.StopWait(time.Second)
		tasks.StopAll()
		frames.Stop()
	})
	return Dependencies{
		Config:    func() *config.FileConfig { return cfg },
		Storage:   fb,
		Cameras:   camera.NewManager(fb, secrets, provider.NewFactory(secrets, provider.DefaultOptions())),
		Monitor:   mon,
		Discovery: discovery.NewHub(noBrowser{}, discovery.Options{Timeout: time.Second}),
		Frames:    frames,
		Tasks:     tasks,
	}
}

func get(engine http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	engine := BuildEngine(testDeps(t, nil))
	w := get(engine, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHealthzListsBackgroundTasks(t *testing.T) {
	deps := testDeps(t, nil)
	deps.Monitor.Start(time.Hour, deps.Cameras, nil)
	engine := BuildEngine(deps)

	w := get(engine, "/healthz", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"stats":{"total":1,"running":1`)
	assert.Contains(t, body, `"name":"`+monitor.TaskName+`"`)
	assert.Contains(t, body, `"status":"running"`)
}

func TestMetricsEndpoint(t *testing.T) {
	engine := BuildEngine(testDeps(t, nil))
	w := get(engine, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "camgate_")
}

func TestManagementKeyEnforced(t *testing.T) {
	engine := BuildEngine(testDeps(t, func(cfg *config.FileConfig) {
		cfg.Security.ManagementKey = "mgmt"
	}))

	t.Run("missing key", func(t *testing.T) {
		w := get(engine, "/api/cameras", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
	t.Run("valid key", func(t *testing.T) {
		w := get(engine, "/api/cameras", map[string]string{"X-Management-Key": "mgmt"})
		assert.Equal(t, http.StatusOK, w.Code)
	})
	t.Run("health stays open", func(t *testing.T) {
		w := get(engine, "/healthz", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestRemoteGuard(t *testing.T) {
	// httptest requests come from 192.0.2.1
	closed := BuildEngine(testDeps(t, func(cfg *config.FileConfig) {
		cfg.Security.AllowRemote = false
	}))
	assert.Equal(t, http.StatusForbidden, get(closed, "/api/cameras", nil).Code)

	req := httptest.NewRequest(http.MethodGet, "/api/cameras", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	w := httptest.NewRecorder()
	closed.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	listed := BuildEngine(testDeps(t, func(cfg *config.FileConfig) {
		cfg.Security.RemoteAllowIPs = []string{"192.0.2.0/24"}
	}))
	assert.Equal(t, http.StatusOK, get(listed, "/api/cameras", nil).Code)

	other := BuildEngine(testDeps(t, func(cfg *config.FileConfig) {
		cfg.Security.RemoteAllowIPs = []string{"10.0.0.0/8"}
	}))
	assert.Equal(t, http.StatusForbidden, get(other, "/api/cameras", nil).Code)
}

func TestFrameWebsocketRequiresKey(t *testing.T) {
	deps := testDeps(t, func(cfg *config.FileConfig) {
		cfg.Security.ManagementKey = "mgmt"
	})
	srv := httptest.NewServer(BuildEngine(deps))
	t.Cleanup(srv.Close)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/frames"

	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?key=mgmt", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	assert.Eventually(t, func() bool { return deps.Frames.ConnectionCount() == 1 }, time.Second, 10*time.Millisecond)
}
