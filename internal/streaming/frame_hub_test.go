package streaming

import (
	"image/color"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T, opts FrameHubOptions) (*FrameHub, string) {
	t.Helper()
	hub := NewFrameHub(opts)
	hub.Start()
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(func() {
		hub.Stop()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func testFrame(t *testing.T) *frame.Frame {
	t.Helper()
	f, err := frame.Decode(frame.SolidPNG(6, 4, color.RGBA{B: 255, A: 255}))
	require.NoError(t, err)
	return f
}

func readFrame(t *testing.T, conn *websocket.Conn) (FrameHeader, []byte) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var hdr FrameHeader
	require.NoError(t, conn.ReadJSON(&hdr))
	kind, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, websocket.BinaryMessage, kind)
	return hdr, data
}

func TestFrameHubBroadcast(t *testing.T) {
	hub, url := startHub(t, FrameHubOptions{})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	cam := models.NewCameraConfig("yard", models.KindRTSP)
	hub.Publish(cam, testFrame(t))

	hdr, data := readFrame(t, conn)
	assert.Equal(t, cam.ID, hdr.CameraID)
	assert.Equal(t, "jpeg", hdr.Format)
	assert.Equal(t, 6, hdr.Width)
	assert.Equal(t, len(data), hdr.Size)
	decoded, err := frame.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "jpeg", decoded.Format)
}

func TestFrameHubCameraFilter(t *testing.T) {
	hub, url := startHub(t, FrameHubOptions{})
	one := models.NewCameraConfig("one", models.KindRTSP)
	two := models.NewCameraConfig("two", models.KindHubProxy)

	a := dial(t, url+"?camera_id="+one.ID)
	b := dial(t, url+"?camera_id="+two.ID)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	f := testFrame(t)
	hub.Publish(one, f)
	hub.Publish(two, f)

	hdrA, _ := readFrame(t, a)
	hdrB, _ := readFrame(t, b)
	assert.Equal(t, one.ID, hdrA.CameraID)
	assert.Equal(t, two.ID, hdrB.CameraID)
}

func TestFrameHubConnectionLimit(t *testing.T) {
	hub, url := startHub(t, FrameHubOptions{MaxConnections: 1})
	dial(t, url)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFrameHubClientLeaves(t *testing.T) {
	hub, url := startHub(t, FrameHubOptions{})
	conn := dial(t, url)
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 1 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.ConnectionCount() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestPublishWithoutSubscribersIsCheap(t *testing.T) {
	var hub *FrameHub
	hub.Publish(models.CameraConfig{}, nil)
	NewFrameHub(FrameHubOptions{}).Publish(models.NewCameraConfig("x", models.KindRTSP), testFrame(t))
}
