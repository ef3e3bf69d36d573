package streaming

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// FrameHeader precedes every binary frame on the socket.
type FrameHeader struct {
	Seq        uint64    `json:"seq"`
	CameraID   string    `json:"camera_id"`
	Name       string    `json:"name"`
	Provider   string    `json:"provider"`
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	CapturedAt time.Time `json:"captured_at"`
}

type outbound struct {
	header FrameHeader
	data   []byte
}

type client struct {
	conn         *websocket.Conn
	send         chan outbound
	cameraID     string // empty subscribes to every camera
	connected    time.Time
	lastActivity atomic.Int64
	closeOnce    sync.Once
}

func (c *client) touch() { c.lastActivity.Store(time.Now().UnixNano()) }

func (c *client) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastActivity.Load()))
}

// FrameHubOptions tunes connection limits.
type FrameHubOptions struct {
	MaxConnections  int
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	SendBuffer      int
	CheckOrigin     func(r *http.Request) bool
}

// FrameHub fans captured frames out to websocket subscribers. Each client
// has its own writer goroutine; a slow client drops frames instead of
// stalling the others.
type FrameHub struct {
	upgrader websocket.Upgrader
	opts     FrameHubOptions

	mu      sync.RWMutex
	clients map[*client]struct{}
	seq     atomic.Uint64

	stopCh   chan struct{}
	stopOnce sync.Once
}

// ErrMaxConnectionsReached is returned when the hub is full.
var ErrMaxConnectionsReached = errors.New("maximum websocket connections reached")

// NewFrameHub creates a hub; call Start to enable idle cleanup.
func NewFrameHub(opts FrameHubOptions) *FrameHub {
	if opts.MaxConnections <= 0 {
		opts.MaxConnections = 100
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 30 * time.Minute
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = 2 * time.Minute
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 8
	}
	h := &FrameHub{
		opts:    opts,
		clients: make(map[*client]struct{}),
		stopCh:  make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin:     opts.CheckOrigin,
	}
	return h
}

// Start launches the idle-connection sweeper.
func (h *FrameHub) Start() {
	go func() {
		ticker := time.NewTicker(h.opts.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				h.cleanupIdle()
			case <-h.stopCh:
				return
			}
		}
	}()
}

// Stop disconnects every client.
func (h *FrameHub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*client]struct{})
	h.mu.Unlock()
	for c := range clients {
		h.closeClient(c)
	}
	monitoring.FrameSubscribers.Set(0)
}

// ConnectionCount returns the number of subscribers.
func (h *FrameHub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams frames until the peer leaves.
// The optional camera_id query parameter narrows the feed to one camera.
func (h *FrameHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	full := len(h.clients) >= h.opts.MaxConnections
	h.mu.RUnlock()
	if full {
		http.Error(w, ErrMaxConnectionsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithFields(log.Fields{"component": "frames", "error": err}).Debug("websocket upgrade failed")
		return
	}
	c := &client{
		conn:      conn,
		send:      make(chan outbound, h.opts.SendBuffer),
		cameraID:  strings.TrimSpace(r.URL.Query().Get("camera_id")),
		connected: time.Now(),
	}
	c.touch()
	if err := h.addClient(c); err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, err.Error()), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

func (h *FrameHub) addClient(c *client) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.clients) >= h.opts.MaxConnections {
		log.WithField("max", h.opts.MaxConnections).Warn("frame subscriber limit reached, rejecting connection")
		return ErrMaxConnectionsReached
	}
	h.clients[c] = struct{}{}
	monitoring.FrameSubscribers.Set(float64(len(h.clients)))
	log.WithFields(log.Fields{"component": "frames", "total": len(h.clients), "camera_id": c.cameraID}).Info("frame subscriber connected")
	return nil
}

func (h *FrameHub) removeClient(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	remaining := len(h.clients)
	h.mu.Unlock()
	if ok {
		monitoring.FrameSubscribers.Set(float64(remaining))
		log.WithFields(log.Fields{"component": "frames", "remaining": remaining}).Info("frame subscriber disconnected")
	}
	h.closeClient(c)
}

func (h *FrameHub) closeClient(c *client) {
	c.closeOnce.Do(func() {
		close(c.send)
		_ = c.conn.Close()
	})
}

// readPump drains control frames so pongs and close messages are seen.
func (h *FrameHub) readPump(c *client) {
	defer h.removeClient(c)
	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
		c.touch()
	}
}

func (h *FrameHub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		h.removeClient(c)
	}()
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(msg.header); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg.data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Publish encodes f as JPEG and queues it for every matching subscriber.
func (h *FrameHub) Publish(cam models.CameraConfig, f *frame.Frame) {
	if h == nil || f == nil || h.ConnectionCount() == 0 {
		return
	}
	data, err := frame.Encode(f, "jpeg")
	if err != nil {
		log.WithFields(log.Fields{"component": "frames", "camera_id": cam.ID, "error": err}).Debug("encode frame for subscribers")
		return
	}
	b := f.Bounds()
	msg := outbound{
		header: FrameHeader{
			Seq:        h.seq.Add(1),
			CameraID:   cam.ID,
			Name:       cam.Name,
			Provider:   string(cam.Kind),
			Format:     "jpeg",
			Width:      b.Dx(),
			Height:     b.Dy(),
			Size:       len(data),
			CapturedAt: f.CapturedAt,
		},
		data: data,
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if c.cameraID != "" && c.cameraID != cam.ID {
			continue
		}
		select {
		case c.send <- msg:
		default:
			// subscriber is behind; drop this frame for it
		}
	}
}

func (h *FrameHub) cleanupIdle() {
	now := time.Now()
	var idle []*client
	h.mu.RLock()
	for c := range h.clients {
		if c.idleFor(now) > h.opts.IdleTimeout {
			idle = append(idle, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range idle {
		h.removeClient(c)
	}
	if len(idle) > 0 {
		log.WithFields(log.Fields{"component": "frames", "removed": len(idle)}).Info("removed idle frame subscribers")
	}
}
