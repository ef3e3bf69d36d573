package main

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"camgate-go/internal/config"
	"camgate-go/internal/events"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/monitor"
	"camgate-go/internal/monitoring"
	store "camgate-go/internal/storage"
	"camgate-go/internal/streaming"
	log "github.com/sirupsen/logrus"
)

// FrameEvent is the payload published on events.TopicCameraFrame. The image
// itself only travels over the websocket.
type FrameEvent struct {
	CameraID   string    `json:"camera_id"`
	Format     string    `json:"format"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Bytes      int       `json:"bytes"`
	CapturedAt time.Time `json:"captured_at"`
}

// openStorage opens the configured backend and falls back to the file
// backend when it cannot be reached. It returns nil only when even the
// fallback fails.
func openStorage(ctx context.Context, opts store.Options, stats *monitoring.Stats) store.Backend {
	backend, err := store.Open(ctx, opts, stats)
	if err == nil {
		return backend
	}
	original := opts.Label()
	log.WithError(err).WithField("backend", original).Warn("storage backend initialization failed; falling back to file backend")

	fallback := opts
	fallback.Backend = "file"
	backend, err = store.Open(ctx, fallback, stats)
	if err != nil {
		log.WithError(err).Error("file backend fallback failed")
		return nil
	}
	log.WithFields(log.Fields{"original_backend": original, "fallback_backend": "file"}).Info("fell back to file storage backend")
	return backend
}

// frameFanout delivers each monitored frame to websocket subscribers and
// announces it on the event hub.
func frameFanout(frames *streaming.FrameHub, pub events.Publisher) monitor.FrameHandler {
	return func(cam models.CameraConfig, f *frame.Frame) {
		if f == nil {
			return
		}
		if frames != nil {
			frames.Publish(cam, f)
		}
		if pub != nil {
			b := f.Bounds()
			pub.Publish(context.Background(), events.TopicCameraFrame, FrameEvent{
				CameraID:   cam.ID,
				Format:     f.Format,
				Width:      b.Dx(),
				Height:     b.Dy(),
				Bytes:      len(f.Data),
				CapturedAt: f.CapturedAt.UTC(),
			}, map[string]string{"camera_id": cam.ID})
		}
	}
}

// monitorReloader restarts a running monitor when the configured interval
// changes and stops it when the interval drops to zero. A stopped monitor
// stays stopped.
func monitorReloader(mon *monitor.Monitor, source monitor.Source, onFrame monitor.FrameHandler) func(*config.FileConfig) {
	return func(cfg *config.FileConfig) {
		if cfg == nil || !mon.IsMonitoring() {
			return
		}
		next := cfg.MonitorInterval()
		if next <= 0 {
			mon.Stop()
			return
		}
		current := mon.Status().IntervalSec
		if next.Seconds() == current {
			return
		}
		log.WithFields(log.Fields{"old_sec": current, "new_sec": next.Seconds()}).Info("monitor interval changed; restarting")
		mon.Start(next, source, onFrame)
	}
}

// originChecker accepts websocket handshakes without an Origin, from the
// serving host, or from a configured origin. A "*" entry accepts all.
func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]struct{}, len(origins))
	wildcard := false
	for _, o := range origins {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o == "*" {
			wildcard = true
			continue
		}
		if o != "" {
			allowed[strings.ToLower(o)] = struct{}{}
		}
	}
	return func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" || wildcard {
			return true
		}
		if _, ok := allowed[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

func listenAddr(cfg *config.FileConfig) string {
	host := strings.TrimSpace(cfg.Server.Host)
	port := cfg.Server.Port
	if port <= 0 {
		port = 8780
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
