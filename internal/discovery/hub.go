package discovery

import (
	"context"
	"sync"
	"time"

	"camgate-go/internal/constants"
	"camgate-go/internal/events"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring"
	log "github.com/sirupsen/logrus"
)

// Options configures a Hub. Zero values fall back to defaults.
type Options struct {
	Services       []ServiceType
	Domain         string
	Timeout        time.Duration // how long one scan browses
	ResolveTimeout time.Duration
	Events         events.Publisher
}

// Hub runs one browser per service type and collects deduplicated results.
// Start and Stop may be called in any order and any number of times.
type Hub struct {
	browser Browser
	opts    Options

	mu          sync.Mutex
	session     uint64
	cancel      context.CancelFunc
	results     []models.DiscoveryResult
	seen        map[string]struct{}
	outstanding int // browsers still running
	inflight    int // browsers plus resolutions still running
	scanning    bool
	done        chan struct{}
}

// NewHub creates a hub over browser.
func NewHub(browser Browser, opts Options) *Hub {
	if browser == nil {
		browser = ZeroconfBrowser{}
	}
	if len(opts.Services) == 0 {
		opts.Services = DefaultServiceTypes
	}
	if opts.Domain == "" {
		opts.Domain = "local."
	}
	if opts.Timeout <= 0 {
		opts.Timeout = constants.DefaultDiscoveryTimeout
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = constants.DiscoveryResolveTimeout
	}
	done := make(chan struct{})
	close(done)
	return &Hub{browser: browser, opts: opts, seen: make(map[string]struct{}), done: done}
}

// Start begins a new discovery session, dropping the previous session's
// results. Any running session is stopped first.
func (h *Hub) Start() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	h.session++
	sess := h.session
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.Timeout)
	h.cancel = cancel
	h.results = nil
	h.seen = make(map[string]struct{})
	h.outstanding = len(h.opts.Services)
	h.inflight = len(h.opts.Services)
	h.scanning = h.outstanding > 0
	h.done = make(chan struct{})
	if !h.scanning {
		close(h.done)
	}
	monitoring.DiscoveryScanning.Set(boolGauge(h.scanning))

	for _, st := range h.opts.Services {
		go h.browse(ctx, sess, st)
	}
	log.WithFields(log.Fields{"component": "discovery", "session": sess, "browsers": len(h.opts.Services)}).Info("discovery started")
}

// Stop halts every browser. Results gathered so far stay readable until
// the next Start.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stopLocked()
}

func (h *Hub) stopLocked() {
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	// bump the session so late callbacks from the old browsers are ignored
	h.session++
	h.seen = make(map[string]struct{})
	h.outstanding = 0
	h.inflight = 0
	if h.scanning {
		log.WithField("component", "discovery").Info("discovery stopped")
	}
	h.scanning = false
	h.closeDoneLocked()
	monitoring.DiscoveryScanning.Set(0)
}

func (h *Hub) closeDoneLocked() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// IsScanning is true while at least one browser is running.
func (h *Hub) IsScanning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scanning
}

// Results returns a copy of the current session's results.
func (h *Hub) Results() []models.DiscoveryResult {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]models.DiscoveryResult, len(h.results))
	copy(out, h.results)
	return out
}

// Done is closed once the current session's browsers and lookups have all
// finished, or the session was stopped.
func (h *Hub) Done() <-chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.done
}

// Scan runs one full session and returns its results. ctx bounds the wait.
func (h *Hub) Scan(ctx context.Context) []models.DiscoveryResult {
	h.Start()
	select {
	case <-h.Done():
	case <-ctx.Done():
		h.Stop()
	}
	return h.Results()
}

func (h *Hub) browse(ctx context.Context, sess uint64, st ServiceType) {
	logger := log.WithFields(log.Fields{"component": "discovery", "service": st.Service})
	err := h.browser.Browse(ctx, st.Service, h.opts.Domain, func(e Entry) {
		if !h.track(sess) {
			return
		}
		go h.handle(ctx, sess, st, e)
	})
	if err != nil && ctx.Err() == nil {
		logger.WithField("error", err).Warn("browse failed")
	}
	h.browserStopped(sess)
}

// track registers an in-flight resolution for sess.
func (h *Hub) track(sess uint64) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess != h.session {
		return false
	}
	h.inflight++
	return true
}

func (h *Hub) handle(ctx context.Context, sess uint64, st ServiceType, e Entry) {
	defer h.finished(sess)

	if !e.HasAddress() {
		rctx, cancel := context.WithTimeout(ctx, h.opts.ResolveTimeout)
		resolved, err := h.browser.Resolve(rctx, e.Instance, st.Service, h.opts.Domain)
		cancel()
		if err != nil {
			log.WithFields(log.Fields{"component": "discovery", "service": st.Service, "instance": e.Instance, "error": err}).Debug("resolve failed")
			return
		}
		if resolved.Instance == "" {
			resolved.Instance = e.Instance
		}
		if len(resolved.Text) == 0 {
			resolved.Text = e.Text
		}
		e = resolved
	}

	r, ok := resultFor(st, e)
	if !ok {
		return
	}
	h.add(ctx, sess, r)
}

func (h *Hub) add(ctx context.Context, sess uint64, r models.DiscoveryResult) {
	h.mu.Lock()
	if sess != h.session {
		h.mu.Unlock()
		return
	}
	key := r.DedupKey()
	if _, dup := h.seen[key]; dup {
		h.mu.Unlock()
		return
	}
	h.seen[key] = struct{}{}
	h.results = append(h.results, r)
	h.mu.Unlock()

	monitoring.DiscoveryResultsTotal.WithLabelValues(string(r.Kind)).Inc()
	if h.opts.Events != nil {
		h.opts.Events.Publish(ctx, events.TopicDiscoveryResult, r, map[string]string{"kind": string(r.Kind)})
	}
	log.WithFields(log.Fields{"component": "discovery", "kind": r.Kind, "host": r.Host, "port": r.Port}).Info("camera discovered")
}

func (h *Hub) browserStopped(sess uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess != h.session {
		return
	}
	h.outstanding--
	if h.outstanding <= 0 && h.scanning {
		h.scanning = false
		monitoring.DiscoveryScanning.Set(0)
		log.WithFields(log.Fields{"component": "discovery", "results": len(h.results)}).Info("discovery finished")
	}
	h.finishedLocked()
}

func (h *Hub) finished(sess uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sess != h.session {
		return
	}
	h.finishedLocked()
}

func (h *Hub) finishedLocked() {
	h.inflight--
	if h.inflight <= 0 {
		h.closeDoneLocked()
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
