package monitoring

import (
	"math"
	"sort"
	"sync"
	"time"
)

const maxSamples = 256

// Stats keeps in-process aggregates for the management API. Prometheus
// counters cover scraping; Stats covers "what happened recently" queries.
type Stats struct {
	mu         sync.RWMutex
	storageOps map[string]map[string]*opAggregate // backend -> operation
	captures   map[string]*opAggregate            // camera id
	lastErrors map[string]string                  // camera id -> last error
}

type opAggregate struct {
	Count     int64
	Errors    int64
	Durations []float64
	LastAt    time.Time
}

// OpSummary is a read-only view over an aggregate.
type OpSummary struct {
	Count     int64     `json:"count"`
	Errors    int64     `json:"errors"`
	P50Millis float64   `json:"p50_ms"`
	P95Millis float64   `json:"p95_ms"`
	LastAt    time.Time `json:"last_at"`
	LastError string    `json:"last_error,omitempty"`
}

// NewStats creates an empty aggregate set.
func NewStats() *Stats {
	return &Stats{
		storageOps: make(map[string]map[string]*opAggregate),
		captures:   make(map[string]*opAggregate),
		lastErrors: make(map[string]string),
	}
}

var (
	defaultStatsMu sync.RWMutex
	defaultStats   = NewStats()
)

// DefaultStats returns the process-wide Stats instance.
func DefaultStats() *Stats {
	defaultStatsMu.RLock()
	defer defaultStatsMu.RUnlock()
	return defaultStats
}

// SetDefaultStats replaces the process-wide instance; used by tests.
func SetDefaultStats(s *Stats) {
	defaultStatsMu.Lock()
	defaultStats = s
	defaultStatsMu.Unlock()
}

func (a *opAggregate) observe(d time.Duration, err error) {
	a.Count++
	if err != nil {
		a.Errors++
	}
	a.Durations = append(a.Durations, float64(d.Microseconds())/1000.0)
	if len(a.Durations) > maxSamples {
		a.Durations = a.Durations[len(a.Durations)-maxSamples:]
	}
	a.LastAt = time.Now()
}

func (a *opAggregate) summary() OpSummary {
	sorted := append([]float64(nil), a.Durations...)
	sort.Float64s(sorted)
	return OpSummary{
		Count:     a.Count,
		Errors:    a.Errors,
		P50Millis: percentile(sorted, 0.50),
		P95Millis: percentile(sorted, 0.95),
		LastAt:    a.LastAt,
	}
}

// RecordStorageOperation records one backend call, in both Stats and Prometheus.
func (s *Stats) RecordStorageOperation(backend, operation string, d time.Duration, err error) {
	StorageOperationsTotal.WithLabelValues(backend, operation, ResultLabel(err, "")).Inc()
	StorageOperationDuration.WithLabelValues(backend, operation).Observe(d.Seconds())
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ops, ok := s.storageOps[backend]
	if !ok {
		ops = make(map[string]*opAggregate)
		s.storageOps[backend] = ops
	}
	agg, ok := ops[operation]
	if !ok {
		agg = &opAggregate{}
		ops[operation] = agg
	}
	agg.observe(d, err)
}

// RecordCapture records one frame capture for a camera.
func (s *Stats) RecordCapture(cameraID, provider string, d time.Duration, err error, errKind string) {
	ProviderCapturesTotal.WithLabelValues(provider, ResultLabel(err, errKind)).Inc()
	ProviderCaptureDuration.WithLabelValues(provider).Observe(d.Seconds())
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	agg, ok := s.captures[cameraID]
	if !ok {
		agg = &opAggregate{}
		s.captures[cameraID] = agg
	}
	agg.observe(d, err)
	if err != nil {
		s.lastErrors[cameraID] = err.Error()
	} else {
		delete(s.lastErrors, cameraID)
	}
}

// Forget drops aggregates for a removed camera.
func (s *Stats) Forget(cameraID string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	delete(s.captures, cameraID)
	delete(s.lastErrors, cameraID)
	s.mu.Unlock()
}

// StorageSnapshot returns per-backend, per-operation summaries.
func (s *Stats) StorageSnapshot() map[string]map[string]OpSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]map[string]OpSummary, len(s.storageOps))
	for backend, ops := range s.storageOps {
		m := make(map[string]OpSummary, len(ops))
		for op, agg := range ops {
			m[op] = agg.summary()
		}
		out[backend] = m
	}
	return out
}

// CaptureSnapshot returns per-camera capture summaries.
func (s *Stats) CaptureSnapshot() map[string]OpSummary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]OpSummary, len(s.captures))
	for id, agg := range s.captures {
		sum := agg.summary()
		sum.LastError = s.lastErrors[id]
		out[id] = sum
	}
	return out
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
