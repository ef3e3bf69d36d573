package provider

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	apperrors "camgate-go/internal/errors"
	"camgate-go/internal/frame"
	"camgate-go/internal/models"
	"camgate-go/internal/monitoring/tracing"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// SessionStatus is the playback state of a MediaSession.
type SessionStatus int

const (
	StatusIdle SessionStatus = iota
	StatusConnecting
	StatusReady
	StatusFailed
)

func (s SessionStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MediaSession is a playing media pipeline for one stream URL with a pixel
// sink attached. Frames are stamped with the session time they arrived at.
type MediaSession interface {
	// Play starts playback and returns without waiting for the first frame.
	Play(ctx context.Context) error
	Status() SessionStatus
	// CurrentTime is the session clock, zero when playback started.
	CurrentTime() time.Duration
	// CopyFrame returns the newest encoded frame stamped at or after at.
	CopyFrame(at time.Duration) ([]byte, bool)
	Close() error
}

// SessionOpener creates a media session for a stream URL.
type SessionOpener func(streamURL string, opts RTSPOptions) (MediaSession, error)

// RTSPProvider pulls frames from an RTSP stream through a MediaSession.
//
// idle -> connecting -> ready, or connecting -> failed. A failed provider
// retries from scratch on the next Connect or CaptureFrame.
type RTSPProvider struct {
	mu      sync.Mutex
	target  *url.URL
	opts    RTSPOptions
	open    SessionOpener
	session MediaSession
	status  SessionStatus
}

// NewRTSPProvider builds a provider for an already validated URL.
func NewRTSPProvider(target *url.URL, opts RTSPOptions, open SessionOpener) *RTSPProvider {
	if open == nil {
		open = defaultSessionOpener
	}
	return &RTSPProvider{target: target, opts: opts, open: open}
}

func (p *RTSPProvider) Kind() models.ProviderKind { return models.KindRTSP }

// StreamURL is the configured URL, available without connecting.
func (p *RTSPProvider) StreamURL() (string, bool) {
	if p.target == nil {
		return "", false
	}
	return p.target.String(), true
}

// Status reports the current state machine position.
func (p *RTSPProvider) Status() SessionStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *RTSPProvider) Connect(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.connectLocked(ctx)
}

func (p *RTSPProvider) connectLocked(ctx context.Context) error {
	const op = "rtsp.connect"
	if p.session != nil && p.status == StatusReady {
		return nil
	}
	if p.target == nil {
		return apperrors.New(apperrors.KindInvalidConfiguration, op, "stream url is required")
	}

	ctx, span := tracing.StartSpan(ctx, "provider", op)
	defer span.End()

	p.status = StatusConnecting
	sess, err := p.open(p.target.String(), p.opts)
	if err != nil {
		p.status = StatusFailed
		return apperrors.Wrap(apperrors.KindConnectionFailed, op, err)
	}
	if err := sess.Play(ctx); err != nil {
		_ = sess.Close()
		p.status = StatusFailed
		return apperrors.Wrap(apperrors.KindConnectionFailed, op, err)
	}

	var failed bool
	ready, err := pollUntil(ctx, p.opts.ReadyAttempts, p.opts.PollInterval, func(int) (bool, error) {
		switch sess.Status() {
		case StatusReady:
			return true, nil
		case StatusFailed:
			failed = true
			return true, nil
		default:
			return false, nil
		}
	})
	switch {
	case err != nil:
		_ = sess.Close()
		p.status = StatusFailed
		return apperrors.MapNetworkError(op, err)
	case failed:
		_ = sess.Close()
		p.status = StatusFailed
		return apperrors.New(apperrors.KindConnectionFailed, op, "media session failed")
	case !ready:
		_ = sess.Close()
		p.status = StatusFailed
		return apperrors.Newf(apperrors.KindConnectionFailed, op, "stream not ready after %d attempts", p.opts.ReadyAttempts)
	}

	p.session = sess
	p.status = StatusReady
	log.WithFields(log.Fields{"component": "rtsp", "url": p.target.Redacted()}).Debug("media session ready")
	return nil
}

func (p *RTSPProvider) CaptureFrame(ctx context.Context) (*frame.Frame, error) {
	const op = "rtsp.capture"
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.session != nil && p.session.Status() == StatusFailed {
		_ = p.session.Close()
		p.session = nil
		p.status = StatusFailed
	}
	if p.session == nil {
		if err := p.connectLocked(ctx); err != nil {
			return nil, err
		}
	}

	ctx, span := tracing.StartSpan(ctx, "provider", op)
	defer span.End()

	sess := p.session
	at := sess.CurrentTime()
	var data []byte
	got, err := pollUntil(ctx, p.opts.FrameAttempts, p.opts.PollInterval, func(int) (bool, error) {
		buf, ok := sess.CopyFrame(at)
		if ok {
			data = buf
		}
		return ok, nil
	})
	span.SetAttributes(attribute.Bool("frame.found", got))
	if err != nil {
		return nil, apperrors.MapNetworkError(op, err)
	}
	if !got {
		if sess.Status() == StatusFailed {
			return nil, apperrors.New(apperrors.KindConnectionFailed, op, "media session failed")
		}
		return nil, apperrors.Newf(apperrors.KindFrameUnavailable, op, "no frame after %d attempts", p.opts.FrameAttempts)
	}

	f, err := frame.Decode(data)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindFrameUnavailable, op, err)
	}
	return f, nil
}

func (p *RTSPProvider) Disconnect(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.session != nil {
		if err := p.session.Close(); err != nil {
			log.WithFields(log.Fields{"component": "rtsp", "error": err}).Debug("media session close")
		}
		p.session = nil
	}
	p.status = StatusIdle
	return nil
}
