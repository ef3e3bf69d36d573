package provider

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// ffmpegSession runs ffmpeg as a subprocess that pulls the stream and writes
// MJPEG to stdout.
type ffmpegSession struct {
	frameSlot

	binary    string
	streamURL string
	transport string

	closeOnce sync.Once
	cancel    context.CancelFunc
	done      chan struct{}
	closed    bool
}

func newFFmpegSession(streamURL string, opts RTSPOptions) (MediaSession, error) {
	bin, err := exec.LookPath(opts.FFmpegPath)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not available: %w", err)
	}
	return &ffmpegSession{binary: bin, streamURL: streamURL, transport: opts.Transport}, nil
}

func (s *ffmpegSession) args() []string {
	return []string{
		"-hide_banner", "-loglevel", "error",
		"-rtsp_transport", s.transport,
		"-i", s.streamURL,
		"-an",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	}
}

// Play starts ffmpeg on its own context so the process outlives the caller's
// request context; Close stops it.
func (s *ffmpegSession) Play(context.Context) error {
	if s.done != nil {
		return errors.New("session already started")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(runCtx, s.binary, s.args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return err
	}
	s.begin()
	if err := cmd.Start(); err != nil {
		cancel()
		s.setStatus(StatusFailed)
		return err
	}
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		readErr := readMJPEG(stdout, &s.frameSlot)
		waitErr := cmd.Wait()
		s.mu.Lock()
		closed := s.closed
		if !closed {
			s.status = StatusFailed
		}
		s.mu.Unlock()
		if !closed {
			log.WithFields(log.Fields{"component": "rtsp", "read_error": readErr, "exit": waitErr}).Warn("ffmpeg exited")
		}
	}()
	return nil
}

func (s *ffmpegSession) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.status = StatusIdle
		s.mu.Unlock()
		if s.cancel != nil {
			s.cancel()
		}
		if s.done != nil {
			select {
			case <-s.done:
			case <-time.After(2 * time.Second):
			}
		}
	})
	return nil
}
