package provider

import (
	"bufio"
	"bytes"
	"io"
	"sync"
	"time"
)

// defaultSessionOpener is replaced by the gocv build.
var defaultSessionOpener SessionOpener = newFFmpegSession

// frameSlot holds the newest frame of a session and its status. Sessions
// embed it and feed it from their reader goroutine.
type frameSlot struct {
	mu       sync.Mutex
	status   SessionStatus
	started  time.Time
	latest   []byte
	latestAt time.Duration
}

func (s *frameSlot) begin() {
	s.mu.Lock()
	s.status = StatusConnecting
	s.started = time.Now()
	s.latest = nil
	s.latestAt = 0
	s.mu.Unlock()
}

func (s *frameSlot) publish(data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	s.mu.Lock()
	s.latest = buf
	s.latestAt = time.Since(s.started)
	if s.status == StatusConnecting {
		s.status = StatusReady
	}
	s.mu.Unlock()
}

func (s *frameSlot) setStatus(st SessionStatus) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()
}

func (s *frameSlot) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *frameSlot) CurrentTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0
	}
	return time.Since(s.started)
}

func (s *frameSlot) CopyFrame(at time.Duration) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.latest == nil || s.latestAt < at {
		return nil, false
	}
	out := make([]byte, len(s.latest))
	copy(out, s.latest)
	return out, true
}

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

// splitJPEG is a bufio.SplitFunc yielding whole JPEG images from an MJPEG
// byte stream. Bytes outside SOI..EOI are discarded.
func splitJPEG(data []byte, atEOF bool) (int, []byte, error) {
	start := bytes.Index(data, jpegSOI)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		if len(data) > 1 {
			// keep a trailing 0xFF that may begin the next marker
			return len(data) - 1, nil, nil
		}
		return 0, nil, nil
	}
	end := bytes.Index(data[start+len(jpegSOI):], jpegEOI)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	stop := start + len(jpegSOI) + end + len(jpegEOI)
	return stop, data[start:stop], nil
}

// readMJPEG feeds every complete JPEG in r into the slot until r ends.
func readMJPEG(r io.Reader, slot *frameSlot) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 256*1024), 16*1024*1024)
	sc.Split(splitJPEG)
	for sc.Scan() {
		slot.publish(sc.Bytes())
	}
	return sc.Err()
}
