//go:build gocv

package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
)

func init() {
	defaultSessionOpener = newGoCVSession
}

// gocvSession decodes the stream in-process through OpenCV's VideoCapture.
type gocvSession struct {
	frameSlot

	streamURL string

	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func newGoCVSession(streamURL string, _ RTSPOptions) (MediaSession, error) {
	return &gocvSession{streamURL: streamURL}, nil
}

func (s *gocvSession) Play(context.Context) error {
	if s.done != nil {
		return errors.New("session already started")
	}
	s.begin()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run()
	return nil
}

func (s *gocvSession) run() {
	defer close(s.done)

	capture, err := gocv.OpenVideoCapture(s.streamURL)
	if err != nil {
		s.setStatus(StatusFailed)
		log.WithFields(log.Fields{"component": "rtsp", "error": err}).Warn("open video capture")
		return
	}
	defer capture.Close()
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	img := gocv.NewMat()
	defer img.Close()

	misses := 0
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		if ok := capture.Read(&img); !ok || img.Empty() {
			misses++
			if misses > 50 {
				s.setStatus(StatusFailed)
				return
			}
			time.Sleep(20 * time.Millisecond)
			continue
		}
		misses = 0
		buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
		if err != nil {
			log.WithFields(log.Fields{"component": "rtsp", "error": err}).Debug("encode frame")
			continue
		}
		s.publish(buf.GetBytes())
		buf.Close()
	}
}

func (s *gocvSession) Close() error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			select {
			case <-s.done:
			case <-time.After(2 * time.Second):
			}
		}
		s.setStatus(StatusIdle)
	})
	return nil
}
