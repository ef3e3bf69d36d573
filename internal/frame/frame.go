package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Frame is one decoded still image captured from a camera.
type Frame struct {
	Image      image.Image
	Data       []byte // bytes the image was decoded from
	Format     string // "jpeg", "png", ...
	CapturedAt time.Time
}

// Bounds returns the frame dimensions.
func (f *Frame) Bounds() image.Rectangle {
	if f == nil || f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// ErrEmpty is returned when there are no bytes to decode.
var ErrEmpty = errors.New("frame: empty image data")

// Decode turns encoded image bytes into a Frame.
func Decode(data []byte) (*Frame, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("frame: decode: %w", err)
	}
	return &Frame{
		Image:      img,
		Data:       data,
		Format:     format,
		CapturedAt: time.Now().UTC(),
	}, nil
}

// Encode renders the frame in the requested format ("jpeg" or "png"). A frame
// already held in that format is returned without re-encoding.
func Encode(f *Frame, format string) ([]byte, error) {
	if f == nil || f.Image == nil {
		return nil, ErrEmpty
	}
	if format == "" {
		format = "jpeg"
	}
	if format == f.Format && len(f.Data) > 0 {
		return f.Data, nil
	}
	var buf bytes.Buffer
	switch format {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, f.Image, &jpeg.Options{Quality: 85}); err != nil {
			return nil, fmt.Errorf("frame: encode jpeg: %w", err)
		}
	case "png":
		if err := png.Encode(&buf, f.Image); err != nil {
			return nil, fmt.Errorf("frame: encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("frame: unsupported output format %q", format)
	}
	return buf.Bytes(), nil
}

// ContentType returns the MIME type for an encoding format.
func ContentType(format string) string {
	switch format {
	case "png":
		return "image/png"
	case "gif":
		return "image/gif"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// SolidPNG returns a w×h PNG filled with c.
func SolidPNG(w, h int, c color.Color) []byte {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// SolidJPEG returns a w×h JPEG filled with c.
func SolidJPEG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	_ = jpeg.Encode(&buf, img, nil)
	return buf.Bytes()
}
