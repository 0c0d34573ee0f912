// Package photo turns an uploaded picture into the JPEG stored for a post.
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register decoder
)

const (
	// MaxEdge caps the longer side of stored photos.
	MaxEdge     = 2048
	JPEGQuality = 85
	ContentType = "image/jpeg"
)

// ErrUnsupported is returned for uploads no registered decoder understands.
var ErrUnsupported = errors.New("unsupported image format")

// Processed is a normalized photo ready for upload.
type Processed struct {
	JPEG   []byte
	Width  int
	Height int
	// Location is the GPS position from EXIF, nil when absent.
	Location *Location
}

// Process decodes data (jpeg, png, gif or webp), applies the EXIF
// orientation, shrinks it to fit MaxEdge and re-encodes it as JPEG.
func Process(data []byte) (*Processed, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, ErrUnsupported
		}
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > MaxEdge || b.Dy() > MaxEdge {
		img = imaging.Fit(img, MaxEdge, MaxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}

	out := &Processed{
		JPEG:   buf.Bytes(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	if loc, ok := ReadLocation(data); ok {
		out.Location = loc
	}
	return out, nil
}
