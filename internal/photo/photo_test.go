package photo

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x += 7 {
		img.Set(x, h/2, color.NRGBA{R: 200, G: 120, B: 40, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestProcessShrinksLongEdge(t *testing.T) {
	out, err := Process(pngBytes(t, 4096, 1024))
	require.NoError(t, err)

	assert.Equal(t, MaxEdge, out.Width)
	assert.Equal(t, 512, out.Height)
	assert.Nil(t, out.Location)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.JPEG))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, MaxEdge, cfg.Width)
}

func TestProcessKeepsSmallImages(t *testing.T) {
	out, err := Process(pngBytes(t, 320, 240))
	require.NoError(t, err)

	assert.Equal(t, 320, out.Width)
	assert.Equal(t, 240, out.Height)
}

func TestProcessRejectsGarbage(t *testing.T) {
	_, err := Process([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestReadLocationWithoutExif(t *testing.T) {
	loc, ok := ReadLocation(pngBytes(t, 10, 10))
	assert.False(t, ok)
	assert.Nil(t, loc)
}

func TestValidCoordinates(t *testing.T) {
	t.Parallel()
	assert.True(t, valid(35.6812, 139.7671))
	assert.False(t, valid(0, 0))
	assert.False(t, valid(91, 10))
	assert.False(t, valid(10, 181))
}
