package imaging_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shashiranjanraj/studio/pkg/imaging"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCheckName(t *testing.T) {
	for _, ok := range []string{"a.jpg", "a.JPEG", "b.png", "c.gif", "d.webp"} {
		assert.NoError(t, imaging.CheckName(ok), ok)
	}
	for _, bad := range []string{"photo.exe", "photo", "photo.jpg.sh", "notes.txt"} {
		assert.ErrorIs(t, imaging.CheckName(bad), imaging.ErrExtension, bad)
	}
}

func TestProcessLargeImage(t *testing.T) {
	data := pngBytes(t, 2400, 1200)

	res, err := imaging.Process(data)
	require.NoError(t, err)

	assert.Equal(t, imaging.Metadata{Width: 2400, Height: 1200, Format: "png", Size: int64(len(data))}, res.Meta)

	web, err := jpeg.DecodeConfig(bytes.NewReader(res.Web))
	require.NoError(t, err)
	assert.Equal(t, 1920, web.Width)
	assert.Equal(t, 960, web.Height)

	thumb, err := jpeg.DecodeConfig(bytes.NewReader(res.Thumbnail))
	require.NoError(t, err)
	assert.Equal(t, 300, thumb.Width)
	assert.Equal(t, 300, thumb.Height)
}

func TestProcessDoesNotEnlarge(t *testing.T) {
	res, err := imaging.Process(pngBytes(t, 640, 480))
	require.NoError(t, err)

	web, err := jpeg.DecodeConfig(bytes.NewReader(res.Web))
	require.NoError(t, err)
	assert.Equal(t, 640, web.Width)
	assert.Equal(t, 480, web.Height)
}

func TestProcessRejectsNonImages(t *testing.T) {
	_, err := imaging.Process([]byte("MZ\x90\x00 this is not a picture"))
	assert.ErrorIs(t, err, imaging.ErrNotImage)
}

func TestProcessRejectsOversize(t *testing.T) {
	_, err := imaging.Process(make([]byte, imaging.MaxUploadBytes+1))
	assert.ErrorIs(t, err, imaging.ErrTooLarge)
}
