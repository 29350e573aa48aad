package common

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestPNG(t *testing.T, w, h int, c color.RGBA) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestTextureSourceDecodeEmbedded(t *testing.T) {
	src := &TextureSource{Data: encodeTestPNG(t, 4, 2, color.RGBA{R: 10, G: 20, B: 30, A: 255})}

	staging, err := src.Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), staging.Width)
	assert.Equal(t, uint32(2), staging.Height)
	require.Len(t, staging.Pixels, 4*2*4)
	assert.Equal(t, []byte{10, 20, 30, 255}, staging.Pixels[:4])
}

func TestTextureSourceDecodeFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pixel.png")
	require.NoError(t, os.WriteFile(path, encodeTestPNG(t, 1, 1, color.RGBA{R: 255, A: 255}), 0o644))

	staging, err := (&TextureSource{Path: path}).Decode()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), staging.Width)
	assert.Equal(t, []byte{255, 0, 0, 255}, staging.Pixels)
}

func TestTextureSourceDecodeErrors(t *testing.T) {
	var nilSrc *TextureSource
	_, err := nilSrc.Decode()
	assert.Error(t, err)

	_, err = (&TextureSource{}).Decode()
	assert.Error(t, err)

	_, err = (&TextureSource{Data: []byte("not an image")}).Decode()
	assert.Error(t, err)

	_, err = (&TextureSource{Path: filepath.Join(t.TempDir(), "missing.png")}).Decode()
	assert.Error(t, err)
}
