package testutil

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
)

// TestingT is satisfied by *testing.T and *testing.B.
type TestingT interface {
	Helper()
	Fatalf(string, ...any)
}

// TinyPNG encodes a w by h landscape: sky on top, grass below.
func TinyPNG(t TestingT, w, h int) []byte {
	t.Helper()
	sky := color.RGBA{R: 135, G: 190, B: 230, A: 255}
	grass := color.RGBA{R: 40, G: 130, B: 60, A: 255}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := sky
		if y >= h/2 {
			c = grass
		}
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode landscape png: %v", err)
	}
	return buf.Bytes()
}
