package render

import (
	"bytes"
	"image"
	"image/png"
)

// NoopRenderer returns a fixed blank page without touching the artifact;
// useful in tests or when only compile diagnostics are wanted.
type NoopRenderer struct {
	// Err, when set, is returned from FirstPage to simulate decode failures.
	Err error
}

func (n *NoopRenderer) FirstPage(string) (*Page, error) {
	if n.Err != nil {
		return nil, n.Err
	}

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &Page{Image: img, Width: 1, Height: 1, PNG: buf.Bytes()}, nil
}
