package render

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNoopRendererProducesDecodablePNG(t *testing.T) {
	r := &NoopRenderer{}

	page, err := r.FirstPage("ignored.pdf")
	require.NoError(t, err)
	require.Equal(t, 1, page.Width)
	require.Equal(t, 1, page.Height)

	img, err := png.Decode(bytes.NewReader(page.PNG))
	require.NoError(t, err)
	require.Equal(t, 1, img.Bounds().Dx())
}

func TestNoopRendererErrorPassthrough(t *testing.T) {
	want := errors.New("decode failed")
	r := &NoopRenderer{Err: want}

	_, err := r.FirstPage("ignored.pdf")
	require.ErrorIs(t, err, want)
}

func TestFitzRendererRejectsCorruptArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	r := NewFitzRenderer(150)
	_, err := r.FirstPage(path)
	require.Error(t, err)
	require.Contains(t, err.Error(), "artifact validation")
}

func TestFitzRendererRejectsMissingArtifact(t *testing.T) {
	r := NewFitzRenderer(0)
	_, err := r.FirstPage(filepath.Join(t.TempDir(), "absent.pdf"))
	require.Error(t, err)
}
