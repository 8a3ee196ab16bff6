// Package render turns a compiled PDF artifact into a raster preview of its
// first page. The decoding library is treated as a black box behind the
// Renderer interface so tests and alternative strategies can swap it out.
package render

import "image"

// Page is the decoded first page of an artifact. Width and Height are pixel
// dimensions at the configured DPI, used by callers to size the viewport.
type Page struct {
	Image  image.Image
	Width  int
	Height int
	PNG    []byte // PNG-encoded copy for transport
}

// Renderer abstracts how the preview raster is produced from an artifact.
//
// Contract: FirstPage(artifactPath) returns the decoded page or an error;
// any decode error is surfaced by the caller as a render failure, reported
// independently of compile success.
type Renderer interface {
	FirstPage(artifactPath string) (*Page, error)
}
