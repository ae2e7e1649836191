// Package render turns cleaned simplification output into a PDF artifact.
package render

import (
	"context"
	"errors"
)

// Result contains the rendered artifact
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

// ErrPDFDependencyMissing indicates PDF rendering runtime dependencies are unavailable.
var ErrPDFDependencyMissing = errors.New("render pdf dependency missing")

// Renderer produces a document artifact from plain text. Implementations
// must tolerate unrenderable text segments by substituting a placeholder
// line, never failing the whole render over one bad line.
type Renderer interface {
	Render(ctx context.Context, title, text string) (*Result, error)
}
