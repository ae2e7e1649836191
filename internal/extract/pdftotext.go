// Package extract converts uploaded document bytes to plain text.
package extract

import (
	"bytes"
	"context"
	"log"
	"os/exec"
)

// Extractor converts document bytes to plain text. Implementations never
// fail: any extraction problem yields empty text, which the pipeline treats
// as an empty-input condition.
type Extractor interface {
	Extract(ctx context.Context, data []byte) string
}

// PDFToText extracts text from PDF bytes using the poppler pdftotext tool.
type PDFToText struct{}

func NewPDFToText() PDFToText {
	return PDFToText{}
}

func (PDFToText) Extract(ctx context.Context, data []byte) string {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		log.Printf("extract: pdftotext not installed: %v", err)
		return ""
	}

	// "-" for both input and output keeps everything on pipes.
	cmd := exec.CommandContext(ctx, "pdftotext", "-q", "-enc", "UTF-8", "-", "-")
	cmd.Stdin = bytes.NewReader(data)

	output, err := cmd.Output()
	if err != nil {
		log.Printf("extract: pdftotext failed: %v", err)
		return ""
	}
	return string(output)
}

// LooksLikePDF sniffs the PDF magic header. Uploads are constrained to one
// accepted format before any artifact is stored.
func LooksLikePDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF-"))
}
