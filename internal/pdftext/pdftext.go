// Package pdftext extracts the plain text of a PDF document, page by page.
package pdftext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrUnreadable matches every failure to parse the input as a PDF: corrupted
// structure, encryption, non-PDF bytes or a parser panic.
var ErrUnreadable = errors.New("unreadable pdf")

// Error carries the human-readable diagnostic of a failed extraction.
type Error struct {
	Engine     string
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	return e.Diagnostic
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnreadable}
	}
	return []error{ErrUnreadable, e.Err}
}

// Engine returns the plain text of each page of a PDF in document order.
type Engine interface {
	Name() string
	Pages(data []byte) ([]string, error)
}

// Extractor turns PDF bytes into text using an Engine.
type Extractor struct {
	engine Engine
}

// New returns an Extractor backed by engine, or by the native engine when nil.
func New(engine Engine) *Extractor {
	if engine == nil {
		engine = Native{}
	}
	return &Extractor{engine: engine}
}

// NewFromName resolves an engine by its configured name ("native" or "mupdf").
func NewFromName(name string) *Extractor {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "mupdf", "fitz":
		return New(MuPDF{})
	default:
		return New(Native{})
	}
}

// Engine reports the name of the backing engine.
func (e *Extractor) Engine() string {
	return e.engine.Name()
}

// Extract returns the text of every page concatenated in page order with no
// separator. A document without pages yields "".
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	pages, err := e.Pages(ctx, data)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, ""), nil
}

// Pages returns the text of each page in order.
func (e *Extractor) Pages(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &Error{Engine: e.engine.Name(), Diagnostic: "empty document"}
	}
	pages, err := e.engine.Pages(data)
	if err != nil {
		return nil, &Error{Engine: e.engine.Name(), Diagnostic: err.Error(), Err: err}
	}
	return pages, nil
}

// ExtractFile reads the PDF at path and extracts its text.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return e.Extract(ctx, data)
}
