// Package pdfimages pulls embedded raster images out of a PDF and re-encodes them as PNG.
package pdfimages

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/tiff"

	"guideline-extractor/internal/shared/telemetry"
)

func init() {
	// pdfcpu otherwise creates a config directory under the user's home.
	api.DisableConfigDir()
}

// ErrUnreadable matches every failure to parse the input as a PDF.
var ErrUnreadable = errors.New("unreadable pdf")

// Error carries the human-readable diagnostic of a failed extraction.
type Error struct {
	Diagnostic string
	Err        error
}

func (e *Error) Error() string {
	return e.Diagnostic
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnreadable}
	}
	return []error{ErrUnreadable, e.Err}
}

// Image is an embedded image decoded from the PDF and re-encoded as PNG.
type Image struct {
	Index        int
	Page         int
	Width        int
	Height       int
	SourceFormat string
	PNG          []byte
}

// FileName is the download name of the image.
func (img Image) FileName() string {
	return fmt.Sprintf("image_%d.png", img.Index)
}

// Extract returns the images of every page in page order. Images whose
// embedded encoding cannot be decoded are skipped.
func Extract(ctx context.Context, data []byte) ([]Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &Error{Diagnostic: "empty document"}
	}

	raw, err := extractRaw(data)
	if err != nil {
		return nil, &Error{Diagnostic: err.Error(), Err: err}
	}

	images := make([]Image, 0, len(raw))
	for _, r := range raw {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		encoded, width, height, err := toPNG(r)
		if err != nil {
			telemetry.Warn("pdfimages.decode.skipped", map[string]any{
				"page":   r.PageNr,
				"obj":    r.ObjNr,
				"format": r.FileType,
				"err":    err.Error(),
			})
			continue
		}
		images = append(images, Image{
			Index:        len(images) + 1,
			Page:         r.PageNr,
			Width:        width,
			Height:       height,
			SourceFormat: r.FileType,
			PNG:          encoded,
		})
	}
	return images, nil
}

func extractRaw(data []byte) (out []model.Image, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, err
	}
	for _, byObj := range pages {
		for _, img := range byObj {
			out = append(out, img)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PageNr != out[j].PageNr {
			return out[i].PageNr < out[j].PageNr
		}
		return out[i].ObjNr < out[j].ObjNr
	})
	return out, nil
}

func toPNG(img model.Image) ([]byte, int, int, error) {
	if img.Reader == nil {
		return nil, 0, 0, errors.New("image has no data")
	}
	raw, err := io.ReadAll(img.Reader)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("read image: %w", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, 0, 0, fmt.Errorf("decode %s: %w", img.FileType, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, decoded); err != nil {
		return nil, 0, 0, fmt.Errorf("encode png: %w", err)
	}
	b := decoded.Bounds()
	return buf.Bytes(), b.Dx(), b.Dy(), nil
}
