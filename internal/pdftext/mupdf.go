package pdftext

import (
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// MuPDF is the engine built on github.com/gen2brain/go-fitz.
type MuPDF struct{}

func (MuPDF) Name() string { return "mupdf" }

func (MuPDF) Pages(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("malformed pdf: %v", rec)
		}
	}()

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	total := doc.NumPage()
	pages = make([]string, 0, total)
	for i := 0; i < total; i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
