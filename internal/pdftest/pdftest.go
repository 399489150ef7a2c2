// Package pdftest builds small, well-formed PDF documents in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"strings"
)

// Page describes the content of one generated page. Each line is drawn with a
// trailing line break; each image is a baseline JPEG placed as an XObject.
type Page struct {
	Lines  []string
	Images [][]byte
}

// Build returns the bytes of a PDF whose pages are drawn in order.
func Build(pages ...Page) []byte {
	b := &builder{}
	b.header()

	// 1 catalog, 2 page tree, 3 font; pages take the ids after that.
	const catalogID, pagesID, fontID = 1, 2, 3
	next := 4

	type layout struct {
		pageID, contentID int
		imageIDs          []int
	}
	layouts := make([]layout, len(pages))
	for i, p := range pages {
		l := layout{pageID: next, contentID: next + 1}
		next += 2
		for range p.Images {
			l.imageIDs = append(l.imageIDs, next)
			next++
		}
		layouts[i] = l
	}

	b.object(catalogID, fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesID))

	kids := make([]string, 0, len(pages))
	for _, l := range layouts {
		kids = append(kids, fmt.Sprintf("%d 0 R", l.pageID))
	}
	b.object(pagesID, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	b.object(fontID, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range pages {
		l := layouts[i]

		var xobjects strings.Builder
		for j, id := range l.imageIDs {
			fmt.Fprintf(&xobjects, " /Im%d %d 0 R", j+1, id)
		}
		resources := fmt.Sprintf("<< /Font << /F1 %d 0 R >>", fontID)
		if len(l.imageIDs) > 0 {
			resources += " /XObject <<" + xobjects.String() + " >>"
		}
		resources += " >>"
		b.object(l.pageID, fmt.Sprintf(
			"<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			pagesID, resources, l.contentID))

		b.stream(l.contentID, "", contentStream(p))

		for j, id := range l.imageIDs {
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(p.Images[j]))
			if err != nil {
				panic(fmt.Sprintf("pdftest: image %d on page %d is not a JPEG: %v", j+1, i+1, err))
			}
			dict := fmt.Sprintf("/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode",
				cfg.Width, cfg.Height)
			b.stream(id, dict, p.Images[j])
		}
	}

	return b.finish(next-1, catalogID)
}

// JPEG encodes a solid w x h image.
func JPEG(w, h int, c color.Color) []byte {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func contentStream(p Page) []byte {
	var buf bytes.Buffer
	if len(p.Lines) > 0 {
		buf.WriteString("BT\n/F1 12 Tf\n14 TL\n72 720 Td\n")
		for _, line := range p.Lines {
			fmt.Fprintf(&buf, "(%s) Tj\nT*\n", escape(line))
		}
		buf.WriteString("ET\n")
	}
	for j := range p.Images {
		fmt.Fprintf(&buf, "q\n100 0 0 100 72 %d cm\n/Im%d Do\nQ\n", 400-j*110, j+1)
	}
	return buf.Bytes()
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

type builder struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func (b *builder) header() {
	b.offsets = map[int]int{}
	b.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
}

func (b *builder) object(id int, body string) {
	b.offsets[id] = b.buf.Len()
	fmt.Fprintf(&b.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (b *builder) stream(id int, dict string, data []byte) {
	b.offsets[id] = b.buf.Len()
	if dict != "" {
		dict += " "
	}
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< %s/Length %d >>\nstream\n", id, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
}

func (b *builder) finish(lastID, rootID int) []byte {
	xref := b.buf.Len()
	fmt.Fprintf(&b.buf, "xref\n0 %d\n", lastID+1)
	b.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id <= lastID; id++ {
		fmt.Fprintf(&b.buf, "%010d 00000 n \n", b.offsets[id])
	}
	fmt.Fprintf(&b.buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", lastID+1, rootID, xref)
	return b.buf.Bytes()
}
