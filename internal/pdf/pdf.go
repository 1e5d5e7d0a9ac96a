// Package pdf renders a post as a downloadable A4 document.
package pdf

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// Document is the content of one exported post.
type Document struct {
	PostID  uint
	Author  string
	Created time.Time
	Tags    string
	Body    string
	// Image is the raw PNG or JPEG image to embed; nil for none.
	Image     []byte
	ImageType string
}

// Filename is the attachment name of the exported post.
func Filename(postID uint) string {
	return fmt.Sprintf("blog_%d.pdf", postID)
}

// Render writes doc as PDF to w.
func Render(w io.Writer, doc Document) error {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetTitle(fmt.Sprintf("Blog #%d", doc.PostID), true)
	p.SetAuthor(doc.Author, true)
	p.SetMargins(20, 20, 20)
	p.SetAutoPageBreak(true, 20)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	p.SetFont("Helvetica", "B", 20)
	p.CellFormat(0, 12, fmt.Sprintf("Blog #%d", doc.PostID), "", 1, "C", false, 0, "")
	p.Ln(4)

	p.SetFont("Helvetica", "", 11)
	author := doc.Author
	if author == "" {
		author = "Unknown"
	}
	p.CellFormat(0, 6, tr("Author: "+author), "", 1, "L", false, 0, "")
	if !doc.Created.IsZero() {
		p.CellFormat(0, 6, "Date: "+doc.Created.UTC().Format("02 Jan 2006"), "", 1, "L", false, 0, "")
	}
	tags := strings.TrimSpace(doc.Tags)
	if tags == "" {
		tags = "N/A"
	}
	p.CellFormat(0, 6, tr("Tags: "+tags), "", 1, "L", false, 0, "")
	p.Ln(6)

	p.SetFont("Helvetica", "B", 14)
	p.CellFormat(0, 8, "Content", "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 11)
	p.MultiCell(0, 6, tr(doc.Body), "", "L", false)

	if len(doc.Image) > 0 {
		p.Ln(6)
		p.SetFont("Helvetica", "B", 14)
		p.CellFormat(0, 8, "Image", "", 1, "L", false, 0, "")
		opts := fpdf.ImageOptions{ImageType: doc.ImageType, ReadDpi: true}
		name := fmt.Sprintf("post-%d", doc.PostID)
		info := p.RegisterImageOptionsReader(name, opts, bytes.NewReader(doc.Image))
		if p.Ok() && info != nil {
			// 4in x 3in box, aspect ratio preserved.
			w, h := fitBox(info.Width(), info.Height(), 101.6, 76.2)
			p.ImageOptions(name, p.GetX(), p.GetY(), w, h, true, opts, 0, "")
		}
	}

	if err := p.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return p.Output(w)
}

func fitBox(w, h, maxW, maxH float64) (float64, float64) {
	if w <= 0 || h <= 0 {
		return maxW, maxH
	}
	scale := maxW / w
	if s := maxH / h; s < scale {
		scale = s
	}
	return w * scale, h * scale
}
