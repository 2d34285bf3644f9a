package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/anatolykoptev/go_edunote/internal/store"
)

const (
	pdfMargin     = 20.0
	pdfLineHeight = 6.0
)

// renderPDF lays out an A4 document with the core Helvetica font. Text is
// mapped to cp1252; characters outside it are dropped by the translator.
func renderPDF(doc Document) ([]byte, error) {
	n := doc.Note
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(n.Title, true)
	pdf.SetCreator("EduNote", false)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.SetTextColor(30, 30, 30)
	pdf.MultiCell(0, 10, tr(n.Title), "", "C", false)
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(100, 100, 100)
	if doc.Video.Title != "" {
		pdf.MultiCell(0, 5, tr("Video: "+doc.Video.Title), "", "L", false)
	}
	if doc.Video.URL != "" {
		pdf.MultiCell(0, 5, tr("URL: "+doc.Video.URL), "", "L", false)
	}
	pdf.MultiCell(0, 5, "Created: "+n.CreatedAt.Format("2006-01-02"), "", "L", false)
	if len(n.Tags) > 0 {
		pdf.MultiCell(0, 5, tr("Tags: "+strings.Join(n.Tags, ", ")), "", "L", false)
	}
	pdf.Ln(3)
	y := pdf.GetY()
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(pdfMargin, y, 210-pdfMargin, y)
	pdf.Ln(5)

	pdf.SetTextColor(0, 0, 0)
	for _, block := range strings.Split(plainContent(n.Content), "\n") {
		block = strings.TrimRight(block, " ")
		if block == "" {
			pdf.Ln(pdfLineHeight / 2)
			continue
		}
		if heading, ok := strings.CutPrefix(block, "#"); ok {
			pdf.SetFont("Helvetica", "B", 13)
			pdf.MultiCell(0, pdfLineHeight+1, tr(strings.TrimLeft(heading, "# ")), "", "L", false)
			continue
		}
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, pdfLineHeight, tr(block), "", "L", false)
	}

	if len(n.Highlights) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 13)
		pdf.MultiCell(0, pdfLineHeight+1, "Highlights", "", "L", false)
		pdf.SetFont("Helvetica", "", 11)
		for _, h := range n.Highlights {
			r, g, b := highlightRGB(h.Color)
			pdf.SetFillColor(r, g, b)
			pdf.MultiCell(0, pdfLineHeight, tr(h.Text), "", "L", true)
			pdf.Ln(1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func highlightRGB(color string) (int, int, int) {
	switch color {
	case store.ColorGreen:
		return 200, 240, 200
	case store.ColorBlue:
		return 200, 220, 250
	case store.ColorPink:
		return 250, 210, 230
	case store.ColorOrange:
		return 255, 225, 190
	}
	return 255, 245, 170
}
