package export

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/jung-kurt/gofpdf"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PDF renders t on landscape A4 with the core Helvetica font. Core fonts
// only cover Latin-1, so Vietnamese diacritics are folded to ASCII.
func PDF(t Table) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, fold(t.Title), "", 1, "L", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 7, fold(t.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(3)

	if len(t.Headers) > 0 {
		pageWidth, _ := pdf.GetPageSize()
		left, _, right, _ := pdf.GetMargins()
		width := (pageWidth - left - right) / float64(len(t.Headers))

		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, h := range t.Headers {
			pdf.CellFormat(width, 8, fold(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 9)
		for _, row := range t.Rows {
			writeRow(pdf, row, len(t.Headers), width)
		}
		if len(t.Footer) > 0 {
			pdf.SetFont("Helvetica", "B", 9)
			writeRow(pdf, t.Footer, len(t.Headers), width)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeRow(pdf *gofpdf.Fpdf, row []any, columns int, width float64) {
	for i := range columns {
		var v any
		if i < len(row) {
			v = row[i]
		}
		pdf.CellFormat(width, 7, fold(cellText(v)), "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
}

var foldReplacer = strings.NewReplacer("đ", "d", "Đ", "D")

// fold strips combining marks so text survives a Latin-1 font.
func fold(s string) string {
	s = foldReplacer.Replace(s)
	out, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		return s
	}
	return out
}
