package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(raw string) (Format, bool) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatJSON:
		return FormatJSON, true
	case FormatPDF:
		return FormatPDF, true
	case FormatXLSX, "excel":
		return FormatXLSX, true
	}
	return "", false
}

// Table is a rendered report: a header row, body rows and an optional
// totals row. Cells keep their Go type so spreadsheets get real numbers.
type Table struct {
	Title    string
	Subtitle string
	Sheet    string
	Headers  []string
	Rows     [][]any
	Footer   []any
}

type File struct {
	ContentType string
	Filename    string
	Data        []byte
}

func Render(t Table, format Format, basename string) (File, error) {
	switch format {
	case FormatPDF:
		data, err := PDF(t)
		if err != nil {
			return File{}, err
		}
		return File{ContentType: ContentTypePDF, Filename: basename + ".pdf", Data: data}, nil
	case FormatXLSX:
		data, err := XLSX(t)
		if err != nil {
			return File{}, err
		}
		return File{ContentType: ContentTypeXLSX, Filename: basename + ".xlsx", Data: data}, nil
	}
	return File{}, fmt.Errorf("unsupported export format %q", format)
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', 2, 32)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(time.DateOnly)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
