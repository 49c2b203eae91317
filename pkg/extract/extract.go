package extract

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

const (
	// MaxContentLength bounds the snippet handed to the classifier.
	// Applied to decoded text, not raw bytes, so multi-byte runes are
	// never split.
	MaxContentLength = 3000

	maxPDFPages  = 5
	maxSheetRows = 20
)

// Extract converts raw file bytes into a bounded text snippet. It never
// fails outward: any parse error, unknown media type or empty content
// degrades to a filename-only placeholder.
func Extract(content []byte, mimeType, filename string) string {
	if len(content) == 0 {
		return placeholder(filename)
	}

	var text string
	var err error

	switch {
	case strings.Contains(mimeType, "pdf"):
		text, err = fromPDF(content)
	case strings.Contains(mimeType, "word"), strings.Contains(mimeType, "document"):
		text, err = fromDocx(content)
	case strings.Contains(mimeType, "sheet"), strings.Contains(mimeType, "excel"):
		text, err = fromSpreadsheet(content)
	case strings.Contains(mimeType, "text"):
		text = strings.ToValidUTF8(string(content), "")
	default:
		return placeholder(filename)
	}

	if err != nil || text == "" {
		return placeholder(filename)
	}

	return truncate(text)
}

func placeholder(filename string) string {
	return "Filename: " + filename
}

// truncate bounds decoded text to MaxContentLength runes.
func truncate(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxContentLength {
		return text
	}
	return string(runes[:MaxContentLength])
}

func fromPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	pages := reader.NumPage()
	if pages > maxPDFPages {
		pages = maxPDFPages
	}

	var sb strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
	}

	return sb.String(), nil
}

func fromDocx(content []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", err
	}

	var paragraphs []string
	for _, item := range doc.Document.Body.Items {
		if p, ok := item.(*docx.Paragraph); ok {
			paragraphs = append(paragraphs, p.String())
		}
	}

	return strings.Join(paragraphs, "\n"), nil
}

// fromSpreadsheet collects sheet names plus the non-empty cells of the first
// rows of the active sheet.
func fromSpreadsheet(content []byte) (string, error) {
	book, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	defer book.Close()

	parts := book.GetSheetList()

	active := book.GetSheetName(book.GetActiveSheetIndex())
	rows, err := book.GetRows(active)
	if err != nil {
		return "", err
	}
	if len(rows) > maxSheetRows {
		rows = rows[:maxSheetRows]
	}

	for _, row := range rows {
		for _, cell := range row {
			if cell != "" {
				parts = append(parts, cell)
			}
		}
	}

	return strings.Join(parts, " "), nil
}
