// Package paper extracts plain text from uploaded paper files.
package paper

import (
	"bytes"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ledongthuc/pdf"
)

// Supported content types.
const (
	TypeText = "text/plain"
	TypePDF  = "application/pdf"
	TypeHTML = "text/html"
)

var (
	ErrUnsupportedType = errors.New("unsupported file type (only TXT, PDF and HTML allowed)")
	ErrPDFExtraction   = errors.New("failed to read PDF file")
	ErrEmptyContent    = errors.New("no text could be extracted")
)

// File is an extracted upload.
type File struct {
	Name        string
	ContentType string
	Text        string
	// BaseName is the download name for the summary, e.g. "paper_summary".
	BaseName string
}

// DetectType resolves the content type from the declared header, falling back
// to the extension when the header is missing or generic.
func DetectType(filename, declared string) (string, error) {
	if declared != "" {
		if mt, _, err := mime.ParseMediaType(declared); err == nil {
			declared = mt
		}
	}
	switch declared {
	case TypeText, TypePDF, TypeHTML:
		return declared, nil
	case "", "application/octet-stream":
	default:
		return "", ErrUnsupportedType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return TypeText, nil
	case ".pdf":
		return TypePDF, nil
	case ".html", ".htm":
		return TypeHTML, nil
	default:
		return "", ErrUnsupportedType
	}
}

// Extract converts raw upload bytes into text.
func Extract(filename, declaredType string, content []byte) (File, error) {
	ct, err := DetectType(filename, declaredType)
	if err != nil {
		return File{}, err
	}

	var text string
	switch ct {
	case TypePDF:
		text, err = ExtractPDF(content)
	case TypeHTML:
		text, err = ExtractHTML(content)
	default:
		text = string(content)
	}
	if err != nil {
		return File{}, err
	}
	if strings.TrimSpace(text) == "" {
		return File{}, ErrEmptyContent
	}

	return File{
		Name:        filename,
		ContentType: ct,
		Text:        text,
		BaseName:    SummaryBaseName(filename),
	}, nil
}

// SummaryBaseName strips the last extension and appends "_summary".
func SummaryBaseName(filename string) string {
	base := filepath.Base(filename)
	if ext := filepath.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." || base == "/" {
		base = "paper"
	}
	return base + "_summary"
}

// ExtractPDF reads the text layer page by page, one line break between pages.
func ExtractPDF(content []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFExtraction, err)
	}

	var b strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() || page.V.Key("Contents").Kind() == pdf.Null {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrPDFExtraction, pageNum, err)
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

// ExtractHTML returns the visible body text with markup, scripts and
// navigation removed.
func ExtractHTML(content []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var lines []string
	for _, line := range strings.Split(doc.Find("body").Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
