// Package extract pulls plain UTF-8 text out of uploaded documents. The
// pipeline treats extraction as opaque: it only checks that the result is
// non-empty after normalization.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"github.com/ledongthuc/pdf"
	"github.com/yuin/goldmark"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

const docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// FromFile extracts text from raw document bytes, dispatching on the
// declared content type first and the filename extension second.
// Unsupported types and unparseable documents are ContentErrors.
func FromFile(data []byte, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch {
	case contentType == "text/plain" || ext == ".txt":
		return string(data), nil
	case contentType == "text/markdown" || ext == ".md":
		return fromMarkdown(data)
	case contentType == "text/html" || ext == ".html" || ext == ".htm":
		return fromHTML(data)
	case contentType == "application/pdf" || ext == ".pdf":
		return fromPDF(data)
	case contentType == docxContentType || ext == ".docx":
		return fromDOCX(data)
	default:
		return "", &types.ContentError{
			Reason: fmt.Sprintf("unsupported file type: %s", displayType(contentType, ext)),
		}
	}
}

// fromMarkdown renders the document to HTML and strips the tags, leaving
// the visible text.
func fromMarkdown(data []byte) (string, error) {
	var html bytes.Buffer
	if err := goldmark.Convert(data, &html); err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to parse markdown: %v", err)}
	}
	return htmlTag.ReplaceAllString(html.String(), " "), nil
}

// fromHTML runs readability extraction so navigation and boilerplate do
// not end up in the video.
func fromHTML(data []byte) (string, error) {
	article, err := readability.FromReader(bytes.NewReader(data), nil)
	if err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to parse HTML: %v", err)}
	}
	return article.TextContent, nil
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to parse PDF: %v", err)}
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to extract PDF text: %v", err)}
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to read PDF text: %v", err)}
	}
	return buf.String(), nil
}

func displayType(contentType, ext string) string {
	if contentType != "" {
		return contentType
	}
	if ext != "" {
		return ext
	}
	return "unknown"
}
