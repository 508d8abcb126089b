package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// fromDOCX reads word/document.xml out of the zip container and collects
// the text runs, one line per paragraph. DOCX is simple enough that the
// zip plus an XML token walk covers every document we care about.
func fromDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to parse DOCX: %v", err)}
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc, err = f.Open()
			if err != nil {
				return "", &types.ContentError{Reason: fmt.Sprintf("failed to read DOCX document: %v", err)}
			}
			break
		}
	}
	if doc == nil {
		return "", &types.ContentError{Reason: "DOCX has no document body"}
	}
	defer doc.Close()

	text, err := collectDocumentText(doc)
	if err != nil {
		return "", &types.ContentError{Reason: fmt.Sprintf("failed to parse DOCX document: %v", err)}
	}
	return text, nil
}

func collectDocumentText(r io.Reader) (string, error) {
	decoder := xml.NewDecoder(r)
	var out strings.Builder
	inText := false

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.Write(t)
			}
		}
	}
	return out.String(), nil
}
