package extract

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"smartcv-backend/internal/shared/util"
)

const (
	ExtPDF  = ".pdf"
	ExtDOCX = ".docx"

	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ErrUnsupportedType is returned for any extension other than .pdf and .docx.
var ErrUnsupportedType = errors.New("Unsupported file type")

// ErrEmptyText is returned when a document parses but yields no text.
var ErrEmptyText = errors.New("no text found in document")

// Extractor pulls plain text out of an uploaded CV.
type Extractor interface {
	ExtractText(ctx context.Context, path, ext string) (string, error)
}

// FileExtractor reads documents from disk.
// Libraries used: github.com/ledongthuc/pdf (PDF) and github.com/nguyenthenguyen/docx (DOCX).
type FileExtractor struct{}

// ExtractText dispatches on the declared extension; path's own suffix is ignored.
func (FileExtractor) ExtractText(ctx context.Context, path, ext string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	switch normalizeExt(ext) {
	case ExtPDF:
		text, err := extractPDFFile(path)
		if err != nil {
			return "", fmt.Errorf("Failed to extract text from PDF: %w", err)
		}
		return requireText(text)
	case ExtDOCX:
		text, err := extractDOCXFile(path)
		if err != nil {
			return "", fmt.Errorf("Failed to extract text from DOCX: %w", err)
		}
		return requireText(text)
	default:
		return "", ErrUnsupportedType
	}
}

// IsSupported reports whether a file name or extension can be extracted.
func IsSupported(nameOrExt string) bool {
	switch normalizeExt(nameOrExt) {
	case ExtPDF, ExtDOCX:
		return true
	default:
		return false
	}
}

// MimeFor returns the content type for a supported extension.
func MimeFor(nameOrExt string) string {
	switch normalizeExt(nameOrExt) {
	case ExtPDF:
		return MimePDF
	case ExtDOCX:
		return MimeDOCX
	default:
		return ""
	}
}

func normalizeExt(raw string) string {
	clean := strings.ToLower(strings.TrimSpace(raw))
	if clean == "" {
		return ""
	}
	if !strings.HasPrefix(clean, ".") || strings.Count(clean, ".") > 1 || strings.ContainsAny(clean, `/\ `) {
		clean = util.FileExt(clean)
	}
	return clean
}

func requireText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

func extractPDFFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	return extractPDF(f, info.Size())
}

func extractPDF(r io.ReaderAt, size int64) (string, error) {
	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func extractDOCXFile(path string) (string, error) {
	doc, err := docx.ReadDocxFile(path)
	if err != nil {
		return "", err
	}
	defer doc.Close()
	return stripDocxXML(doc.Editable().GetContent()), nil
}

func stripDocxXML(raw string) string {
	decoder := xml.NewDecoder(strings.NewReader(raw))
	var buf strings.Builder
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return raw
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.WriteString(string(t))
		case xml.StartElement:
			if t.Name.Local == "tab" {
				buf.WriteString("\t")
			}
		case xml.EndElement:
			if t.Name.Local == "p" || t.Name.Local == "br" {
				if buf.Len() > 0 {
					buf.WriteString("\n")
				}
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
