// Package docsource turns files into ingestible documents.
package docsource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/ragchat/internal/domain"
	"github.com/dslipak/pdf"
)

// MaxFileSize is the largest file that will be read for text extraction.
const MaxFileSize = 50 * 1024 * 1024

var (
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrNoText          = errors.New("no text extracted")
)

// Supported reports whether name has an extension Extract can read.
func Supported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown", ".pdf":
		return true
	}
	return false
}

// Extract returns the plain text of a file's contents, choosing the parser by
// the extension of name.
func Extract(name string, data []byte) (string, error) {
	if len(data) > MaxFileSize {
		return "", ErrFileTooLarge
	}

	var text string
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md", ".markdown":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%s is not valid UTF-8", name)
		}
		text = string(data)
	case ".pdf":
		var err error
		text, err = extractPDF(data)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
	default:
		return "", fmt.Errorf("%s: %w", name, ErrUnsupportedType)
	}

	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w", name, ErrNoText)
	}
	return text, nil
}

func extractPDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	b, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", fmt.Errorf("failed to read PDF text: %w", err)
	}
	return buf.String(), nil
}

// Title derives a document title: the first Markdown heading when there is
// one, otherwise the file name without its extension.
func Title(name, text string) string {
	if ext := strings.ToLower(filepath.Ext(name)); ext == ".md" || ext == ".markdown" {
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "# ") {
				if t := strings.TrimSpace(strings.TrimPrefix(line, "# ")); t != "" {
					return t
				}
			}
		}
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// FromBytes builds a document from file contents. title overrides the derived title.
func FromBytes(name string, data []byte, title string, metadata map[string]any) (domain.Document, error) {
	text, err := Extract(name, data)
	if err != nil {
		return domain.Document{}, err
	}
	if strings.TrimSpace(title) == "" {
		title = Title(name, text)
	}
	return domain.Document{Title: title, Content: text, Metadata: metadata}, nil
}

// ReadFile loads a local .txt, .md or .pdf file as a document.
func ReadFile(path, title string) (domain.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("file not found: %w", err)
	}
	if info.Size() > MaxFileSize {
		return domain.Document{}, fmt.Errorf("%s: %w", path, ErrFileTooLarge)
	}
	if !Supported(path) {
		return domain.Document{}, fmt.Errorf("%s: %w", path, ErrUnsupportedType)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	return FromBytes(path, data, title, map[string]any{
		domain.MetaSource: "file:" + filepath.Base(path),
	})
}
