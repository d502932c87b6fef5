// Package document loads plain-text, Markdown and PDF files as text for
// indexing and persona extraction.
package document

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// DefaultExcerptChars caps the text handed to persona extraction.
const DefaultExcerptChars = 8000

var (
	// ErrNotFound is returned when the path does not exist.
	ErrNotFound = errors.New("document: not found")

	// ErrUnsupportedFormat is returned for extensions Load cannot read.
	ErrUnsupportedFormat = errors.New("document: unsupported format")
)

// SupportedExtensions lists the extensions Load accepts.
var SupportedExtensions = []string{".txt", ".md", ".pdf"}

// Loader turns a file path into text.
type Loader interface {
	Load(path string) (string, error)
}

// FileLoader is the filesystem Loader.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(path string) (string, error) {
	return Load(path)
}

// Load reads the document at path. Text and Markdown files are returned
// verbatim; PDFs are reduced to the text shown on each page, one page per
// line group.
func Load(path string) (string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return "", fmt.Errorf("document: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrUnsupportedFormat, path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("document: read %s: %w", path, err)
		}
		if !utf8.Valid(b) {
			return "", fmt.Errorf("document: %s is not valid UTF-8", path)
		}
		return string(b), nil
	case ".pdf":
		return loadPDF(path)
	default:
		return "", fmt.Errorf("%w: %q (supported: %s)", ErrUnsupportedFormat, ext, strings.Join(SupportedExtensions, ", "))
	}
}

// Excerpt returns at most maxChars characters of text. A maxChars <= 0
// uses DefaultExcerptChars.
func Excerpt(text string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = DefaultExcerptChars
	}
	if utf8.RuneCountInString(text) <= maxChars {
		return text
	}
	return string([]rune(text)[:maxChars])
}
