// Package extract classifies files by extension and turns the supported
// kinds into plain text.
package extract

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/raido/internal/apperr"
)

// Kind is the closed set of file variants the mirror understands. Every
// file maps to exactly one kind; KindBinary is the catch-all.
type Kind int

const (
	KindBinary Kind = iota
	KindPlainText
	KindMarkup
	KindStructuredDoc
	KindRichText
	KindUnsupported
)

func (k Kind) String() string {
	switch k {
	case KindPlainText:
		return "plain text"
	case KindMarkup:
		return "markup"
	case KindStructuredDoc:
		return "structured document"
	case KindRichText:
		return "rich text"
	case KindUnsupported:
		return "unsupported"
	default:
		return "binary"
	}
}

// TextLike reports whether files of this kind carry extractable text.
func (k Kind) TextLike() bool {
	switch k {
	case KindPlainText, KindMarkup, KindStructuredDoc, KindRichText:
		return true
	}
	return false
}

// Detect maps a file name to its kind by extension, case-insensitively.
// Legacy .doc is recognized but has no extraction strategy.
func Detect(name string) Kind {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt":
		return KindPlainText
	case ".md", ".markdown":
		return KindMarkup
	case ".docx":
		return KindStructuredDoc
	case ".rtf":
		return KindRichText
	case ".doc":
		return KindUnsupported
	default:
		return KindBinary
	}
}

// Service extracts plain text from file contents. It holds the configured
// markdown parser so one instance serves a whole mirror run.
type Service struct {
	md goldmark.Markdown
}

// NewService creates a Service with GFM-flavored markdown support.
func NewService() *Service {
	return &Service{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
		),
	}
}

// Text returns the plain-text content of data interpreted as kind.
// Kinds without a strategy and malformed inputs fail with ErrExtraction.
func (s *Service) Text(kind Kind, data []byte) (string, error) {
	switch kind {
	case KindPlainText:
		return plainText(data)
	case KindMarkup:
		return s.markupText(data)
	case KindStructuredDoc:
		return docxText(data)
	case KindRichText:
		return rtfText(data)
	default:
		return "", fmt.Errorf("extract: no text strategy for %s files: %w", kind, apperr.ErrExtraction)
	}
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func plainText(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("extract: plain text is not valid UTF-8: %w", apperr.ErrExtraction)
	}
	return string(data), nil
}
