package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/starford/raido/internal/apperr"
)

// docxText opens the .docx zip container and extracts the text of its
// main document part. Runs are concatenated in document order; paragraphs
// end with a newline, explicit breaks and tabs are kept.
func docxText(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("extract: open docx container: %w: %v", apperr.ErrExtraction, err)
	}

	var doc *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("extract: docx has no word/document.xml: %w", apperr.ErrExtraction)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("extract: open document part: %w: %v", apperr.ErrExtraction, err)
	}
	defer rc.Close()

	return wordprocessingText(rc)
}

// wordprocessingText streams WordprocessingML and collects run text.
// Only w:t elements carry visible text; w:tab, w:br and w:cr map to their
// plain-text equivalents and the end of a w:p closes the line.
func wordprocessingText(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)
	var b strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("extract: parse document xml: %w: %v", apperr.ErrExtraction, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				var run string
				if err := dec.DecodeElement(&run, &t); err != nil {
					return "", fmt.Errorf("extract: decode text run: %w: %v", apperr.ErrExtraction, err)
				}
				b.WriteString(run)
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				b.WriteByte('\n')
			}
		}
	}
	return b.String(), nil
}
