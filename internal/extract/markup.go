package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/starford/raido/internal/apperr"
)

// markupText strips YAML frontmatter and renders the remaining markdown to
// plain text by walking the parsed AST. Formatting is dropped; text, code
// and table content survive with block structure as line breaks.
func (s *Service) markupText(data []byte) (string, error) {
	body := stripFrontmatter(data)
	if len(bytes.TrimSpace(body)) == 0 {
		return "", nil
	}

	doc := s.md.Parser().Parse(text.NewReader(body))
	var b strings.Builder
	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.ListItem, *ast.Blockquote:
			breakLine(&b)
		case *extast.TableHeader, *extast.TableRow:
			breakLine(&b)
		case *extast.TableCell:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
				b.WriteByte('\t')
			}
		case *ast.Text:
			b.Write(node.Segment.Value(body))
			if node.SoftLineBreak() || node.HardLineBreak() {
				b.WriteByte('\n')
			}
		case *ast.String:
			b.Write(node.Value)
		case *ast.AutoLink:
			b.Write(node.Label(body))
		case *ast.CodeBlock:
			breakLine(&b)
			writeSegments(&b, node.Lines(), body)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			breakLine(&b)
			writeSegments(&b, node.Lines(), body)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("extract: walk markdown: %w: %v", apperr.ErrExtraction, err)
	}
	return b.String(), nil
}

func breakLine(b *strings.Builder) {
	if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
		b.WriteByte('\n')
	}
}

func writeSegments(b *strings.Builder, lines *text.Segments, src []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
}

// stripFrontmatter removes a leading YAML frontmatter block (between ---
// delimiters). Content that only looks like frontmatter but is not valid
// YAML stays in the body.
func stripFrontmatter(data []byte) []byte {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return data
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		// No closing delimiter.
		return data
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return data
	}

	after := rest[idx+1+len(delim):]
	return bytes.TrimLeft(after, "\n\r")
}
