package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/anchor"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct {
	md goldmark.Markdown
}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				highlighting.NewHighlighting(
					highlighting.WithStyle("github"),
				),
			),
		),
	}
}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := p.md.Parser().Parse(text.NewReader(src))
	out := &Document{Title: titleFromFilename(filename)}
	titled := false

	// Headings get their ids here rather than through goldmark's auto ids so
	// that the DOM id is exactly what the outline links to, duplicates included.
	err = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		value := strings.TrimSpace(inlineText(h, src))
		if value == "" {
			return ast.WalkSkipChildren, nil
		}
		if id := anchor.Derive(value); id != "" {
			h.SetAttributeString("id", []byte(id))
		}
		out.Headings = append(out.Headings, doctree.Heading{Value: value, Depth: h.Level})
		if h.Level == 1 && !titled {
			out.Title = value
			titled = true
		}
		return ast.WalkSkipChildren, nil
	})
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := p.md.Renderer().Render(&buf, src, doc); err != nil {
		return nil, err
	}
	out.HTML = buf.Bytes()
	return out, nil
}

// inlineText gets the plain text of a goldmark inline container.
func inlineText(n ast.Node, src []byte) string {
	var buf bytes.Buffer
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch t := c.(type) {
		case *ast.Text:
			buf.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				buf.WriteByte(' ')
			}
		case *ast.String:
			buf.Write(t.Value)
		default:
			// Recurse for emphasis, links and code spans.
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}
