package parser

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docnav/internal/anchor"
	"github.com/dgallion1/docnav/internal/doctree"
	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DOCXParser handles Word documents. Paragraphs styled "Heading 1".."Heading 6"
// become anchored headings; other non-empty paragraphs become <p> elements.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename string) (*Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	doc, err := docx.Parse(bytes.NewReader(src), int64(len(src)))
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}
	return docxDocument(doc.Document.Body.Items, filename)
}

// docxDocument renders the body items of a Word document.
func docxDocument(items []interface{}, filename string) (*Document, error) {
	out := &Document{Title: titleFromFilename(filename)}
	titled := false

	var buf bytes.Buffer
	for _, item := range items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		var n *html.Node
		if level := docxHeadingLevel(para); level > 0 {
			a := headingAtoms[level-1]
			n = &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
			if id := anchor.Derive(text); id != "" {
				n.Attr = []html.Attribute{{Key: "id", Val: id}}
			}
			out.Headings = append(out.Headings, doctree.Heading{Value: text, Depth: level})
			if level == 1 && !titled {
				out.Title = text
				titled = true
			}
		} else {
			n = &html.Node{Type: html.ElementNode, DataAtom: atom.P, Data: "p"}
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("render docx: %w", err)
		}
		buf.WriteByte('\n')
	}
	out.HTML = buf.Bytes()
	return out, nil
}

var headingAtoms = [6]atom.Atom{atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// docxHeadingLevel maps "Heading2" or "heading 2" styles to 2.
func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	rest, ok := strings.CutPrefix(style, "heading")
	if !ok {
		return 0
	}
	level, err := strconv.Atoi(rest)
	if err != nil || level < 1 || level > 6 {
		return 0
	}
	return level
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
