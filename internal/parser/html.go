package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docnav/internal/anchor"
	"github.com/dgallion1/docnav/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// HTMLParser handles pre-rendered HTML pages.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &Document{Title: titleFromFilename(filename)}
	if title := findTitle(doc); title != "" {
		out.Title = title
	}

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if level := headingLevel(n.Data); level > 0 {
				value := textContent(n)
				if value != "" {
					if id := anchor.Derive(value); id != "" {
						setAttr(n, "id", id)
					}
					out.Headings = append(out.Headings, doctree.Heading{Value: value, Depth: level})
				}
				return
			}
			// Site chrome is not part of the page outline.
			switch n.Data {
			case "script", "style", "nav", "footer", "header":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	body := findBody(doc)
	if body == nil {
		body = doc
	}
	walk(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
	}
	out.HTML = buf.Bytes()
	return out, nil
}

// ElementIDs returns every id attribute present in an HTML fragment.
func ElementIDs(r io.Reader) (map[string]bool, error) {
	nodes, err := html.ParseFragment(r, &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"})
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	ids := make(map[string]bool)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range n.Attr {
				if a.Key == "id" {
					ids[a.Val] = true
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return ids, nil
}

// MissingAnchors lists outline anchors with no matching element in body.
// Navigation to those anchors does not scroll.
func MissingAnchors(body []byte, forest []*doctree.OutlineNode) ([]string, error) {
	ids, err := ElementIDs(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var missing []string
	doctree.Walk(forest, func(n *doctree.OutlineNode) {
		if n.AnchorID != "" && !ids[n.AnchorID] {
			missing = append(missing, n.AnchorID)
		}
	})
	return missing, nil
}

// UnanchoredHeadings returns the text of headings whose anchor id is empty,
// such as a heading made only of stripped punctuation. Their outline links
// point at "#" and cannot be navigated.
func UnanchoredHeadings(forest []*doctree.OutlineNode) []string {
	var out []string
	doctree.Walk(forest, func(n *doctree.OutlineNode) {
		if n.AnchorID == "" {
			out = append(out, n.Value)
		}
	})
	return out
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
