package outline

import (
	"io"

	"github.com/dgallion1/docnav/internal/anchor"
	"github.com/dgallion1/docnav/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Classifier picks the style class for an outline entry.
type Classifier func(nested bool) string

// DefaultClassifier distinguishes top-level entries from nested ones.
func DefaultClassifier(nested bool) string {
	if nested {
		return "toc-item toc-item-nested"
	}
	return "toc-item"
}

// Item is one navigable entry of a rendered outline.
type Item struct {
	Label    string `json:"label"`
	AnchorID string `json:"anchor_id"`
	Href     string `json:"href"`
	Class    string `json:"class"`
	Active   bool   `json:"active"`
	Children []Item `json:"children,omitempty"`
}

// Build projects an outline forest into navigable items. An entry is active
// when its anchor id equals active; an empty active marks nothing.
func Build(forest []*doctree.OutlineNode, active string, classify Classifier) []Item {
	if classify == nil {
		classify = DefaultClassifier
	}
	return build(forest, active, classify, false)
}

func build(nodes []*doctree.OutlineNode, active string, classify Classifier, nested bool) []Item {
	if len(nodes) == 0 {
		return nil
	}
	items := make([]Item, 0, len(nodes))
	for _, n := range nodes {
		items = append(items, Item{
			Label:    n.Value,
			AnchorID: n.AnchorID,
			Href:     anchor.Href(n.AnchorID),
			Class:    classify(nested),
			Active:   active != "" && n.AnchorID == active,
			Children: build(n.Children, active, classify, true),
		})
	}
	return items
}

// RenderHTML writes items as a nested list of anchor links.
func RenderHTML(w io.Writer, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	return html.Render(w, list(items))
}

func list(items []Item) *html.Node {
	ul := element(atom.Ul, html.Attribute{Key: "class", Val: "toc-list"})
	for _, it := range items {
		li := element(atom.Li, html.Attribute{Key: "class", Val: it.Class})

		class := "toc-link"
		if it.Active {
			class += " active"
		}
		a := element(atom.A,
			html.Attribute{Key: "href", Val: it.Href},
			html.Attribute{Key: "class", Val: class},
			html.Attribute{Key: "data-anchor", Val: it.AnchorID},
		)
		if it.Active {
			a.Attr = append(a.Attr, html.Attribute{Key: "aria-current", Val: "location"})
		}
		a.AppendChild(&html.Node{Type: html.TextNode, Data: it.Label})
		li.AppendChild(a)

		if len(it.Children) > 0 {
			li.AppendChild(list(it.Children))
		}
		ul.AppendChild(li)
	}
	return ul
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}
