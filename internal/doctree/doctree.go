package doctree

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dgallion1/docnav/internal/anchor"
)

// Heading is a single heading as it appears in a document.
type Heading struct {
	Value string `json:"value"`
	Depth int    `json:"depth"` // 1 for h1, 2 for h2, ...
}

// OutlineNode is a heading placed in the navigable outline.
type OutlineNode struct {
	Value    string         `json:"value"`
	Depth    int            `json:"depth"`
	AnchorID string         `json:"anchor_id"`
	Children []*OutlineNode `json:"children"`
}

// ErrInvalidHeading is returned for headings without text or with depth < 1.
var ErrInvalidHeading = errors.New("invalid heading")

// InvalidHeadingError reports which input heading was rejected.
type InvalidHeadingError struct {
	Index   int
	Heading Heading
	Reason  string
}

func (e *InvalidHeadingError) Error() string {
	return fmt.Sprintf("heading %d (%q, depth %d): %s", e.Index, e.Heading.Value, e.Heading.Depth, e.Reason)
}

func (e *InvalidHeadingError) Unwrap() error {
	return ErrInvalidHeading
}

// BuildTree groups a flat heading list into an outline forest.
//
// Only two levels are produced: a heading deeper than the most recent
// top-level node is attached directly under it, however deep it is. Input
// order is preserved and the input slice is not modified.
func BuildTree(headings []Heading) ([]*OutlineNode, error) {
	forest := make([]*OutlineNode, 0, len(headings))
	for i, h := range headings {
		if err := validate(i, h); err != nil {
			return nil, err
		}
		node := &OutlineNode{
			Value:    h.Value,
			Depth:    h.Depth,
			AnchorID: anchor.Derive(h.Value),
			Children: []*OutlineNode{},
		}

		if len(forest) == 0 {
			forest = append(forest, node)
			continue
		}
		last := forest[len(forest)-1]
		if last.Depth < h.Depth {
			last.Children = append(last.Children, node)
		} else {
			forest = append(forest, node)
		}
	}
	return forest, nil
}

func validate(i int, h Heading) error {
	if h.Depth < 1 {
		return &InvalidHeadingError{Index: i, Heading: h, Reason: "depth must be >= 1"}
	}
	if strings.TrimSpace(h.Value) == "" {
		return &InvalidHeadingError{Index: i, Heading: h, Reason: "empty value"}
	}
	return nil
}

// Walk visits every node depth-first, parents before children.
func Walk(forest []*OutlineNode, fn func(n *OutlineNode)) {
	for _, n := range forest {
		fn(n)
		Walk(n.Children, fn)
	}
}

// Flatten returns the headings of a forest in document order.
func Flatten(forest []*OutlineNode) []Heading {
	var out []Heading
	Walk(forest, func(n *OutlineNode) {
		out = append(out, Heading{Value: n.Value, Depth: n.Depth})
	})
	return out
}

// Index maps anchor ids to nodes. When ids collide the later node wins.
func Index(forest []*OutlineNode) map[string]*OutlineNode {
	idx := make(map[string]*OutlineNode)
	Walk(forest, func(n *OutlineNode) {
		idx[n.AnchorID] = n
	})
	return idx
}
