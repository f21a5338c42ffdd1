package extract

import (
	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/dom"
)

// DefaultMaxDepth bounds recursion on pathologically nested markup.
const DefaultMaxDepth = 256

// Walker converts a content subtree into an ordered fragment list. A
// Walker holds no per-walk state; one value may serve concurrent walks as
// long as its Classifier hooks are safe for that.
type Walker struct {
	Media        *Classifier
	MaxDepth     int
	// DropCaptions keeps only the media of a paragraph that holds any.
	DropCaptions bool

	containers map[string]bool
}

// NewWalker returns a walker using c for media and the default container
// tags plus extra.
func NewWalker(c *Classifier, extra ...string) *Walker {
	if c == nil {
		c = &Classifier{}
	}
	w := &Walker{Media: c, MaxDepth: DefaultMaxDepth, containers: map[string]bool{}}
	for _, t := range DefaultContainers {
		w.containers[t] = true
	}
	for _, t := range extra {
		w.containers[t] = true
	}
	return w
}

// Walk dispatches root and returns the finalized fragments: empty content
// dropped and repeats of a (kind, content) pair removed.
func (w *Walker) Walk(root *html.Node) []article.Fragment {
	if root == nil {
		return []article.Fragment{}
	}
	return article.Finalize(w.visit(root, 0, nil))
}

func (w *Walker) visit(n *html.Node, depth int, out []article.Fragment) []article.Fragment {
	if depth > w.maxDepth() || n.Type != html.ElementNode {
		return out
	}
	switch w.classify(n) {
	case catContainer:
		if t := dom.OwnText(n); t != "" {
			out = append(out, article.Text(t))
		}
		for _, c := range dom.Children(n) {
			out = w.visit(c, depth+1, out)
		}
	case catHeading:
		out = appendText(out, dom.Text(n))
	case catList:
		out = append(out, flattenList(n)...)
	case catListItem:
		if f, ok := flattenItem(n); ok {
			out = append(out, f)
		}
	case catMedia:
		if f, ok := w.Media.Classify(n); ok {
			out = append(out, f)
		}
	case catParagraph, catInline, catAnchor:
		before := len(out)
		out = w.embeddedMedia(n, out)
		if w.DropCaptions && len(out) > before {
			return out
		}
		out = appendText(out, dom.Text(n))
	case catOther:
	}
	return out
}

// embeddedMedia emits every classifiable media descendant of n in document
// order.
func (w *Walker) embeddedMedia(n *html.Node, out []article.Fragment) []article.Fragment {
	for _, m := range dom.Descendants(n, mediaTags...) {
		if f, ok := w.Media.Classify(m); ok {
			out = append(out, f)
		}
	}
	return out
}

func (w *Walker) maxDepth() int {
	if w.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return w.MaxDepth
}

func appendText(out []article.Fragment, s string) []article.Fragment {
	if s == "" {
		return out
	}
	return append(out, article.Text(s))
}
