package extract

import (
	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/dom"
)

// category is the walker's view of an element. It is computed once per
// visited node and switched on exhaustively.
type category int

const (
	catOther category = iota
	catContainer
	catHeading
	catList
	catListItem
	catMedia
	catParagraph
	catInline
	catAnchor
)

func (c category) String() string {
	switch c {
	case catContainer:
		return "container"
	case catHeading:
		return "heading"
	case catList:
		return "list"
	case catListItem:
		return "list-item"
	case catMedia:
		return "media"
	case catParagraph:
		return "paragraph"
	case catInline:
		return "inline"
	case catAnchor:
		return "anchor"
	}
	return "other"
}

// DefaultContainers are the structural wrappers the walker descends into.
var DefaultContainers = []string{
	"section", "div", "article", "blockquote", "figure", "main", "center",
	"table", "tbody", "thead", "tr", "td", "th",
}

var fixedCategories = map[string]category{
	"h1":     catHeading,
	"h2":     catHeading,
	"h3":     catHeading,
	"h4":     catHeading,
	"h5":     catHeading,
	"h6":     catHeading,
	"ul":     catList,
	"ol":     catList,
	"li":     catListItem,
	"img":    catMedia,
	"video":  catMedia,
	"iframe": catMedia,
	"p":      catParagraph,
	"span":   catInline,
	"strong": catInline,
	"em":     catInline,
	"b":      catInline,
	"i":      catInline,
	"u":      catInline,
	"font":   catInline,
	"a":      catAnchor,
}

// mediaTags are the descendants pulled out of paragraphs and inline nodes
// before their text is flattened.
var mediaTags = []string{"img", "video", "iframe"}

func (w *Walker) classify(n *html.Node) category {
	tag := dom.Tag(n)
	if tag == "" {
		return catOther
	}
	if w.containers[tag] {
		return catContainer
	}
	return fixedCategories[tag]
}
