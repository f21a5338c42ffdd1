package extract

import (
	"strconv"

	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/dom"
)

// Bullet prefixes items that are not inside an ordered list.
const Bullet = "• "

// flattenList emits one text fragment per non-empty li below list, at any
// depth.
func flattenList(list *html.Node) []article.Fragment {
	var out []article.Fragment
	for _, li := range dom.Descendants(list, "li") {
		if f, ok := flattenItem(li); ok {
			out = append(out, f)
		}
	}
	return out
}

// flattenItem numbers an item by its position among sibling items when it
// sits inside an ordered list, and bullets it otherwise.
func flattenItem(li *html.Node) (article.Fragment, bool) {
	text := dom.Text(li)
	if text == "" {
		return article.Fragment{}, false
	}
	if dom.HasAncestor(li, "ol") {
		pos := dom.PrecedingSiblings(li, "li") + 1
		return article.Text(strconv.Itoa(pos) + ". " + text), true
	}
	return article.Text(Bullet + text), true
}
