// Package extract turns article pages into ordered content fragments using
// per-platform profiles.
package extract

import (
	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/dom"
)

// fallbackRoot picks the readable region of a page when the profile's
// content selector matches nothing, preferring <main> or <article> and
// falling back to <body>.
func fallbackRoot(doc *html.Node) *html.Node {
	for _, tag := range []string{"main", "article", "body"} {
		if n := dom.FindFirst(doc, tag); n != nil {
			return n
		}
	}
	return nil
}
