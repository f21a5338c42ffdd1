package extract

import (
	"net/url"

	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/dom"
)

// DefaultImageAttrs lists image source attributes in priority order. Lazy
// attributes come first because pages often keep a 1x1 placeholder in src.
var DefaultImageAttrs = []string{"data-lazy-src", "src", "data-src", "data-original"}

// DefaultVideoAttrs lists video and iframe source attributes in priority order.
var DefaultVideoAttrs = []string{"src", "data-src"}

// Classifier turns img, video and iframe nodes into media fragments.
type Classifier struct {
	ImageAttrs []string
	VideoAttrs []string

	// Base resolves relative and protocol-relative URLs. Nil keeps them as is.
	Base *url.URL

	// Substitute, when set, is called once per image node in walk order with
	// the attribute URL and returns the URL to use instead.
	Substitute func(candidate string) string

	// Accept, when set, rejects image URLs for which it returns false.
	Accept func(u string) bool
}

func (c *Classifier) imageAttrs() []string {
	if len(c.ImageAttrs) == 0 {
		return DefaultImageAttrs
	}
	return c.ImageAttrs
}

func (c *Classifier) videoAttrs() []string {
	if len(c.VideoAttrs) == 0 {
		return DefaultVideoAttrs
	}
	return c.VideoAttrs
}

// Classify returns the media fragment for n, or false when n is not media
// or carries no usable URL.
func (c *Classifier) Classify(n *html.Node) (article.Fragment, bool) {
	switch dom.Tag(n) {
	case "img":
		src := dom.FirstAttr(n, c.imageAttrs()...)
		if c.Substitute != nil {
			src = c.Substitute(src)
		}
		if src == "" {
			return article.Fragment{}, false
		}
		src = dom.Resolve(c.Base, src)
		if c.Accept != nil && !c.Accept(src) {
			return article.Fragment{}, false
		}
		return article.Image(src, dom.FirstAttr(n, "alt", "title")), true
	case "video":
		src := dom.FirstAttr(n, c.videoAttrs()...)
		if src == "" {
			for _, s := range dom.Descendants(n, "source") {
				if src = dom.Attr(s, "src"); src != "" {
					break
				}
			}
		}
		if src == "" {
			return article.Fragment{}, false
		}
		return article.Video(dom.Resolve(c.Base, src), dom.Attr(n, "title")), true
	case "iframe":
		src := dom.FirstAttr(n, c.videoAttrs()...)
		if src == "" {
			return article.Fragment{}, false
		}
		return article.Video(dom.Resolve(c.Base, src), dom.Attr(n, "title")), true
	}
	return article.Fragment{}, false
}
