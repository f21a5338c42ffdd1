// Package dom provides read-only helpers over golang.org/x/net/html trees:
// tag and attribute access, text flattening, and URL resolution.
package dom

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Tag returns the lowercased tag name of an element node, or "" for any
// other node type.
func Tag(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToLower(n.Data)
}

// Attr returns the trimmed value of the named attribute, or "".
func Attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

// FirstAttr returns the first non-empty attribute among keys, in order.
func FirstAttr(n *html.Node, keys ...string) string {
	for _, k := range keys {
		if v := Attr(n, k); v != "" {
			return v
		}
	}
	return ""
}

// Children returns the direct element children of n in document order.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// FindFirst returns the first element in n's subtree (n included) with the
// given tag, depth first.
func FindFirst(n *html.Node, tag string) *html.Node {
	var res *html.Node
	var dfs func(*html.Node)
	dfs = func(cur *html.Node) {
		if res != nil {
			return
		}
		if cur.Type == html.ElementNode && strings.EqualFold(cur.Data, tag) {
			res = cur
			return
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			dfs(c)
			if res != nil {
				return
			}
		}
	}
	dfs(n)
	return res
}

// Descendants returns the elements strictly below n whose tag is in tags,
// in document order.
func Descendants(n *html.Node, tags ...string) []*html.Node {
	want := make(map[string]bool, len(tags))
	for _, t := range tags {
		want[t] = true
	}
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			if want[Tag(c)] {
				out = append(out, c)
			}
			walk(c)
		}
	}
	walk(n)
	return out
}

// HasAncestor reports whether any ancestor of n has the given tag.
func HasAncestor(n *html.Node, tag string) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if Tag(p) == tag {
			return true
		}
	}
	return false
}

// PrecedingSiblings counts the element siblings before n with the given tag.
func PrecedingSiblings(n *html.Node, tag string) int {
	count := 0
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if Tag(s) == tag {
			count++
		}
	}
	return count
}

// skipText lists elements whose text never counts as content.
var skipText = map[string]bool{"script": true, "style": true, "noscript": true, "template": true}

// blockText lists elements whose boundaries separate words.
var blockText = map[string]bool{
	"p": true, "div": true, "li": true, "ul": true, "ol": true, "dl": true,
	"dt": true, "dd": true, "h1": true, "h2": true, "h3": true, "h4": true,
	"h5": true, "h6": true, "blockquote": true, "pre": true, "section": true,
	"article": true, "header": true, "footer": true, "figure": true,
	"figcaption": true, "table": true, "tr": true, "td": true, "th": true,
}

// Text returns the flattened, normalized text of n's subtree. Text inside
// script, style and noscript elements is ignored. Block element boundaries
// and br read as a space.
func Text(n *html.Node) string {
	if n == nil || skipText[Tag(n)] {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(cur *html.Node) {
		switch cur.Type {
		case html.TextNode:
			b.WriteString(cur.Data)
			return
		case html.ElementNode:
			if skipText[Tag(cur)] {
				return
			}
			if Tag(cur) == "br" {
				b.WriteByte(' ')
				return
			}
		}
		block := blockText[Tag(cur)]
		if block {
			b.WriteByte(' ')
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteByte(' ')
		}
	}
	walk(n)
	return Normalize(b.String())
}

// OwnText returns the normalized text of n's direct text-node children only.
func OwnText(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
			b.WriteByte(' ')
		}
	}
	return Normalize(b.String())
}

// Normalize removes zero-width spaces, collapses whitespace runs to a single
// space, trims, and applies NFC.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\u200b", "")
	s = strings.ReplaceAll(s, "\ufeff", "")
	return norm.NFC.String(collapseSpaces(strings.TrimSpace(s)))
}

func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	lastSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\f' || r == '\u00a0' || r == '\u3000' {
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
			continue
		}
		b.WriteRune(r)
		lastSpace = false
	}
	return strings.TrimSpace(b.String())
}

// Resolve makes ref absolute against base. Protocol-relative references
// pick up the base scheme; data: URIs and unparsable references are
// returned unchanged. A nil base leaves ref untouched.
func Resolve(base *url.URL, ref string) string {
	ref = strings.TrimSpace(ref)
	if base == nil || ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
