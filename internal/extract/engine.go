package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/dom"
	"github.com/hyperifyio/newsextract/internal/profile"
)

// ErrMissingTitle is the only extraction failure; every other markup
// problem just yields fewer fragments.
var ErrMissingTitle = errors.New("missing title")

// TitleError reports a page without an extractable title.
type TitleError struct {
	URL string
}

func (e *TitleError) Error() string { return "missing title: " + e.URL }

func (e *TitleError) Unwrap() error { return ErrMissingTitle }

// Engine extracts articles for one platform profile. It is stateless and
// safe for concurrent use.
type Engine struct {
	Profile *profile.Profile
}

// New returns an engine for p.
func New(p *profile.Profile) *Engine {
	return &Engine{Profile: p}
}

// page is the per-call parse state shared with hooks.
type page struct {
	url  string
	base *url.URL
	raw  string
	doc  *goquery.Document

	header article.Header
	meta   article.MetaInfo
	media  *Classifier

	// lead is emitted before the body fragments.
	lead []article.Fragment
	// body replaces the DOM walk when replaced is set.
	body     []article.Fragment
	replaced bool

	// dropCaptions drops the text of paragraphs that carry media.
	dropCaptions bool
}

// Parse extracts an article from body fetched from pageURL. A missing title
// yields a *TitleError; an article with zero fragments is not an error.
func (e *Engine) Parse(pageURL string, body []byte) (article.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return article.Article{}, fmt.Errorf("parse html: %w", err)
	}
	p := e.Profile
	base, _ := url.Parse(pageURL)
	pg := &page{url: pageURL, base: base, raw: string(body), doc: doc}
	pg.header.SourceURL = pageURL
	pg.header.Platform = p.ID
	if id, err := p.ArticleID(pageURL); err == nil {
		pg.header.ArticleID = id
	}
	pg.media = &Classifier{
		ImageAttrs: p.ImageAttrs,
		VideoAttrs: p.VideoAttrs,
		Base:       base,
		Accept:     func(u string) bool { return !p.SkipImage(u) },
	}

	for _, name := range p.Hooks {
		if h := hooks[name]; h != nil {
			h(pg)
		}
	}

	root := doc.Selection
	if pg.header.Title == "" {
		pg.header.Title = p.Title.Eval(root, pg.raw, base)
	}
	if pg.header.Title == "" {
		return article.Article{}, &TitleError{URL: pageURL}
	}
	if pg.header.Subtitle == "" {
		pg.header.Subtitle = p.Subtitle.Eval(root, pg.raw, base)
	}
	fill(&pg.meta.AuthorName, p.AuthorName, root, pg.raw, base)
	fill(&pg.meta.AuthorURL, p.AuthorURL, root, pg.raw, base)
	fill(&pg.meta.PublishTime, p.PublishTime, root, pg.raw, base)

	if !pg.replaced {
		for _, m := range p.StripMatchers() {
			doc.FindMatcher(m).Remove()
		}
		w := NewWalker(pg.media, p.ExtraContainers...)
		w.DropCaptions = pg.dropCaptions
		pg.body = w.Walk(e.contentRoot(doc))
	}
	frags := make([]article.Fragment, 0, len(pg.lead)+len(pg.body))
	frags = append(frags, pg.lead...)
	frags = append(frags, pg.body...)
	return article.New(pg.header, pg.meta, article.Finalize(frags)), nil
}

func fill(dst *string, f profile.Field, doc *goquery.Selection, raw string, base *url.URL) {
	if *dst != "" || f.IsZero() {
		return
	}
	*dst = f.Eval(doc, raw, base)
}

// contentRoot returns the node matched by the profile's content selector,
// falling back to the page's main readable region.
func (e *Engine) contentRoot(doc *goquery.Document) *html.Node {
	if m := e.Profile.ContentMatcher(); m != nil {
		if sel := doc.FindMatcher(m); sel.Length() > 0 {
			return sel.Get(0)
		}
	}
	if len(doc.Nodes) == 0 {
		return nil
	}
	return fallbackRoot(doc.Nodes[0])
}

// FrameURL returns the address of the document embedded by the profile's
// frame selector, resolved against the profile base URL. It reports false
// when the profile has no frame or the page does not carry one.
func (e *Engine) FrameURL(body []byte) (string, bool) {
	if e.Profile.Frame == nil {
		return "", false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", false
	}
	f := profile.Field{Selectors: []profile.Selector{*e.Profile.Frame}}
	src := f.Eval(doc.Selection, string(body), nil)
	if src == "" {
		return "", false
	}
	return dom.Resolve(e.Profile.BaseURLParsed(), src), true
}
