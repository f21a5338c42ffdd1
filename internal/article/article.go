// Package article holds the extracted article record and its content
// fragments.
package article

import (
	"fmt"
	"strings"
)

// Kind classifies a content fragment.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// Valid reports whether k is one of the known fragment kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo:
		return true
	}
	return false
}

// UnmarshalText rejects unknown kinds so stored documents stay well-formed.
func (k *Kind) UnmarshalText(b []byte) error {
	v := Kind(strings.ToLower(strings.TrimSpace(string(b))))
	if !v.Valid() {
		return fmt.Errorf("unknown fragment kind %q", string(b))
	}
	*k = v
	return nil
}

// Fragment is one ordered unit of article content: a text line or a media
// reference.
type Fragment struct {
	Kind    Kind   `json:"type"`
	Content string `json:"content"`
	Desc    string `json:"desc"`
}

// NewFragment builds a fragment; an empty desc defaults to the content.
func NewFragment(kind Kind, content, desc string) Fragment {
	content = strings.TrimSpace(content)
	desc = strings.TrimSpace(desc)
	if desc == "" {
		desc = content
	}
	return Fragment{Kind: kind, Content: content, Desc: desc}
}

func Text(s string) Fragment          { return NewFragment(KindText, s, "") }
func Image(url, desc string) Fragment { return NewFragment(KindImage, url, desc) }
func Video(url, desc string) Fragment { return NewFragment(KindVideo, url, desc) }

// Key identifies a fragment for duplicate suppression.
func (f Fragment) Key() string { return string(f.Kind) + ":" + f.Content }

// Empty reports whether the fragment carries no content after trimming.
func (f Fragment) Empty() bool { return strings.TrimSpace(f.Content) == "" }

// Description returns the caption, falling back to the content.
func (f Fragment) Description() string {
	if strings.TrimSpace(f.Desc) != "" {
		return f.Desc
	}
	return f.Content
}

// MetaInfo carries the byline fields of an article. All fields are optional.
type MetaInfo struct {
	AuthorName  string            `json:"author_name"`
	AuthorURL   string            `json:"author_url"`
	PublishTime string            `json:"publish_time"`
	Extra       map[string]string `json:"extra,omitempty"`
}

// Article is the assembled extraction result. Texts, Images and Videos are
// projections of Fragments by kind, in fragment order.
type Article struct {
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle,omitempty"`
	SourceURL string     `json:"news_url"`
	ArticleID string     `json:"news_id"`
	Platform  string     `json:"platform,omitempty"`
	Meta      MetaInfo   `json:"meta_info"`
	Fragments []Fragment `json:"contents"`
	Texts     []string   `json:"texts"`
	Images    []string   `json:"images"`
	Videos    []string   `json:"videos"`
}

// Header groups the scalar fields of an article.
type Header struct {
	Title     string
	Subtitle  string
	SourceURL string
	ArticleID string
	Platform  string
}

// New assembles an Article from already-finalized fragments. The fragment
// slice is copied; the derived projections are computed here and nowhere
// else.
func New(h Header, meta MetaInfo, fragments []Fragment) Article {
	frags := make([]Fragment, len(fragments))
	copy(frags, fragments)
	a := Article{
		Title:     strings.TrimSpace(h.Title),
		Subtitle:  strings.TrimSpace(h.Subtitle),
		SourceURL: h.SourceURL,
		ArticleID: h.ArticleID,
		Platform:  h.Platform,
		Meta:      meta,
		Fragments: frags,
		Texts:     Project(frags, KindText),
		Images:    Project(frags, KindImage),
		Videos:    Project(frags, KindVideo),
	}
	return a
}

// Project returns the contents of fragments of the given kind, in order.
func Project(fragments []Fragment, kind Kind) []string {
	out := make([]string, 0, len(fragments))
	for _, f := range fragments {
		if f.Kind == kind {
			out = append(out, f.Content)
		}
	}
	return out
}

// IsEmpty reports whether the article has no fragments and no text, the
// condition callers treat as a placeholder page worth refetching.
func (a Article) IsEmpty() bool {
	return len(a.Fragments) == 0 && len(a.Texts) == 0
}
