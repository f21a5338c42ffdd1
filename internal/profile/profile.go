// Package profile describes, as data, where each supported news platform
// keeps its title, byline and article body.
package profile

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"

	"github.com/andybalholm/cascadia"
)

// ErrArticleID is returned when an article id cannot be derived from a URL.
var ErrArticleID = errors.New("cannot derive article id")

// Profile is the configuration of one platform.
type Profile struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	URLPatterns []string `yaml:"url_patterns"`
	BaseURL     string   `yaml:"base_url"`

	Title       Field `yaml:"title"`
	Subtitle    Field `yaml:"subtitle"`
	AuthorName  Field `yaml:"author_name"`
	AuthorURL   Field `yaml:"author_url"`
	PublishTime Field `yaml:"publish_time"`

	// Content is the CSS selector of the article body root.
	Content string `yaml:"content"`

	ImageAttrs      []string `yaml:"image_attrs"`
	VideoAttrs      []string `yaml:"video_attrs"`
	SkipImages      []string `yaml:"skip_images"`
	ExtraContainers []string `yaml:"extra_container_tags"`
	// Strip lists CSS selectors of page furniture removed from the page
	// before the content walk.
	Strip           []string `yaml:"strip"`

	IDRule IDRule   `yaml:"id_rule"`
	Hooks  []string `yaml:"hooks"`

	// Frame, when set, names an element whose src points at the real
	// article document (Naver wraps posts in an iframe).
	Frame *Selector `yaml:"frame"`

	Headers map[string]string `yaml:"headers"`

	patterns []*regexp.Regexp
	skip     []*regexp.Regexp
	content  cascadia.Selector
	strip    []cascadia.Selector
}

// IDRule derives the article id from the URL path.
//
// After lists path markers; the id is the text following the first marker
// found. Otherwise Segment picks a path segment, negative values counting
// from the end, after trailing segments listed in DropLast are removed.
// Cut truncates the id at the first occurrence of the given string and
// TrimSuffix removes a trailing extension.
type IDRule struct {
	After      []string `yaml:"after"`
	Segment    int      `yaml:"segment"`
	DropLast   []string `yaml:"drop_last"`
	Cut        string   `yaml:"cut"`
	TrimSuffix string   `yaml:"trim_suffix"`
}

// Compile validates the profile and prepares its regular expressions and
// selectors. It must be called before the profile is used.
func (p *Profile) Compile() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile without id")
	}
	if len(p.URLPatterns) == 0 {
		return fmt.Errorf("profile %s: no url_patterns", p.ID)
	}
	p.patterns = p.patterns[:0]
	for _, s := range p.URLPatterns {
		re, err := regexp.Compile(s)
		if err != nil {
			return fmt.Errorf("profile %s: url pattern %q: %w", p.ID, s, err)
		}
		p.patterns = append(p.patterns, re)
	}
	p.skip = p.skip[:0]
	for _, s := range p.SkipImages {
		re, err := regexp.Compile(s)
		if err != nil {
			return fmt.Errorf("profile %s: skip image %q: %w", p.ID, s, err)
		}
		p.skip = append(p.skip, re)
	}
	if p.Content != "" {
		m, err := cascadia.Compile(p.Content)
		if err != nil {
			return fmt.Errorf("profile %s: content %q: %w", p.ID, p.Content, err)
		}
		p.content = m
	}
	p.strip = p.strip[:0]
	for _, s := range p.Strip {
		m, err := cascadia.Compile(s)
		if err != nil {
			return fmt.Errorf("profile %s: strip %q: %w", p.ID, s, err)
		}
		p.strip = append(p.strip, m)
	}
	fields := map[string]*Field{
		"title":        &p.Title,
		"subtitle":     &p.Subtitle,
		"author_name":  &p.AuthorName,
		"author_url":   &p.AuthorURL,
		"publish_time": &p.PublishTime,
	}
	for name, f := range fields {
		if err := f.compile(); err != nil {
			return fmt.Errorf("profile %s: %s: %w", p.ID, name, err)
		}
	}
	if p.Frame != nil {
		if err := p.Frame.compile(); err != nil {
			return fmt.Errorf("profile %s: frame: %w", p.ID, err)
		}
	}
	for _, h := range p.Hooks {
		if !knownHooks[h] {
			return fmt.Errorf("profile %s: unknown hook %q", p.ID, h)
		}
	}
	if p.Content == "" && !p.HasHook("quora_answer") {
		return fmt.Errorf("profile %s: content selector required", p.ID)
	}
	return nil
}

// knownHooks lists the hook names the extraction engine implements.
var knownHooks = map[string]bool{
	"wechat_ssr":          true,
	"tencent_window_data": true,
	"sohu_imgs_list":      true,
	"quora_answer":        true,
	"detik_cover":         true,
	"naver_mainframe":     true,
}

// Matches reports whether rawURL belongs to this platform.
func (p *Profile) Matches(rawURL string) bool {
	for _, re := range p.patterns {
		if re.MatchString(rawURL) {
			return true
		}
	}
	return false
}

// ContentMatcher returns the compiled content-root selector, or nil.
func (p *Profile) ContentMatcher() cascadia.Selector { return p.content }

// StripMatchers returns the compiled strip selectors.
func (p *Profile) StripMatchers() []cascadia.Selector { return p.strip }

// SkipImage reports whether an image URL is a known placeholder.
func (p *Profile) SkipImage(u string) bool {
	for _, re := range p.skip {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}

// HasHook reports whether the named hook is enabled.
func (p *Profile) HasHook(name string) bool {
	for _, h := range p.Hooks {
		if h == name {
			return true
		}
	}
	return false
}

// ArticleID derives the platform's article id from rawURL.
func (p *Profile) ArticleID(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrArticleID, err)
	}
	path := strings.TrimRight(u.Path, "/")
	id := ""
	r := p.IDRule
	if len(r.After) > 0 {
		for _, marker := range r.After {
			if i := strings.Index(path, marker); i >= 0 {
				id = path[i+len(marker):]
				break
			}
		}
		if j := strings.Index(id, "/"); j >= 0 {
			id = id[:j]
		}
	} else {
		segs := strings.Split(strings.Trim(path, "/"), "/")
		for len(segs) > 1 && slices.Contains(r.DropLast, segs[len(segs)-1]) {
			segs = segs[:len(segs)-1]
		}
		idx := r.Segment
		if idx < 0 {
			idx = len(segs) + idx
		}
		if idx >= 0 && idx < len(segs) {
			id = segs[idx]
		}
	}
	if r.Cut != "" {
		if j := strings.Index(id, r.Cut); j >= 0 {
			id = id[:j]
		}
	}
	if r.TrimSuffix != "" {
		id = strings.TrimSuffix(id, r.TrimSuffix)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: %s url %q", ErrArticleID, p.ID, rawURL)
	}
	return id, nil
}

// BaseURLParsed returns BaseURL as a URL, or nil when unset or invalid.
func (p *Profile) BaseURLParsed() *url.URL {
	if p.BaseURL == "" {
		return nil
	}
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return nil
	}
	return u
}
