package profile

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"gopkg.in/yaml.v3"

	"github.com/hyperifyio/newsextract/internal/dom"
)

// Selector locates one candidate value in a page. With CSS set, the first
// matching element supplies either the named attribute, its own text, or
// its flattened text. Pattern is a regular expression whose first group
// is taken: against the raw HTML when CSS is empty, otherwise against the
// value the CSS step produced.
type Selector struct {
	CSS     string `yaml:"css"`
	Attr    string `yaml:"attr"`
	Own     bool   `yaml:"own"`
	Pattern string `yaml:"pattern"`

	matcher cascadia.Selector
	re      *regexp.Regexp
}

// UnmarshalYAML accepts a bare CSS string as shorthand.
func (s *Selector) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		s.CSS = strings.TrimSpace(n.Value)
		return nil
	}
	type plain Selector
	var p plain
	if err := n.Decode(&p); err != nil {
		return err
	}
	*s = Selector(p)
	return nil
}

func (s *Selector) compile() error {
	if s.CSS == "" && s.Pattern == "" {
		return fmt.Errorf("selector needs css or pattern")
	}
	if s.CSS != "" {
		m, err := cascadia.Compile(s.CSS)
		if err != nil {
			return fmt.Errorf("css %q: %w", s.CSS, err)
		}
		s.matcher = m
	}
	if s.Pattern != "" {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return fmt.Errorf("pattern %q: %w", s.Pattern, err)
		}
		if re.NumSubexp() < 1 {
			return fmt.Errorf("pattern %q: needs one capture group", s.Pattern)
		}
		s.re = re
	}
	return nil
}

func (s Selector) value(doc *goquery.Selection, raw string) string {
	if s.matcher == nil {
		return s.capture(raw)
	}
	sel := doc.FindMatcher(s.matcher).First()
	if sel.Length() == 0 {
		return ""
	}
	n := sel.Get(0)
	var v string
	switch {
	case s.Attr != "":
		v = dom.Attr(n, s.Attr)
	case s.Own:
		v = dom.OwnText(n)
	default:
		v = dom.Text(n)
	}
	if s.re != nil {
		return s.capture(v)
	}
	return v
}

func (s Selector) capture(in string) string {
	if s.re == nil {
		return ""
	}
	m := s.re.FindStringSubmatch(in)
	if len(m) < 2 {
		return ""
	}
	return dom.Normalize(m[1])
}

// Field is an ordered list of selectors for one article attribute. The
// first selector producing a non-empty value wins; with Join set, every
// non-empty value is kept and joined instead. Resolve makes the result an
// absolute URL against the page URL.
type Field struct {
	Selectors []Selector `yaml:"selectors"`
	Join      string     `yaml:"join"`
	Resolve   bool       `yaml:"resolve"`
}

// UnmarshalYAML accepts three forms: a CSS string, a list of selectors, or
// a mapping. A mapping without a selectors key is read as one selector.
func (f *Field) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var s Selector
		if err := n.Decode(&s); err != nil {
			return err
		}
		f.Selectors = []Selector{s}
		return nil
	case yaml.SequenceNode:
		return n.Decode(&f.Selectors)
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			if n.Content[i].Value == "selectors" {
				type plain Field
				var p plain
				if err := n.Decode(&p); err != nil {
					return err
				}
				*f = Field(p)
				return nil
			}
		}
		var s Selector
		if err := n.Decode(&s); err != nil {
			return err
		}
		f.Selectors = []Selector{s}
		return nil
	}
	return fmt.Errorf("line %d: unsupported field form", n.Line)
}

// IsZero reports whether the field has no selectors.
func (f Field) IsZero() bool { return len(f.Selectors) == 0 }

func (f *Field) compile() error {
	for i := range f.Selectors {
		if err := f.Selectors[i].compile(); err != nil {
			return err
		}
	}
	return nil
}

// Eval evaluates the field against a parsed document and its raw HTML.
func (f Field) Eval(doc *goquery.Selection, raw string, base *url.URL) string {
	var parts []string
	for _, s := range f.Selectors {
		v := strings.TrimSpace(s.value(doc, raw))
		if v == "" {
			continue
		}
		if f.Join == "" {
			return f.finish(v, base)
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return ""
	}
	return f.finish(strings.Join(parts, f.Join), base)
}

func (f Field) finish(v string, base *url.URL) string {
	if f.Resolve {
		return dom.Resolve(base, v)
	}
	return v
}
