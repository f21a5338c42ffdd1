// Package render turns an extracted article into Markdown and PDF.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/hyperifyio/newsextract/internal/article"
)

// Markdown renders a as a document with a title, an info section, the body
// in fragment order and an index of its media.
func Markdown(a article.Article) string {
	var b strings.Builder
	title := strings.TrimSpace(a.Title)
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if a.Subtitle != "" {
		fmt.Fprintf(&b, "_%s_\n\n", a.Subtitle)
	}

	b.WriteString("## Info\n\n")
	if a.Platform != "" {
		fmt.Fprintf(&b, "- Platform: %s\n", a.Platform)
	}
	if a.Meta.AuthorName != "" {
		if a.Meta.AuthorURL != "" {
			fmt.Fprintf(&b, "- Author: [%s](%s)\n", a.Meta.AuthorName, a.Meta.AuthorURL)
		} else {
			fmt.Fprintf(&b, "- Author: %s\n", a.Meta.AuthorName)
		}
	}
	if a.Meta.PublishTime != "" {
		fmt.Fprintf(&b, "- Published: %s\n", a.Meta.PublishTime)
	}
	if a.SourceURL != "" {
		fmt.Fprintf(&b, "- Source: [%s](%s)\n", a.SourceURL, a.SourceURL)
	}
	if len(a.Meta.Extra) > 0 {
		keys := make([]string, 0, len(a.Meta.Extra))
		for k := range a.Meta.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(&b, "- %s: %s\n", k, a.Meta.Extra[k])
		}
	}
	b.WriteString("\n## Content\n\n")
	for _, f := range a.Fragments {
		switch f.Kind {
		case article.KindText:
			b.WriteString(escapeLeadingHash(f.Content))
		case article.KindImage:
			fmt.Fprintf(&b, "![%s](%s)", altText(f, "image"), f.Content)
		case article.KindVideo:
			fmt.Fprintf(&b, "[%s](%s)", altText(f, "video"), f.Content)
		}
		b.WriteString("\n\n")
	}

	if len(a.Images) > 0 || len(a.Videos) > 0 {
		b.WriteString("## Media\n\n")
		for i, u := range a.Images {
			fmt.Fprintf(&b, "%d. image: %s\n", i+1, u)
		}
		for i, u := range a.Videos {
			fmt.Fprintf(&b, "%d. video: %s\n", len(a.Images)+i+1, u)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

// altText uses the caption unless it merely repeats the URL.
func altText(f article.Fragment, fallback string) string {
	d := strings.TrimSpace(f.Desc)
	if d == "" || d == f.Content {
		return fallback
	}
	return strings.NewReplacer("[", "(", "]", ")", "\n", " ").Replace(d)
}

// escapeLeadingHash keeps a text line starting with '#' from reading as a
// heading.
func escapeLeadingHash(s string) string {
	if strings.HasPrefix(s, "#") {
		return `\` + s
	}
	return s
}
