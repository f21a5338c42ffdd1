// Package aggregate merges article URL lists from the command line and input
// files into one de-duplicated work list.
package aggregate

import (
	"bufio"
	"io"
	"net/url"
	"strings"
)

var trackingParams = []string{"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content", "utm_id", "gclid", "fbclid", "spm"}

// MergeAndNormalize merges URL lists, canonicalizes each URL, trims obvious
// tracking parameters and drops exact duplicates. The first occurrence keeps
// its position. Unparsable and non-absolute entries are skipped.
func MergeAndNormalize(groups ...[]string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 16)
	for _, g := range groups {
		for _, raw := range g {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				continue
			}
			u, err := url.Parse(raw)
			if err != nil || u.Scheme == "" || u.Host == "" {
				continue
			}
			normalizeURL(u)
			key := u.String()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

func normalizeURL(u *url.URL) {
	u.Fragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Scheme = strings.ToLower(u.Scheme)
	if u.RawQuery == "" {
		return
	}
	q := u.Query()
	removed := false
	for _, p := range trackingParams {
		if q.Has(p) {
			q.Del(p)
			removed = true
		}
	}
	// Re-encoding sorts the parameters, so only do it when something changed.
	if removed {
		u.RawQuery = q.Encode()
	}
}

// ReadList reads one URL per line. Blank lines and lines starting with '#'
// are ignored.
func ReadList(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, sc.Err()
}
