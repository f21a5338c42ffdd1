// Package store persists extracted articles as pretty-printed JSON files
// laid out as <dir>/<platform>/<article_id>.json.
package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hyperifyio/newsextract/internal/article"
)

// ErrMissingKey is returned when an article lacks the platform or id needed
// to place it on disk.
var ErrMissingKey = errors.New("article has no platform or id")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Store writes articles under Dir.
type Store struct {
	Dir string
}

// Path returns where the article with the given platform and id is stored.
func (s *Store) Path(platform, id string) (string, error) {
	p := sanitize(platform)
	i := sanitize(id)
	if p == "" || i == "" {
		return "", ErrMissingKey
	}
	root := strings.TrimSpace(s.Dir)
	if root == "" {
		root = "output"
	}
	return filepath.Join(root, p, i+".json"), nil
}

func sanitize(s string) string {
	s = unsafeName.ReplaceAllString(strings.TrimSpace(s), "_")
	s = strings.Trim(s, "._")
	return s
}

// Save writes a as JSON and returns the file path. The file is replaced
// atomically so readers never observe a partial document.
func (s *Store) Save(a article.Article) (string, error) {
	path, err := s.Path(a.Platform, a.ArticleID)
	if err != nil {
		return "", err
	}
	data, err := Marshal(a)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".article-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("rename: %w", err)
	}
	return path, nil
}

// Load reads a stored article back.
func (s *Store) Load(platform, id string) (article.Article, error) {
	path, err := s.Path(platform, id)
	if err != nil {
		return article.Article{}, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return article.Article{}, err
	}
	var a article.Article
	if err := json.Unmarshal(b, &a); err != nil {
		return article.Article{}, fmt.Errorf("decode %s: %w", path, err)
	}
	return a, nil
}

// Marshal encodes a with four-space indentation. HTML characters in URLs and
// non-ASCII text are written as-is.
func Marshal(a article.Article) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(a); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
