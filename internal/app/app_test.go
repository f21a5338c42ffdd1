package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hyperifyio/newsextract/internal/extract"
	"github.com/hyperifyio/newsextract/internal/profile"
	"github.com/hyperifyio/newsextract/internal/store"
)

const testProfiles = `profiles:
  - id: local
    name: Local News
    url_patterns: ['^http://127\.0\.0\.1:\d+/news/']
    base_url: %s
    title: h1
    content: article
    author_name: 'span.author'
    id_rule: {segment: -1}
    frame: {css: 'iframe#mainFrame', attr: src}
    headers:
      Referer: https://local.example/
`

const fullPage = `<html><body><h1>Local headline</h1><span class="author">Ann</span>
<article><p>First paragraph.</p><p><img src="/img/a.jpg">Second paragraph.</p></article></body></html>`

const emptyPage = `<html><body><h1>Local headline</h1><article></article></body></html>`

func newTestApp(t *testing.T, srv *httptest.Server, mutate func(*Config)) *App {
	t.Helper()
	dir := t.TempDir()
	profiles := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(profiles, []byte(fmt.Sprintf(testProfiles, srv.URL)), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}
	cfg := Defaults()
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.CacheDir = filepath.Join(dir, "cache")
	cfg.Profiles = profiles
	cfg.RetryWait = time.Millisecond
	cfg.Timeout = 5 * time.Second
	if mutate != nil {
		mutate(&cfg)
	}
	a, err := New(cfg)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a
}

func TestRun_ExtractsAndSaves(t *testing.T) {
	var referer atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer.Store(r.Header.Get("Referer"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(fullPage))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, func(c *Config) { c.Markdown = true })
	url := srv.URL + "/news/42"
	results, err := a.Run(context.Background(), []string{url})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != 1 || len(results[0].Files) != 2 {
		t.Fatalf("expected json and markdown files, got %+v", results)
	}
	if got, _ := referer.Load().(string); got != "https://local.example/" {
		t.Fatalf("profile header not sent, referer=%q", got)
	}
	st := &store.Store{Dir: a.cfg.OutputDir}
	art, err := st.Load("local", "42")
	if err != nil {
		t.Fatalf("load stored: %v", err)
	}
	if art.Title != "Local headline" || art.Meta.AuthorName != "Ann" || art.SourceURL != url {
		t.Fatalf("unexpected article: %+v", art)
	}
	want := []string{"First paragraph.", "Second paragraph."}
	if strings.Join(art.Texts, "|") != strings.Join(want, "|") {
		t.Fatalf("texts = %v", art.Texts)
	}
	if len(art.Images) != 1 || art.Images[0] != srv.URL+"/img/a.jpg" {
		t.Fatalf("images = %v", art.Images)
	}
	md, err := os.ReadFile(results[0].Files[1])
	if err != nil || !strings.Contains(string(md), "# Local headline") {
		t.Fatalf("markdown missing: %v", err)
	}
}

func TestExtract_RefetchesEmptyContentBypassingCache(t *testing.T) {
	var calls int32
	var conditional int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if r.Header.Get("If-None-Match") != "" {
			atomic.AddInt32(&conditional, 1)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Header().Set("ETag", fmt.Sprintf(`"v%d"`, n))
		if n < 3 {
			_, _ = w.Write([]byte(emptyPage))
			return
		}
		_, _ = w.Write([]byte(fullPage))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, nil)
	art, err := a.Extract(context.Background(), srv.URL+"/news/7")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if calls != 3 || conditional != 0 {
		t.Fatalf("calls=%d conditional=%d", calls, conditional)
	}
	if art.ArticleID != "7" || len(art.Fragments) == 0 {
		t.Fatalf("unexpected article: %+v", art)
	}
}

func TestExtract_EmptyAfterAllAttempts(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(emptyPage))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, nil)
	_, err := a.Extract(context.Background(), srv.URL+"/news/8")
	if !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestExtract_MissingTitleIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><body><article><p>no title</p></article></body></html>`))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, nil)
	_, err := a.Extract(context.Background(), srv.URL+"/news/9")
	var te *extract.TitleError
	if !errors.As(err, &te) || !errors.Is(err, extract.ErrMissingTitle) {
		t.Fatalf("expected TitleError, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("missing title must abort without refetching, got %d calls", calls)
	}
}

func TestExtract_FollowsFrame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if strings.HasPrefix(r.URL.Path, "/frame/") {
			_, _ = w.Write([]byte(fullPage))
			return
		}
		_, _ = w.Write([]byte(`<html><body><iframe id="mainFrame" src="/frame/5"></iframe></body></html>`))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, nil)
	art, err := a.Extract(context.Background(), srv.URL+"/news/5")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if art.Title != "Local headline" || art.ArticleID != "5" || art.SourceURL != srv.URL+"/news/5" {
		t.Fatalf("unexpected article: %+v", art)
	}
}

func TestExtract_UnknownPlatform(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	a := newTestApp(t, srv, nil)
	if _, err := a.Extract(context.Background(), "https://unknown.example/a/1"); !errors.Is(err, profile.ErrUnknownPlatform) {
		t.Fatalf("expected ErrUnknownPlatform, got %v", err)
	}
}

func TestRun_OrderAndErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/404") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(fullPage))
	}))
	defer srv.Close()

	a := newTestApp(t, srv, func(c *Config) { c.Concurrency = 2 })
	urls := []string{srv.URL + "/news/1", srv.URL + "/news/404", srv.URL + "/news/3", srv.URL + "/news/4"}
	results, err := a.Run(context.Background(), urls)
	if err == nil || !strings.Contains(err.Error(), "/news/404") {
		t.Fatalf("expected joined error naming the failed url, got %v", err)
	}
	for i, r := range results {
		if r.URL != urls[i] {
			t.Fatalf("result %d out of order: %s", i, r.URL)
		}
		if (i == 1) != (r.Err != nil) {
			t.Fatalf("result %d err=%v", i, r.Err)
		}
	}
}

func TestExtractHTML_Offline(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	a := newTestApp(t, srv, nil)
	art, err := a.ExtractHTML("https://example.org/anything/77", "local", []byte(fullPage))
	if err != nil {
		t.Fatalf("extract html: %v", err)
	}
	if art.Platform != "local" || art.ArticleID != "77" || len(art.Texts) != 2 {
		t.Fatalf("unexpected article: %+v", art)
	}
	if _, err := a.ExtractHTML("https://example.org/x/1", "local", []byte(emptyPage)); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("expected ErrEmptyContent, got %v", err)
	}
}
