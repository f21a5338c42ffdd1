// Package app wires profile detection, fetching, extraction and output into
// the newsextract pipeline.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/cache"
	"github.com/hyperifyio/newsextract/internal/extract"
	"github.com/hyperifyio/newsextract/internal/fetch"
	"github.com/hyperifyio/newsextract/internal/profile"
	"github.com/hyperifyio/newsextract/internal/store"
)

// ErrEmptyContent is returned when every content attempt produced an article
// with no fragments.
var ErrEmptyContent = errors.New("empty content")

// pageGetter fetches one document. fetch.Client satisfies it.
type pageGetter interface {
	GetWith(ctx context.Context, url string, opts fetch.Options) ([]byte, string, error)
}

type App struct {
	cfg       Config
	registry  *profile.Registry
	fetcher   pageGetter
	store     *store.Store
	httpCache *cache.HTTPCache
}

// Result is the outcome of extracting one URL.
type Result struct {
	URL     string
	Article article.Article
	Files   []string
	Err     error
}

func New(cfg Config) (*App, error) {
	cfg = cfg.withDefaults()
	reg, err := profile.Default()
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	if cfg.Profiles != "" {
		if err := reg.MergeFile(cfg.Profiles); err != nil {
			return nil, fmt.Errorf("load profiles %s: %w", cfg.Profiles, err)
		}
	}

	a := &App{cfg: cfg, registry: reg, store: &store.Store{Dir: cfg.OutputDir}}
	if cfg.CacheDir != "" {
		if cfg.CacheClear {
			_ = cache.ClearDir(cfg.CacheDir)
		}
		if cfg.CacheMaxAge > 0 {
			if n, err := cache.PurgeHTTPCacheByAge(cfg.CacheDir, cfg.CacheMaxAge); err == nil && n > 0 {
				log.Debug().Int("removed", n).Msg("purged expired cache entries")
			}
		}
		a.httpCache = &cache.HTTPCache{Dir: cfg.CacheDir, StrictPerms: cfg.CacheStrictPerms}
	}
	header := map[string]string{}
	if cfg.AcceptLanguage != "" {
		header["Accept-Language"] = cfg.AcceptLanguage
	}
	a.fetcher = &fetch.Client{
		HTTPClient:        newHTTPClient(),
		UserAgent:         cfg.UserAgent,
		Header:            header,
		MaxAttempts:       cfg.MaxAttempts,
		RetryWait:         cfg.RetryWait,
		PerRequestTimeout: cfg.Timeout,
		Cache:             a.httpCache,
		MaxConcurrent:     cfg.Concurrency,
	}
	return a, nil
}

// Registry exposes the loaded site profiles.
func (a *App) Registry() *profile.Registry { return a.registry }

// Close applies cache size limits accumulated during the run.
func (a *App) Close() {
	if a.httpCache == nil || (a.cfg.CacheMaxBytes <= 0 && a.cfg.CacheMaxEntries <= 0) {
		return
	}
	if n, err := cache.EnforceHTTPCacheLimits(a.cfg.CacheDir, a.cfg.CacheMaxBytes, a.cfg.CacheMaxEntries); err != nil {
		log.Warn().Err(err).Msg("cache limit enforcement failed")
	} else if n > 0 {
		log.Debug().Int("evicted", n).Msg("cache limits enforced")
	}
}

// Extract fetches and parses one article. A page that parses to zero
// fragments is refetched, bypassing the cache, up to ContentAttempts times
// in total.
func (a *App) Extract(ctx context.Context, rawURL string) (article.Article, error) {
	p, err := a.registry.Detect(rawURL)
	if err != nil {
		return article.Article{}, err
	}
	id, err := p.ArticleID(rawURL)
	if err != nil {
		return article.Article{}, err
	}
	engine := extract.New(p)
	logger := log.With().Str("url", rawURL).Str("platform", p.ID).Str("id", id).Logger()

	var last error
	for attempt := 0; attempt < a.cfg.ContentAttempts; attempt++ {
		if attempt > 0 {
			if err := sleep(ctx, a.cfg.RetryWait); err != nil {
				return article.Article{}, err
			}
		}
		body, err := a.fetchPage(ctx, engine, rawURL, attempt > 0)
		if err != nil {
			return article.Article{}, fmt.Errorf("fetch %s: %w", rawURL, err)
		}
		art, err := engine.Parse(rawURL, body)
		if err != nil {
			return article.Article{}, err
		}
		if art.ArticleID == "" {
			art.ArticleID = id
		}
		if !art.IsEmpty() {
			logger.Info().Int("fragments", len(art.Fragments)).Int("images", len(art.Images)).Msg("extracted")
			return art, nil
		}
		logger.Warn().Str("title", art.Title).Int("attempt", attempt+1).Msg("empty content")
		last = fmt.Errorf("%w: %s", ErrEmptyContent, rawURL)
	}
	return article.Article{}, last
}

// ExtractHTML parses an already downloaded page. platform may be empty, in
// which case it is detected from rawURL.
func (a *App) ExtractHTML(rawURL, platform string, body []byte) (article.Article, error) {
	var (
		p   *profile.Profile
		err error
	)
	if platform != "" {
		p, err = a.registry.Get(platform)
	} else {
		p, err = a.registry.Detect(rawURL)
	}
	if err != nil {
		return article.Article{}, err
	}
	art, err := extract.New(p).Parse(rawURL, body)
	if err != nil {
		return article.Article{}, err
	}
	if art.IsEmpty() {
		return art, fmt.Errorf("%w: %s", ErrEmptyContent, rawURL)
	}
	return art, nil
}

// fetchPage downloads rawURL with the profile's headers and follows the
// profile's frame indirection when the page carries one.
func (a *App) fetchPage(ctx context.Context, e *extract.Engine, rawURL string, bypass bool) ([]byte, error) {
	opts := fetch.Options{Header: e.Profile.Headers, BypassCache: bypass}
	body, _, err := a.fetcher.GetWith(ctx, rawURL, opts)
	if err != nil {
		return nil, err
	}
	if frame, ok := e.FrameURL(body); ok {
		log.Debug().Str("url", rawURL).Str("frame", frame).Msg("following frame")
		body, _, err = a.fetcher.GetWith(ctx, frame, opts)
		if err != nil {
			return nil, fmt.Errorf("frame: %w", err)
		}
	}
	return body, nil
}

// Save persists art as JSON and, when enabled, Markdown and PDF renderings.
// It returns the written paths.
func (a *App) Save(art article.Article) ([]string, error) {
	jsonPath, err := a.store.Save(art)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	files := []string{jsonPath}
	extra, err := writeRenderings(a.cfg, art, jsonPath)
	files = append(files, extra...)
	return files, err
}

// Run extracts and saves every URL using a bounded worker pool. Results are
// returned in input order; the error joins every per-URL failure.
func (a *App) Run(ctx context.Context, urls []string) ([]Result, error) {
	results := make([]Result, len(urls))
	jobs := make(chan int)
	var wg sync.WaitGroup
	workers := a.cfg.Concurrency
	if workers > len(urls) {
		workers = len(urls)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = a.runOne(ctx, urls[i])
			}
		}()
	}
feed:
	for i := range urls {
		select {
		case jobs <- i:
		case <-ctx.Done():
			for j := i; j < len(urls); j++ {
				results[j] = Result{URL: urls[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r.URL, r.Err))
		}
	}
	return results, errors.Join(errs...)
}

func (a *App) runOne(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL}
	start := time.Now()
	art, err := a.Extract(ctx, rawURL)
	if err != nil {
		log.Error().Err(err).Str("url", rawURL).Msg("extract failed")
		res.Err = err
		return res
	}
	res.Article = art
	res.Files, res.Err = a.Save(art)
	if res.Err != nil {
		log.Error().Err(res.Err).Str("url", rawURL).Msg("save failed")
		return res
	}
	log.Info().Str("url", rawURL).Strs("files", res.Files).Dur("took", time.Since(start)).Msg("saved")
	return res
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
