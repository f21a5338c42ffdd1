package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/newsextract/internal/cache"
)

// DefaultUserAgent is a desktop browser UA; several platforms serve a
// stripped page to unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// ErrUnexpectedStatus matches every non-2xx response error.
var ErrUnexpectedStatus = errors.New("unexpected status")

// StatusError carries the HTTP status of a failed response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d for %s", e.Code, e.URL)
}

func (e *StatusError) Unwrap() error { return ErrUnexpectedStatus }

// permanentError marks failures a retry cannot fix.
type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Client wraps http.Client and provides timeouts, headers and fixed-interval
// retry.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Header is sent with every request; per-call headers override it.
	Header map[string]string
	// MaxAttempts includes the initial attempt. Zero means 3.
	MaxAttempts int
	// RetryWait is the fixed pause between attempts. Zero means one second.
	RetryWait time.Duration
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for HTTP GET bodies and headers.
	Cache *cache.HTTPCache
	// If true, bypass cache entirely and fetch fresh (no conditional headers),
	// but still save the latest response to cache.
	BypassCache bool

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

// Options adjusts a single Get call.
type Options struct {
	Header      map[string]string
	BypassCache bool
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches url with the client defaults. The body is decoded to UTF-8.
func (c *Client) Get(ctx context.Context, url string) ([]byte, string, error) {
	return c.GetWith(ctx, url, Options{})
}

// GetWith fetches url, retrying at a fixed interval until MaxAttempts is
// spent. A non-2xx response, a non-HTML body or a non-HTTP scheme is an
// error.
func (c *Client) GetWith(ctx context.Context, url string, opts Options) ([]byte, string, error) {
	bypass := c.BypassCache || opts.BypassCache
	var etag, lastMod string
	if c.Cache != nil && !bypass {
		if meta, err := c.Cache.LoadMeta(ctx, url); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	wait := c.RetryWait
	if wait <= 0 {
		wait = time.Second
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		body, ct, newEtag, newLastMod, status, err := c.tryOnce(ctx, url, etag, lastMod, opts.Header)
		if err == nil {
			if status == http.StatusNotModified && c.Cache != nil {
				cached, cerr := c.Cache.LoadBody(ctx, url)
				if cerr == nil {
					return cached, ct, nil
				}
				// Cached body vanished; ask again without validators.
				etag, lastMod = "", ""
				lastErr = cerr
				continue
			}
			if c.Cache != nil && status == http.StatusOK {
				if err := c.Cache.Save(ctx, url, ct, newEtag, newLastMod, body); err != nil {
					log.Debug().Err(err).Str("url", url).Msg("cache save failed")
				}
			}
			return body, ct, nil
		}
		lastErr = err
		if !isTransient(ctx, err) || i == attempts-1 {
			break
		}
		log.Debug().Err(err).Str("url", url).Int("attempt", i+1).Msg("fetch retry")
		if err := sleep(ctx, wait); err != nil {
			return nil, "", err
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	var pe permanentError
	if errors.As(lastErr, &pe) {
		return nil, "", pe.err
	}
	return nil, "", lastErr
}

func (c *Client) tryOnce(ctx context.Context, url string, etag string, lastMod string, extra map[string]string) ([]byte, string, string, string, int, error) {
	c.acquire()
	defer c.release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", "", "", 0, permanentError{fmt.Errorf("new request: %w", err)}
	}
	if req.URL == nil || !isHTTPScheme(req.URL) {
		return nil, "", "", "", 0, permanentError{fmt.Errorf("unsupported URL scheme: %q", req.URL.String())}
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	for k, v := range c.Header {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	for k, v := range extra {
		if v != "" {
			req.Header.Set(k, v)
		}
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	httpClient := c.getHTTPClient()
	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", "", "", 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil, resp.Header.Get("Content-Type"), resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Code: resp.StatusCode, URL: url}
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusRequestTimeout {
			return nil, "", "", "", resp.StatusCode, serr
		}
		return nil, "", "", "", resp.StatusCode, permanentError{serr}
	}

	contentType := resp.Header.Get("Content-Type")
	if !isAllowedHTMLContentType(contentType) {
		return nil, "", "", "", resp.StatusCode, permanentError{fmt.Errorf("unsupported content type: %s", contentType)}
	}
	r, err := charset.NewReader(resp.Body, contentType)
	if err != nil {
		return nil, "", "", "", resp.StatusCode, permanentError{fmt.Errorf("decode charset: %w", err)}
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, "", "", "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return b, contentType, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), resp.StatusCode, nil
}

// isTransient reports whether another attempt may succeed. Caller
// cancellation and permanent failures end the loop.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var pe permanentError
	return !errors.As(err, &pe)
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

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// isAllowedHTMLContentType accepts HTML variants. An absent header is
// allowed since some article hosts omit it.
func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
