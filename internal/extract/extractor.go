package extract

import "github.com/hyperifyio/newsextract/internal/article"

// Extractor converts a fetched page into an article.
// Implementations must not retain body after returning.
type Extractor interface {
	Parse(pageURL string, body []byte) (article.Article, error)
}

var _ Extractor = (*Engine)(nil)
