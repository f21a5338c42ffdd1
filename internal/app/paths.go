package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/hyperifyio/newsextract/internal/article"
	"github.com/hyperifyio/newsextract/internal/render"
)

// derivedPath swaps the extension of the stored JSON path.
func derivedPath(jsonPath, ext string) string {
	return strings.TrimSuffix(jsonPath, ".json") + ext
}

// writeRenderings writes the Markdown and PDF siblings of jsonPath as
// configured.
func writeRenderings(cfg Config, art article.Article, jsonPath string) ([]string, error) {
	if !cfg.Markdown && !cfg.PDF {
		return nil, nil
	}
	md := render.Markdown(art)
	var files []string
	if cfg.Markdown {
		p := derivedPath(jsonPath, ".md")
		if err := os.WriteFile(p, []byte(md), 0o644); err != nil {
			return files, fmt.Errorf("write markdown: %w", err)
		}
		files = append(files, p)
	}
	if cfg.PDF {
		p := derivedPath(jsonPath, ".pdf")
		if err := render.WritePDF(md, p, render.PDFOptions{FontPath: cfg.PDFFont}); err != nil {
			return files, fmt.Errorf("write pdf: %w", err)
		}
		files = append(files, p)
	}
	return files, nil
}
