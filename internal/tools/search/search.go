// Package search answers search_code requests from the workspace index.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/ChamsBouzaiene/nanocoder/internal/indexer"
)

// Searcher finds lines matching a full-text query.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]indexer.Hit, error)
}

// Code runs query and renders the hits as "path:line: text" lines.
func Code(ctx context.Context, s Searcher, query string, limit int) (string, error) {
	hits, err := s.Search(ctx, query, limit)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return fmt.Sprintf("no matches for %q", query), nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d matches for %q:\n", len(hits), query)
	for i, h := range hits {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(h.String())
	}
	return b.String(), nil
}
