package indexer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Hit is one matching line.
type Hit struct {
	Path  string
	Line  int // 1-based
	Text  string
	Score float64
}

// String renders the hit as "path:line: text".
func (h Hit) String() string {
	return fmt.Sprintf("%s:%d: %s", h.Path, h.Line, h.Text)
}

// SearchIndex is an in-memory full-text index over the workspace files.
// It is rebuilt lazily on the first search after Invalidate.
type SearchIndex struct {
	root   string
	walker *Walker

	mu    sync.Mutex
	index bleve.Index
	stale bool
}

// NewSearchIndex creates an index over the files walker discovers below root.
func NewSearchIndex(root string, walker *Walker) *SearchIndex {
	if walker == nil {
		walker = NewWalker(root)
	}
	return &SearchIndex{root: root, walker: walker, stale: true}
}

// Invalidate marks the index for rebuilding.
func (s *SearchIndex) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index == nil {
		return nil
	}
	err := s.index.Close()
	s.index = nil
	return err
}

// buildIndexMapping creates the mapping for file documents.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	fileMapping := bleve.NewDocumentMapping()

	pathField := bleve.NewTextFieldMapping()
	pathField.Analyzer = keyword.Name
	pathField.Store = true
	pathField.Index = true
	fileMapping.AddFieldMappingsAt("path", pathField)

	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = keyword.Name
	langField.Store = true
	langField.Index = true
	fileMapping.AddFieldMappingsAt("lang", langField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	textField.Index = true
	fileMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = fileMapping
	return indexMapping
}

func (s *SearchIndex) rebuild(ctx context.Context) error {
	if s.index != nil {
		s.index.Close()
		s.index = nil
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return fmt.Errorf("failed to create search index: %w", err)
	}

	batch := index.NewBatch()
	count := 0
	for _, f := range s.walker.Walk() {
		if err := ctx.Err(); err != nil {
			index.Close()
			return err
		}
		data, err := os.ReadFile(filepath.Join(s.root, filepath.FromSlash(f.Path)))
		if err != nil || bytes.IndexByte(data, 0) >= 0 {
			continue
		}
		doc := map[string]interface{}{
			"path": f.Path,
			"lang": string(f.Lang),
			"text": string(data),
		}
		if err := batch.Index(f.Path, doc); err != nil {
			index.Close()
			return fmt.Errorf("failed to add %s to batch: %w", f.Path, err)
		}
		count++
	}
	if err := index.Batch(batch); err != nil {
		index.Close()
		return fmt.Errorf("failed to index workspace: %w", err)
	}
	log.Printf("search index built files=%d", count)

	s.index = index
	s.stale = false
	return nil
}

// Search runs query against the index and returns up to limit matching
// lines, best-scoring files first.
func (s *SearchIndex) Search(ctx context.Context, query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query")
	}
	if limit <= 0 {
		limit = 10
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale || s.index == nil {
		if err := s.rebuild(ctx); err != nil {
			return nil, err
		}
	}

	q := bleve.NewMatchQuery(query)
	q.SetField("text")
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	req.Fields = []string{"path"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	terms := queryTerms(query)
	var hits []Hit
	for _, doc := range res.Hits {
		path, _ := doc.Fields["path"].(string)
		if path == "" {
			path = doc.ID
		}
		for _, h := range matchingLines(filepath.Join(s.root, filepath.FromSlash(path)), terms, limit-len(hits)) {
			h.Path = path
			h.Score = doc.Score
			hits = append(hits, h)
		}
		if len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	return fields
}

// matchingLines returns the lines of path containing any term, up to max.
func matchingLines(path string, terms []string, max int) []Hit {
	if max <= 0 || len(terms) == 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var out []Hit
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() && len(out) < max {
		line++
		text := scanner.Text()
		lower := strings.ToLower(text)
		for _, t := range terms {
			if strings.Contains(lower, t) {
				out = append(out, Hit{Line: line, Text: strings.TrimSpace(text)})
				break
			}
		}
	}
	return out
}
