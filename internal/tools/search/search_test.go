package search

import (
	"context"
	"errors"
	"testing"

	"github.com/ChamsBouzaiene/nanocoder/internal/indexer"
)

type mockSearcher struct {
	hits  []indexer.Hit
	err   error
	limit int
}

func (m *mockSearcher) Search(_ context.Context, _ string, limit int) ([]indexer.Hit, error) {
	m.limit = limit
	return m.hits, m.err
}

func TestCode(t *testing.T) {
	tests := []struct {
		name    string
		s       *mockSearcher
		want    string
		wantErr bool
	}{
		{
			name: "hits",
			s:    &mockSearcher{hits: []indexer.Hit{{Path: "a.go", Line: 3, Text: "func A()"}, {Path: "b.go", Line: 7, Text: "A()"}}},
			want: "2 matches for \"A\":\na.go:3: func A()\nb.go:7: A()",
		},
		{name: "none", s: &mockSearcher{}, want: `no matches for "A"`},
		{name: "error", s: &mockSearcher{err: errors.New("index closed")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Code(context.Background(), tt.s, "A", 5)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Code() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
			if tt.s.limit != 5 {
				t.Errorf("limit passed = %d, want 5", tt.s.limit)
			}
		})
	}
}
