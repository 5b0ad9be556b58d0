package patch

import (
	"errors"
	"strings"
	"testing"
)

func TestReplace(t *testing.T) {
	tests := []struct {
		name    string
		content string
		old     string
		new     string
		want    string
		wantErr string // "", "nomatch", "ambiguous"
	}{
		{
			name:    "single match",
			content: "def foo(): pass",
			old:     "def foo(): pass",
			new:     "def bar(): pass",
			want:    "def bar(): pass",
		},
		{
			name:    "middle of file keeps surrounding bytes",
			content: "a\nb\nc\n",
			old:     "b\n",
			new:     "B\nB2\n",
			want:    "a\nB\nB2\nc\n",
		},
		{
			name:    "no match",
			content: "hello",
			old:     "world",
			new:     "x",
			want:    "hello",
			wantErr: "nomatch",
		},
		{
			name:    "whitespace is never normalised",
			content: "func f() {\n\treturn 1\n}\n",
			old:     "func f() {\n    return 1\n}",
			new:     "x",
			want:    "func f() {\n\treturn 1\n}\n",
			wantErr: "nomatch",
		},
		{
			name:    "ambiguous",
			content: "x = 1\nx = 1\n",
			old:     "x = 1",
			new:     "x = 2",
			want:    "x = 1\nx = 1\n",
			wantErr: "ambiguous",
		},
		{
			name:    "overlapping occurrences are ambiguous",
			content: "aaa",
			old:     "aa",
			new:     "b",
			want:    "aaa",
			wantErr: "ambiguous",
		},
		{
			name:    "empty old appends",
			content: "line1\n",
			old:     "",
			new:     "line2\n",
			want:    "line1\nline2\n",
		},
		{
			name:    "empty old on empty content creates",
			content: "",
			old:     "",
			new:     "fresh",
			want:    "fresh",
		},
		{
			name:    "identical old and new",
			content: "same content",
			old:     "same content",
			new:     "same content",
			want:    "same content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Replace(tt.content, tt.old, tt.new)
			switch tt.wantErr {
			case "":
				if err != nil {
					t.Fatalf("Replace() unexpected error: %v", err)
				}
			case "nomatch":
				var nm *NoMatchError
				if !errors.As(err, &nm) {
					t.Fatalf("Replace() error = %v, want NoMatchError", err)
				}
			case "ambiguous":
				var am *AmbiguousMatchError
				if !errors.As(err, &am) {
					t.Fatalf("Replace() error = %v, want AmbiguousMatchError", err)
				}
			}
			if got != tt.want {
				t.Errorf("Replace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplaceExactlyOnceProperty(t *testing.T) {
	prefixes := []string{"", "a", "header\n", "\t\tindent\n", "ünïcode "}
	suffixes := []string{"", "z", "\nfooter", " trailing\n\n"}
	old := "<<TARGET>>"
	for _, p := range prefixes {
		for _, s := range suffixes {
			content := p + old + s
			got, err := Replace(content, old, "NEW")
			if err != nil {
				t.Fatalf("Replace(%q) error: %v", content, err)
			}
			if got != p+"NEW"+s {
				t.Errorf("Replace(%q) = %q, want %q", content, got, p+"NEW"+s)
			}
		}
	}
}

func TestReapplyFailsWithNoMatch(t *testing.T) {
	content := "def foo(): pass\n"
	once, err := Replace(content, "def foo(): pass", "def bar(): pass")
	if err != nil {
		t.Fatalf("first apply: %v", err)
	}
	again, err := Replace(once, "def foo(): pass", "def bar(): pass")
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("second apply error = %v, want NoMatchError", err)
	}
	if again != once {
		t.Error("failed apply changed content")
	}
}

func TestNoMatchHint(t *testing.T) {
	_, err := Replace("if x {\n\ty()\n}\n", "if x {\n  y()\n}", "z")
	var nm *NoMatchError
	if !errors.As(err, &nm) {
		t.Fatalf("want NoMatchError, got %v", err)
	}
	if !nm.WhitespaceOnly {
		t.Error("expected whitespace-only hint")
	}
	if !strings.Contains(nm.Error(), "tabs") {
		t.Errorf("hint should name indentation, got %q", nm.Error())
	}
}

func TestAmbiguousLines(t *testing.T) {
	_, err := Replace("a\nx\nb\nx\n", "x", "y")
	var am *AmbiguousMatchError
	if !errors.As(err, &am) {
		t.Fatalf("want AmbiguousMatchError, got %v", err)
	}
	if len(am.Lines) != 2 || am.Lines[0] != 2 || am.Lines[1] != 4 {
		t.Errorf("Lines = %v, want [2 4]", am.Lines)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		path    string
		content string
		wantErr bool
	}{
		{"main.go", "package main\n\nfunc main() {}\n", false},
		{"bad.go", "package main\n\nfunc main( {\n", true},
		{"data.json", `{"a": [1, 2]}`, false},
		{"data.json", `{"a": }`, true},
		{"conf.yaml", "key: value\nlist:\n  - 1\n", false},
		{"conf.yml", "key: [unclosed\n", true},
		{"notes.txt", "anything (goes", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := Validate(tt.path, tt.content)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate(%s) error = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if err != nil {
				var ic *InvalidContentError
				if !errors.As(err, &ic) {
					t.Errorf("error type = %T, want *InvalidContentError", err)
				}
			}
		})
	}
}
