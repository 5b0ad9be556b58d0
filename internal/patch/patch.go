// Package patch computes file edits in memory. Nothing here touches the
// filesystem; callers decide whether and how to persist the result.
package patch

import (
	"fmt"
	"strings"
)

// NoMatchError is returned when the old text does not occur in the content.
type NoMatchError struct {
	Old         string
	Indentation string
	// WhitespaceOnly is set when the text exists once whitespace is ignored.
	WhitespaceOnly bool
}

func (e *NoMatchError) Error() string {
	var b strings.Builder
	b.WriteString("old text not found in file")
	if e.WhitespaceOnly {
		b.WriteString("; a span matches when whitespace is ignored, so check indentation (file uses ")
		b.WriteString(e.Indentation)
		b.WriteString(")")
	}
	return b.String()
}

// AmbiguousMatchError is returned when the old text occurs more than once.
type AmbiguousMatchError struct {
	Old   string
	Lines []int // 1-based line of each occurrence
}

func (e *AmbiguousMatchError) Error() string {
	return fmt.Sprintf("old text occurs %d times (lines %s); include more surrounding context", len(e.Lines), joinInts(e.Lines))
}

// Replace swaps the single occurrence of oldText in content for newText.
//
// An empty oldText appends newText at end of file. Matching is byte-exact; zero
// occurrences yield *NoMatchError and two or more yield *AmbiguousMatchError.
// On error the returned content is the input, unchanged.
func Replace(content, oldText, newText string) (string, error) {
	if oldText == "" {
		return content + newText, nil
	}

	offsets := Occurrences(content, oldText)
	switch len(offsets) {
	case 0:
		return content, &NoMatchError{
			Old:            oldText,
			Indentation:    DetectIndentation(content),
			WhitespaceOnly: matchesIgnoringWhitespace(content, oldText),
		}
	case 1:
		at := offsets[0]
		return content[:at] + newText + content[at+len(oldText):], nil
	default:
		lines := make([]int, len(offsets))
		for i, off := range offsets {
			lines[i] = strings.Count(content[:off], "\n") + 1
		}
		return content, &AmbiguousMatchError{Old: oldText, Lines: lines}
	}
}

// Occurrences returns the byte offset of every occurrence of sub in s,
// overlapping ones included.
func Occurrences(s, sub string) []int {
	if sub == "" {
		return nil
	}
	var out []int
	for from := 0; from <= len(s)-len(sub); {
		i := strings.Index(s[from:], sub)
		if i < 0 {
			break
		}
		out = append(out, from+i)
		from += i + 1
	}
	return out
}

func matchesIgnoringWhitespace(content, old string) bool {
	normalizedOld := strings.Join(strings.Fields(old), " ")
	if normalizedOld == "" {
		return false
	}
	return strings.Contains(strings.Join(strings.Fields(content), " "), normalizedOld)
}

// DetectIndentation names the indentation style of content, for hints.
func DetectIndentation(content string) string {
	for _, l := range strings.Split(content, "\n") {
		switch {
		case strings.HasPrefix(l, "\t"):
			return "tabs"
		case strings.HasPrefix(l, "    "):
			return "4 spaces"
		case strings.HasPrefix(l, "  "):
			return "2 spaces"
		}
	}
	return "no indentation"
}

func joinInts(xs []int) string {
	if len(xs) > 5 {
		return joinInts(xs[:5]) + ", ..."
	}
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = fmt.Sprint(x)
	}
	return strings.Join(parts, ", ")
}
