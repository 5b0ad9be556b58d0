package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// SegmentKind tells prose apart from blocks in a parsed response.
type SegmentKind int

const (
	SegmentProse SegmentKind = iota
	SegmentRequest
	SegmentFailure
)

func (k SegmentKind) String() string {
	switch k {
	case SegmentProse:
		return "prose"
	case SegmentRequest:
		return "request"
	case SegmentFailure:
		return "failure"
	}
	return "unknown"
}

// Segment is one contiguous span of a model response. Raw always holds the
// exact input bytes the segment covers.
type Segment struct {
	Kind    SegmentKind
	Raw     string
	Pos     Position
	Request *ToolRequest
	Err     *ParseError
}

// ParseError describes a malformed or unterminated block.
type ParseError struct {
	Line  int
	Tag   string
	Cause string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: <%s> %s", e.Line, e.Tag, e.Cause)
}

// Requests returns the tool requests in segment order.
func Requests(segs []Segment) []ToolRequest {
	var out []ToolRequest
	for _, s := range segs {
		if s.Kind == SegmentRequest {
			out = append(out, *s.Request)
		}
	}
	return out
}

// Failures returns the parse failures in segment order.
func Failures(segs []Segment) []*ParseError {
	var out []*ParseError
	for _, s := range segs {
		if s.Kind == SegmentFailure {
			out = append(out, s.Err)
		}
	}
	return out
}

// Prose joins the prose segments.
func Prose(segs []Segment) string {
	var b strings.Builder
	for _, s := range segs {
		if s.Kind == SegmentProse {
			b.WriteString(s.Raw)
		}
	}
	return b.String()
}

// block tag names as they appear on the wire
const (
	tagRead    = "read"
	tagWrite   = "write"
	tagEdit    = "edit"
	tagShell   = "shell"
	tagSearch  = "search"
	tagRequest = "request"
	tagDrop    = "drop"
	tagCommit  = "commit"
	tagFind    = "find"
	tagReplace = "replace"
)

var topLevelTags = map[string]Kind{
	tagRead:    KindReadFile,
	tagWrite:   KindWriteFile,
	tagEdit:    KindEditFile,
	tagShell:   KindRunShell,
	tagSearch:  KindSearchCode,
	tagRequest: KindAddContext,
	tagDrop:    KindDropContext,
	tagCommit:  KindCommit,
}

var (
	openRe = regexp.MustCompile(`^<([A-Za-z]+)((?:\s+[A-Za-z_]+\s*=\s*(?:"[^"]*"|'[^']*'))*)\s*(/?)>(.*)$`)
	attrRe = regexp.MustCompile(`([A-Za-z_]+)\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

type line struct {
	text  string // without terminator, trailing \r removed
	start int
	end   int // offset just past the terminator
}

func splitLines(s string) []line {
	var lines []line
	start := 0
	for start < len(s) {
		i := strings.IndexByte(s[start:], '\n')
		end := len(s)
		if i >= 0 {
			end = start + i + 1
		}
		text := strings.TrimSuffix(strings.TrimSuffix(s[start:end], "\n"), "\r")
		lines = append(lines, line{text: text, start: start, end: end})
		start = end
	}
	return lines
}

// opener is a parsed opening marker line.
type opener struct {
	tag         string
	attrs       map[string]string
	selfClosing bool
	rest        string // text after '>' on the same line
}

func parseOpener(text string) (opener, bool) {
	m := openRe.FindStringSubmatch(strings.TrimSpace(text))
	if m == nil {
		return opener{}, false
	}
	o := opener{
		tag:         strings.ToLower(m[1]),
		attrs:       map[string]string{},
		selfClosing: m[3] == "/",
		rest:        m[4],
	}
	for _, a := range attrRe.FindAllStringSubmatch(m[2], -1) {
		val := a[2]
		if val == "" {
			val = a[3]
		}
		o.attrs[strings.ToLower(a[1])] = val
	}
	return o, true
}

func isCloser(text, tag string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "</"+tag+">")
}

// inlineBody returns the payload of "<tag>payload</tag>" written on one line.
func inlineBody(rest, tag string) (string, bool) {
	trimmed := strings.TrimRight(rest, " \t")
	closer := "</" + tag + ">"
	if len(trimmed) < len(closer) || !strings.EqualFold(trimmed[len(trimmed)-len(closer):], closer) {
		return "", false
	}
	return trimmed[:len(trimmed)-len(closer)], true
}

// parser scans one response. It holds no state beyond the current input.
type parser struct {
	src   string
	lines []line
	segs  []Segment
	prose int // start offset of pending prose
}

// Parse splits a model response into prose, tool requests, and parse
// failures. Markers are only recognised at line starts, so marker-like text
// inside a payload line is captured verbatim.
func Parse(text string) []Segment {
	p := &parser{src: text, lines: splitLines(text)}
	for i := 0; i < len(p.lines); {
		o, ok := parseOpener(p.lines[i].text)
		if !ok {
			i++
			continue
		}
		kind, known := topLevelTags[o.tag]
		if !known {
			i++
			continue
		}
		i = p.block(i, o, kind)
	}
	p.flushProse(len(p.src))
	return p.segs
}

func (p *parser) flushProse(upTo int) {
	if upTo > p.prose {
		p.segs = append(p.segs, Segment{
			Kind: SegmentProse,
			Raw:  p.src[p.prose:upTo],
			Pos:  p.position(p.prose),
		})
	}
	p.prose = upTo
}

func (p *parser) position(offset int) Position {
	return Position{Offset: offset, Line: strings.Count(p.src[:offset], "\n") + 1}
}

// block consumes the block opened at line i and returns the next line index.
func (p *parser) block(i int, o opener, kind Kind) int {
	if kind == KindEditFile {
		return p.editBlock(i, o)
	}

	body, last, err := p.body(i, o)
	if err != nil {
		if last < 0 {
			return p.fail(i, i, o.tag, err.Error())
		}
		return p.fail(i, last, o.tag, err.Error())
	}

	req, cause := buildRequest(kind, o, body)
	if cause != "" {
		return p.fail(i, last, o.tag, cause)
	}
	return p.emit(i, last, req)
}

// body captures the payload of a non-edit block verbatim, text on the
// opening line and the terminator before the closer included. last is the
// index of the closing line, or -1 when the block never closes.
func (p *parser) body(i int, o opener) (string, int, error) {
	if o.selfClosing {
		if strings.TrimSpace(o.rest) != "" {
			return "", i, fmt.Errorf("has text after a self-closing marker")
		}
		return "", i, nil
	}
	if b, ok := inlineBody(o.rest, o.tag); ok {
		return b, i, nil
	}
	for j := i + 1; j < len(p.lines); j++ {
		if isCloser(p.lines[j].text, o.tag) {
			body := p.src[p.lines[i].end:p.lines[j].start]
			if rest := o.rest; strings.TrimSpace(rest) != "" {
				body = rest + terminator(p.src, p.lines[i]) + body
			}
			return body, j, nil
		}
	}
	return "", -1, fmt.Errorf("is never closed")
}

func terminator(src string, l line) string {
	return src[l.start+len(l.text) : l.end]
}

// editBlock parses <edit path>, <find>...</find>, <replace>...</replace>, </edit>.
func (p *parser) editBlock(i int, o opener) int {
	closeAt := func(from int) int {
		for j := from; j < len(p.lines); j++ {
			if isCloser(p.lines[j].text, tagEdit) {
				return j
			}
		}
		return -1
	}
	malformed := func(from int, cause string) int {
		if j := closeAt(from); j >= 0 {
			return p.fail(i, j, tagEdit, cause)
		}
		return p.fail(i, i, tagEdit, "is never closed")
	}

	if o.selfClosing || strings.TrimSpace(o.rest) != "" {
		return malformed(i+1, "must put <find> and <replace> on their own lines")
	}
	path := strings.TrimSpace(o.attrs["path"])

	j := p.skipBlank(i + 1)
	oldText, j, cause := p.span(j, tagFind)
	if cause != "" {
		return malformed(i+1, cause)
	}
	j = p.skipBlank(j + 1)
	newText, j, cause := p.span(j, tagReplace)
	if cause != "" {
		return malformed(i+1, cause)
	}
	j = p.skipBlank(j + 1)
	if j >= len(p.lines) || !isCloser(p.lines[j].text, tagEdit) {
		return malformed(j, "expected </edit> after </replace>")
	}
	if path == "" {
		return p.fail(i, j, tagEdit, `is missing a path="..." attribute`)
	}

	req := NewRequest(KindEditFile, path, map[string]string{
		FieldOldText: oldText,
		FieldNewText: newText,
	})
	return p.emit(i, j, req)
}

func (p *parser) skipBlank(j int) int {
	for j < len(p.lines) && strings.TrimSpace(p.lines[j].text) == "" {
		j++
	}
	return j
}

// span captures a <find> or <replace> section starting at line j. The line
// terminator just before the closing marker does not belong to the span.
func (p *parser) span(j int, tag string) (string, int, string) {
	if j >= len(p.lines) {
		return "", j, fmt.Sprintf("expected <%s>", tag)
	}
	o, ok := parseOpener(p.lines[j].text)
	if !ok || o.tag != tag || o.selfClosing {
		return "", j, fmt.Sprintf("expected <%s>", tag)
	}
	if b, ok := inlineBody(o.rest, tag); ok {
		return b, j, ""
	}
	for k := j + 1; k < len(p.lines); k++ {
		if isCloser(p.lines[k].text, tag) {
			text := p.src[p.lines[j].end:p.lines[k].start]
			if strings.TrimSpace(o.rest) != "" {
				text = o.rest + terminator(p.src, p.lines[j]) + text
			}
			text = strings.TrimSuffix(text, "\n")
			text = strings.TrimSuffix(text, "\r")
			return text, k, ""
		}
		if isCloser(p.lines[k].text, tagEdit) {
			break
		}
	}
	return "", j, fmt.Sprintf("has an unterminated <%s>", tag)
}

func (p *parser) emit(first, last int, req ToolRequest) int {
	start, end := p.lines[first].start, p.lines[last].end
	p.flushProse(start)
	req = req.At(p.position(start))
	p.segs = append(p.segs, Segment{
		Kind:    SegmentRequest,
		Raw:     p.src[start:end],
		Pos:     req.Pos,
		Request: &req,
	})
	p.prose = end
	return last + 1
}

func (p *parser) fail(first, last int, tag, cause string) int {
	start, end := p.lines[first].start, p.lines[last].end
	p.flushProse(start)
	pos := p.position(start)
	p.segs = append(p.segs, Segment{
		Kind: SegmentFailure,
		Raw:  p.src[start:end],
		Pos:  pos,
		Err:  &ParseError{Line: pos.Line, Tag: tag, Cause: cause},
	})
	p.prose = end
	return last + 1
}

// buildRequest turns a captured body into a typed request, or returns a
// cause when the block is structurally invalid.
func buildRequest(kind Kind, o opener, body string) (ToolRequest, string) {
	path := strings.TrimSpace(o.attrs["path"])
	switch kind {
	case KindReadFile:
		if path == "" {
			return ToolRequest{}, `is missing a path="..." attribute`
		}
		return NewRequest(kind, path, nil), ""
	case KindWriteFile:
		if path == "" {
			return ToolRequest{}, `is missing a path="..." attribute`
		}
		if o.selfClosing {
			return ToolRequest{}, "has no content"
		}
		return NewRequest(kind, path, map[string]string{FieldContent: body}), ""
	case KindRunShell:
		cmd := strings.TrimSpace(body)
		if cmd == "" {
			return ToolRequest{}, "has an empty command"
		}
		return NewRequest(kind, cmd, nil), ""
	case KindSearchCode:
		q := strings.TrimSpace(body)
		if q == "" {
			return ToolRequest{}, "has an empty query"
		}
		return NewRequest(kind, q, map[string]string{FieldQuery: q}), ""
	case KindAddContext, KindDropContext:
		paths := splitPaths(body)
		if path != "" {
			paths = append([]string{path}, paths...)
		}
		if len(paths) == 0 {
			return ToolRequest{}, "lists no files"
		}
		return NewRequest(kind, strings.Join(paths, ", "), map[string]string{
			FieldPaths: strings.Join(paths, "\n"),
		}), ""
	case KindCommit:
		msg := strings.TrimSpace(body)
		return NewRequest(kind, msg, map[string]string{FieldMessage: msg}), ""
	}
	return ToolRequest{}, "is not a supported block"
}

func splitPaths(body string) []string {
	var out []string
	for _, f := range strings.FieldsFunc(body, func(r rune) bool { return r == '\n' || r == ',' }) {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// SplitPaths breaks an add/drop payload back into individual paths.
func SplitPaths(payload string) []string {
	return splitPaths(payload)
}
