package protocol

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Kind enumerates the tool requests a model response can carry.
type Kind string

const (
	KindReadFile    Kind = "read_file"
	KindWriteFile   Kind = "write_file"
	KindEditFile    Kind = "edit_file"
	KindRunShell    Kind = "run_shell"
	KindSearchCode  Kind = "search_code"
	KindAddContext  Kind = "add_context"
	KindDropContext Kind = "drop_context"
	KindCommit      Kind = "commit"
)

// Payload field names used by the kinds above.
const (
	FieldContent = "content"
	FieldOldText = "old_text"
	FieldNewText = "new_text"
	FieldQuery   = "query"
	FieldPaths   = "paths"
	FieldMessage = "message"
)

// Position locates a block inside the model response it was parsed from.
type Position struct {
	Offset int // byte offset of the block's first line
	Line   int // 1-based line number
}

// ToolRequest is one model-issued action. It is built once by the parser
// and never mutated afterwards; payload access goes through Field/Fields.
type ToolRequest struct {
	Kind   Kind
	Target string
	Pos    Position

	payload map[string]string
}

// NewRequest builds a ToolRequest, copying fields so the caller keeps no alias.
func NewRequest(kind Kind, target string, fields map[string]string) ToolRequest {
	payload := make(map[string]string, len(fields))
	for k, v := range fields {
		payload[k] = v
	}
	return ToolRequest{Kind: kind, Target: target, payload: payload}
}

// At returns a copy of the request positioned at pos.
func (r ToolRequest) At(pos Position) ToolRequest {
	r.Pos = pos
	return r
}

// Field returns a single payload value ("" when absent).
func (r ToolRequest) Field(key string) string {
	return r.payload[key]
}

// Fields returns a copy of the payload.
func (r ToolRequest) Fields() map[string]string {
	out := make(map[string]string, len(r.payload))
	for k, v := range r.payload {
		out[k] = v
	}
	return out
}

// Args flattens target and payload into a generic document, suitable for
// JSON schema validation.
func (r ToolRequest) Args() map[string]any {
	args := make(map[string]any, len(r.payload)+1)
	args["target"] = r.Target
	for k, v := range r.payload {
		args[k] = v
	}
	return args
}

// Label is the short "<kind> <target>" form used in result headers.
func (r ToolRequest) Label() string {
	target := r.Target
	if i := strings.IndexByte(target, '\n'); i >= 0 {
		target = target[:i] + " ..."
	}
	if utf8.RuneCountInString(target) > 80 {
		target = string([]rune(target)[:77]) + "..."
	}
	if target == "" {
		return string(r.Kind)
	}
	return fmt.Sprintf("%s %s", r.Kind, target)
}

// Outcome of a tool request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// FailureKind classifies a failed ToolResult.
type FailureKind string

const (
	FailNone                  FailureKind = ""
	FailParse                 FailureKind = "ParseFailure"
	FailNoMatch               FailureKind = "NoMatch"
	FailAmbiguousMatch        FailureKind = "AmbiguousMatch"
	FailFileNotFound          FailureKind = "FileNotFound"
	FailWritePermissionDenied FailureKind = "WritePermissionDenied"
	FailIO                    FailureKind = "IOFailure"
	FailShellTimeout          FailureKind = "ShellTimeout"
	FailShellNonZeroExit      FailureKind = "ShellNonZeroExit"
	FailDeclined              FailureKind = "Declined"
	FailInvalidRequest        FailureKind = "InvalidRequest"
	FailInvalidContent        FailureKind = "InvalidContent"
	FailCancelled             FailureKind = "Cancelled"
)

// ToolResult is the single outcome produced for a ToolRequest.
type ToolResult struct {
	Request ToolRequest
	Outcome Outcome
	Failure FailureKind
	Body    string
}

// Succeeded builds a success result.
func Succeeded(req ToolRequest, body string) ToolResult {
	return ToolResult{Request: req, Outcome: OutcomeSuccess, Body: body}
}

// Failed builds a failure result of the given kind.
func Failed(req ToolRequest, kind FailureKind, body string) ToolResult {
	return ToolResult{Request: req, Outcome: OutcomeFailure, Failure: kind, Body: body}
}

// OK reports whether the request succeeded.
func (r ToolResult) OK() bool {
	return r.Outcome == OutcomeSuccess
}

// Header is the first line of the rendered tool message.
func (r ToolResult) Header() string {
	if r.OK() {
		return fmt.Sprintf("[%s] success", r.Request.Label())
	}
	return fmt.Sprintf("[%s] failure %s", r.Request.Label(), r.Failure)
}

// Render formats the result as the content of a tool message.
func (r ToolResult) Render() string {
	if r.Body == "" {
		return r.Header()
	}
	return r.Header() + "\n" + r.Body
}

// Batch is the outcome of executing the requests of one model response.
// Results holds exactly one entry per request, in request order.
type Batch struct {
	ID      string
	Results []ToolResult
	// Changed lists the working-directory relative paths written or edited.
	Changed []string
	// AutoCommit is the commit summary when the batch was committed without
	// an explicit commit request.
	AutoCommit string
}

// Failures counts the failed results.
func (b Batch) Failures() int {
	n := 0
	for _, r := range b.Results {
		if !r.OK() {
			n++
		}
	}
	return n
}
