package patch

import (
	"encoding/json"
	"fmt"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// InvalidContentError reports content that does not parse for its file type.
type InvalidContentError struct {
	Path  string
	Lang  string
	Cause string
}

func (e *InvalidContentError) Error() string {
	return fmt.Sprintf("%s is not valid %s: %s", e.Path, e.Lang, e.Cause)
}

// Validate checks content against the syntax implied by the file extension.
// Unknown extensions always pass.
func Validate(path, content string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		fset := token.NewFileSet()
		if _, err := parser.ParseFile(fset, path, content, parser.AllErrors); err != nil {
			return &InvalidContentError{Path: path, Lang: "Go", Cause: firstLine(err.Error())}
		}
	case ".json":
		var v any
		if err := json.Unmarshal([]byte(content), &v); err != nil {
			return &InvalidContentError{Path: path, Lang: "JSON", Cause: err.Error()}
		}
	case ".yaml", ".yml":
		var node yaml.Node
		if err := yaml.Unmarshal([]byte(content), &node); err != nil {
			return &InvalidContentError{Path: path, Lang: "YAML", Cause: firstLine(err.Error())}
		}
	}
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
