package prompts

import (
	"strconv"
	"strings"
)

// PromptVersion is a dotted numeric version such as "1.0.0".
type PromptVersion string

// PromptV1 is the first version of the tag protocol prompt.
const PromptV1 PromptVersion = "1.0.0"

// Less orders versions numerically per component, so "1.10.0" sorts after
// "1.9.0". Non-numeric components compare as strings.
func (v PromptVersion) Less(other PromptVersion) bool {
	a := strings.Split(string(v), ".")
	b := strings.Split(string(other), ".")
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			continue
		}
		x, errX := strconv.Atoi(a[i])
		y, errY := strconv.Atoi(b[i])
		if errX != nil || errY != nil {
			return a[i] < b[i]
		}
		return x < y
	}
	return len(a) < len(b)
}

// Prompt is one registered version of a prompt. Content may hold
// {{placeholders}} filled in by PromptBuilder.
type Prompt struct {
	ID          string
	Version     PromptVersion
	Content     string
	Description string
	Deprecated  bool
}
