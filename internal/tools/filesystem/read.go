package filesystem

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
	"github.com/docker/go-units"
)

// Content is a file read for the model.
type Content struct {
	Text      string
	Lines     int
	Size      int64
	Truncated bool
}

// Body renders the content as a tool result body.
func (c Content) Body() string {
	if !c.Truncated {
		return c.Text
	}
	text := c.Text
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	return fmt.Sprintf("%s[TRUNCATED: showing %s of %s]", text,
		units.HumanSize(float64(len(c.Text))), units.HumanSize(float64(c.Size)))
}

// Read returns the UTF-8 text of abs, cut to maxBytes (<= 0 means no limit).
// rel names the file in errors.
func Read(fsys FileSystem, abs, rel string, maxBytes int64) (Content, error) {
	info, err := fsys.Stat(abs)
	if err != nil {
		return Content{}, readError(rel, err)
	}
	if info.IsDir() {
		return Content{}, &OpError{Path: rel, Kind: protocol.FailIO, Cause: "is a directory"}
	}

	data, err := fsys.ReadFile(abs)
	if err != nil {
		return Content{}, readError(rel, err)
	}
	if !utf8.Valid(data) {
		return Content{}, &OpError{Path: rel, Kind: protocol.FailIO, Cause: "binary content (not valid UTF-8)"}
	}

	c := Content{Size: int64(len(data))}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		data = data[:maxBytes]
		// do not split a rune at the cut
		for len(data) > 0 && !utf8.Valid(data) {
			data = data[:len(data)-1]
		}
		c.Truncated = true
	}
	c.Text = string(data)
	c.Lines = strings.Count(c.Text, "\n")
	if c.Text != "" && !strings.HasSuffix(c.Text, "\n") {
		c.Lines++
	}
	return c, nil
}
