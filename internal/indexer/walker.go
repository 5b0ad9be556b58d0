package indexer

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	gitignore "github.com/sabhiram/go-gitignore"
)

// Language represents a programming language.
type Language string

const (
	LangGo         Language = "go"
	LangTypeScript Language = "ts"
	LangJavaScript Language = "js"
	LangPython     Language = "python"
	LangRuby       Language = "ruby"
	LangRust       Language = "rust"
	LangJava       Language = "java"
	LangC          Language = "c"
	LangCPP        Language = "cpp"
	LangShell      Language = "shell"
	LangMarkdown   Language = "markdown"
	LangJSON       Language = "json"
	LangYAML       Language = "yaml"
	LangHTML       Language = "html"
	LangCSS        Language = "css"
	LangText       Language = "text"
)

// FileInfo contains metadata about a discovered file.
type FileInfo struct {
	Path      string // slash-separated, relative to the walk root
	Lang      Language
	SizeBytes int64
}

// WalkError represents an error that occurred during file walking.
type WalkError struct {
	Path string
	Err  error
}

func (e *WalkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// WalkResult contains the results of a repository walk.
type WalkResult struct {
	Files  []FileInfo
	Errors []WalkError
}

// DefaultIgnorePatterns are common directories and files to skip.
var DefaultIgnorePatterns = []string{
	".git",
	".nanocoder",
	"node_modules",
	"dist",
	"build",
	"vendor",
	"__pycache__",
	".venv",
	"venv",
	"coverage",
	".next",
	".cache",
	"target",
	".idea",
	".vscode",
	".DS_Store",
}

// DefaultMaxFileSize bounds the files the walker reports.
const DefaultMaxFileSize = 1 << 20

// LanguageDetector defines how to detect file languages.
type LanguageDetector interface {
	Detect(path string) Language
}

// DefaultLanguageDetector detects language from file extension.
type DefaultLanguageDetector struct {
	extMap map[string]Language
}

// NewDefaultLanguageDetector creates a new default language detector.
func NewDefaultLanguageDetector() *DefaultLanguageDetector {
	return &DefaultLanguageDetector{
		extMap: map[string]Language{
			".go":   LangGo,
			".ts":   LangTypeScript,
			".tsx":  LangTypeScript,
			".js":   LangJavaScript,
			".jsx":  LangJavaScript,
			".mjs":  LangJavaScript,
			".py":   LangPython,
			".rb":   LangRuby,
			".rs":   LangRust,
			".java": LangJava,
			".c":    LangC,
			".h":    LangC,
			".cpp":  LangCPP,
			".cc":   LangCPP,
			".hpp":  LangCPP,
			".sh":   LangShell,
			".md":   LangMarkdown,
			".json": LangJSON,
			".yaml": LangYAML,
			".yml":  LangYAML,
			".html": LangHTML,
			".css":  LangCSS,
			".txt":  LangText,
			".toml": LangText,
			".mod":  LangText,
		},
	}
}

// Detect detects language from file extension.
func (d *DefaultLanguageDetector) Detect(path string) Language {
	ext := strings.ToLower(filepath.Ext(path))
	if lang, ok := d.extMap[ext]; ok {
		return lang
	}
	switch filepath.Base(path) {
	case "Makefile", "Dockerfile":
		return LangText
	}
	return ""
}

// WalkerConfig configures the file walker behavior.
type WalkerConfig struct {
	// LanguageDetector for custom language detection. Default: DefaultLanguageDetector
	LanguageDetector LanguageDetector
	// MaxFileSize skips larger files. Default: DefaultMaxFileSize
	MaxFileSize int64
	// ExtraIgnore adds patterns on top of the defaults and .gitignore files.
	ExtraIgnore []string
}

// Walker walks a repository and discovers text source files, honoring
// .gitignore. Symbolic links are never followed.
type Walker struct {
	root          string
	config        WalkerConfig
	ignoreMatcher gitignore.IgnoreParser
	langDetector  LanguageDetector
}

// NewWalker creates a new file walker for the given root.
func NewWalker(root string) *Walker {
	return NewWalkerWithConfig(root, WalkerConfig{})
}

// NewWalkerWithConfig creates a new file walker with custom configuration.
func NewWalkerWithConfig(root string, config WalkerConfig) *Walker {
	if config.LanguageDetector == nil {
		config.LanguageDetector = NewDefaultLanguageDetector()
	}
	if config.MaxFileSize <= 0 {
		config.MaxFileSize = DefaultMaxFileSize
	}

	patterns := make([]string, 0, len(DefaultIgnorePatterns)+len(config.ExtraIgnore)+10)
	patterns = append(patterns, DefaultIgnorePatterns...)
	patterns = append(patterns, config.ExtraIgnore...)
	patterns = append(patterns, loadGitignorePatterns(root)...)

	return &Walker{
		root:          root,
		config:        config,
		ignoreMatcher: gitignore.CompileIgnoreLines(patterns...),
		langDetector:  config.LanguageDetector,
	}
}

// Ignored reports whether a slash- or OS-separated relative path is excluded.
func (w *Walker) Ignored(rel string) bool {
	return w.ignoreMatcher.MatchesPath(filepath.ToSlash(rel))
}

// Detect returns the language of path, "" when it is not a known text type.
func (w *Walker) Detect(path string) Language {
	return w.langDetector.Detect(path)
}

// loadGitignorePatterns loads patterns from all .gitignore files below root.
func loadGitignorePatterns(root string) []string {
	var patterns []string
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && (d.Name() == ".git" || d.Name() == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() != ".gitignore" {
			return nil
		}
		lines, err := readGitignoreLines(path)
		if err != nil {
			return nil
		}
		// nested files scope their patterns to their own directory
		prefix, _ := filepath.Rel(root, filepath.Dir(path))
		prefix = filepath.ToSlash(prefix)
		for _, line := range lines {
			if prefix != "." && !strings.HasPrefix(line, "!") {
				line = prefix + "/" + strings.TrimPrefix(line, "/")
			}
			patterns = append(patterns, line)
		}
		return nil
	})
	return patterns
}

// readGitignoreLines reads patterns from a .gitignore file.
func readGitignoreLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}

// Walk discovers all files in the repository.
func (w *Walker) Walk() []FileInfo {
	return w.WalkWithErrors().Files
}

// WalkWithErrors discovers all files and returns detailed error information.
// Files are returned sorted by path.
func (w *Walker) WalkWithErrors() WalkResult {
	var res WalkResult
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			res.Errors = append(res.Errors, WalkError{Path: path, Err: err})
			return nil
		}
		if path == w.root {
			return nil
		}
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			res.Errors = append(res.Errors, WalkError{Path: path, Err: err})
			return nil
		}
		if w.Ignored(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Type()&os.ModeSymlink != 0 || !d.Type().IsRegular() {
			return nil
		}
		lang := w.langDetector.Detect(path)
		if lang == "" {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			res.Errors = append(res.Errors, WalkError{Path: path, Err: err})
			return nil
		}
		if info.Size() > w.config.MaxFileSize {
			return nil
		}
		res.Files = append(res.Files, FileInfo{
			Path:      filepath.ToSlash(rel),
			Lang:      lang,
			SizeBytes: info.Size(),
		})
		return nil
	})
	if err != nil {
		res.Errors = append(res.Errors, WalkError{Path: w.root, Err: err})
	}
	sort.Slice(res.Files, func(i, j int) bool { return res.Files[i].Path < res.Files[j].Path })
	return res
}
