package indexer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
)

const (
	defaultMapFiles   = 400
	defaultMapSymbols = 40
)

// declRe matches top-level definitions in languages without a Go parser:
// Python/Ruby def and class, JavaScript/TypeScript function and class,
// Rust fn and struct.
var declRe = regexp.MustCompile(`^\s*(export\s+)?(async\s+)?(pub\s+)?(def|class|function|fn|struct|interface|module)\s+[A-Za-z_$][\w$]*`)

// RepoMap lists the files of a repository with their top-level
// declarations. The rendered map is cached until Invalidate is called.
type RepoMap struct {
	root     string
	walker   *Walker
	maxFiles int

	mu     sync.Mutex
	cached string
	valid  bool
}

// NewRepoMap creates a repository map rooted at root.
func NewRepoMap(root string, walker *Walker) *RepoMap {
	if walker == nil {
		walker = NewWalker(root)
	}
	return &RepoMap{root: root, walker: walker, maxFiles: defaultMapFiles}
}

// Invalidate drops the cached map.
func (m *RepoMap) Invalidate() {
	m.mu.Lock()
	m.valid = false
	m.mu.Unlock()
}

// String returns the cached map, building it if needed.
func (m *RepoMap) String(ctx context.Context) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.valid {
		m.cached = m.build(ctx)
		m.valid = true
	}
	return m.cached
}

func (m *RepoMap) files(ctx context.Context) []string {
	if DetectGit(ctx, m.root).IsGit {
		if tracked, err := GetGitTrackedFiles(ctx, m.root); err == nil && len(tracked) > 0 {
			out := tracked[:0]
			for _, f := range tracked {
				if !m.walker.Ignored(f) {
					out = append(out, f)
				}
			}
			sort.Strings(out)
			return out
		}
	}
	var out []string
	for _, f := range m.walker.Walk() {
		out = append(out, f.Path)
	}
	return out
}

func (m *RepoMap) build(ctx context.Context) string {
	files := m.files(ctx)
	if len(files) == 0 {
		return ""
	}
	var b strings.Builder
	for i, rel := range files {
		if i == m.maxFiles {
			fmt.Fprintf(&b, "... %d more files\n", len(files)-m.maxFiles)
			break
		}
		b.WriteString(rel)
		b.WriteString("\n")
		symbols := Declarations(filepath.Join(m.root, filepath.FromSlash(rel)))
		for j, s := range symbols {
			if j == defaultMapSymbols {
				fmt.Fprintf(&b, "  ... %d more\n", len(symbols)-defaultMapSymbols)
				break
			}
			b.WriteString("  ")
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Declarations returns the top-level declarations of one source file, in
// file order. Go files are parsed; other languages are matched line by
// line. Unknown or unreadable files yield nothing.
func Declarations(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil || bytes.IndexByte(data, 0) >= 0 {
		return nil
	}
	if strings.HasSuffix(path, ".go") {
		return goDeclarations(path, data)
	}
	switch NewDefaultLanguageDetector().Detect(path) {
	case LangPython, LangRuby, LangJavaScript, LangTypeScript, LangRust:
	default:
		return nil
	}
	var out []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if declRe.MatchString(line) {
			out = append(out, strings.TrimSpace(strings.TrimRight(strings.TrimSpace(line), "{:")))
		}
	}
	return out
}

func goDeclarations(path string, src []byte) []string {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, src, parser.SkipObjectResolution)
	if err != nil {
		return nil
	}
	var out []string
	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			out = append(out, funcSignature(d))
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					out = append(out, fmt.Sprintf("type %s %s", s.Name.Name, typeKind(s.Type)))
				case *ast.ValueSpec:
					for _, name := range s.Names {
						if name.Name == "_" {
							continue
						}
						out = append(out, fmt.Sprintf("%s %s", d.Tok, name.Name))
					}
				}
			}
		}
	}
	return out
}

func funcSignature(d *ast.FuncDecl) string {
	var b strings.Builder
	b.WriteString("func ")
	if d.Recv != nil && len(d.Recv.List) > 0 {
		fmt.Fprintf(&b, "(%s) ", types.ExprString(d.Recv.List[0].Type))
	}
	b.WriteString(d.Name.Name)
	b.WriteString("(")
	b.WriteString(fieldList(d.Type.Params))
	b.WriteString(")")
	if res := d.Type.Results; res != nil && len(res.List) > 0 {
		list := fieldList(res)
		if len(res.List) > 1 || len(res.List[0].Names) > 0 {
			list = "(" + list + ")"
		}
		b.WriteString(" ")
		b.WriteString(list)
	}
	return b.String()
}

func fieldList(fl *ast.FieldList) string {
	if fl == nil {
		return ""
	}
	var parts []string
	for _, f := range fl.List {
		typ := types.ExprString(f.Type)
		if len(f.Names) == 0 {
			parts = append(parts, typ)
			continue
		}
		names := make([]string, len(f.Names))
		for i, n := range f.Names {
			names[i] = n.Name
		}
		parts = append(parts, strings.Join(names, ", ")+" "+typ)
	}
	return strings.Join(parts, ", ")
}

func typeKind(expr ast.Expr) string {
	switch expr.(type) {
	case *ast.StructType:
		return "struct"
	case *ast.InterfaceType:
		return "interface"
	case *ast.FuncType:
		return "func"
	default:
		return types.ExprString(expr)
	}
}
