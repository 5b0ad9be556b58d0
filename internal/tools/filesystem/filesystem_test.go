package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/ChamsBouzaiene/nanocoder/internal/engine/protocol"
)

// MockFileSystem is a mock implementation of the FileSystem interface.
type MockFileSystem struct {
	StatFunc      func(name string) (os.FileInfo, error)
	ReadFileFunc  func(name string) ([]byte, error)
	WriteFileFunc func(name string, data []byte, perm os.FileMode) error
	MkdirAllFunc  func(path string, perm os.FileMode) error
}

func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if m.StatFunc != nil {
		return m.StatFunc(name)
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) Lstat(name string) (os.FileInfo, error) {
	return m.Stat(name)
}

func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(name)
	}
	return nil, os.ErrNotExist
}

func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(name, data, perm)
	}
	return nil
}

func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(path, perm)
	}
	return nil
}

// mockFileInfo implements os.FileInfo
type mockFileInfo struct {
	name  string
	isDir bool
}

func (m mockFileInfo) Name() string       { return m.name }
func (m mockFileInfo) Size() int64        { return 0 }
func (m mockFileInfo) Mode() os.FileMode  { return 0644 }
func (m mockFileInfo) ModTime() time.Time { return time.Now() }
func (m mockFileInfo) IsDir() bool        { return m.isDir }
func (m mockFileInfo) Sys() any           { return nil }

func TestRead(t *testing.T) {
	tests := []struct {
		name      string
		data      []byte
		statErr   error
		isDir     bool
		max       int64
		wantText  string
		wantKind  protocol.FailureKind
		truncated bool
	}{
		{name: "plain", data: []byte("a\nb\n"), wantText: "a\nb\n"},
		{name: "missing", statErr: os.ErrNotExist, wantKind: protocol.FailFileNotFound},
		{name: "directory", isDir: true, wantKind: protocol.FailIO},
		{name: "binary", data: []byte{0xff, 0xfe, 0x00}, wantKind: protocol.FailIO},
		{name: "truncated", data: []byte("0123456789"), max: 4, wantText: "0123", truncated: true},
		{name: "truncation keeps runes whole", data: []byte("aé"), max: 2, wantText: "a", truncated: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockFileSystem{
				StatFunc: func(string) (os.FileInfo, error) {
					if tt.statErr != nil {
						return nil, tt.statErr
					}
					return mockFileInfo{name: "f", isDir: tt.isDir}, nil
				},
				ReadFileFunc: func(string) ([]byte, error) { return tt.data, nil },
			}
			got, err := Read(mock, "/w/f", "f", tt.max)
			if tt.wantKind != protocol.FailNone {
				if KindOf(err) != tt.wantKind {
					t.Fatalf("Read() error = %v, want kind %s", err, tt.wantKind)
				}
				return
			}
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if got.Text != tt.wantText || got.Truncated != tt.truncated {
				t.Errorf("Read() = %+v, want text %q truncated %v", got, tt.wantText, tt.truncated)
			}
			if tt.truncated && !strings.Contains(got.Body(), "[TRUNCATED") {
				t.Errorf("Body() missing marker: %q", got.Body())
			}
		})
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fsys := NewOSFileSystem()
	contents := []string{"", "no newline", "line\n", "tabs\tand\r\nCRLF\r\n", "unicode ✓\n"}
	for i, content := range contents {
		rel := filepath.Join("nested", "deep", "f"+string(rune('a'+i))+".txt")
		abs := filepath.Join(dir, rel)
		res, err := Write(fsys, abs, rel, content, true)
		if err != nil {
			t.Fatalf("Write(%q) error = %v", content, err)
		}
		if !res.Created {
			t.Errorf("Write(%q) Created = false for a new file", content)
		}
		got, err := Read(fsys, abs, rel, 0)
		if err != nil {
			t.Fatal(err)
		}
		if got.Text != content {
			t.Errorf("round trip = %q, want %q", got.Text, content)
		}
	}
}

func TestWriteOverwritePreservesMode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("mode bits differ on windows")
	}
	dir := t.TempDir()
	abs := filepath.Join(dir, "run.sh")
	if err := os.WriteFile(abs, []byte("old"), 0755); err != nil {
		t.Fatal(err)
	}
	res, err := Write(NewOSFileSystem(), abs, "run.sh", "#!/bin/sh\n", false)
	if err != nil {
		t.Fatal(err)
	}
	if res.Created {
		t.Error("Created = true when overwriting")
	}
	info, _ := os.Stat(abs)
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}
}

func TestWriteInvalidContentLeavesFile(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "cfg.json")
	os.WriteFile(abs, []byte(`{"ok": true}`), 0644)

	_, err := Write(NewOSFileSystem(), abs, "cfg.json", `{"ok": `, true)
	if KindOf(err) != protocol.FailInvalidContent {
		t.Fatalf("Write() error = %v, want InvalidContent", err)
	}
	got, _ := os.ReadFile(abs)
	if string(got) != `{"ok": true}` {
		t.Errorf("file modified: %q", got)
	}

	if _, err := Write(NewOSFileSystem(), abs, "cfg.json", `{"ok": `, false); err != nil {
		t.Errorf("Write() without validation error = %v", err)
	}
}

func TestWriteErrors(t *testing.T) {
	tests := []struct {
		name     string
		writeErr error
		want     protocol.FailureKind
	}{
		{"permission", &fs.PathError{Op: "open", Path: "/w/f", Err: fs.ErrPermission}, protocol.FailWritePermissionDenied},
		{"disk full", errors.New("no space left on device"), protocol.FailIO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &MockFileSystem{
				WriteFileFunc: func(string, []byte, os.FileMode) error { return tt.writeErr },
			}
			_, err := Write(mock, "/w/f", "f", "x", false)
			if KindOf(err) != tt.want {
				t.Errorf("Write() error = %v, want kind %s", err, tt.want)
			}
			if !strings.HasPrefix(err.Error(), "f: ") {
				t.Errorf("error should name the target: %q", err.Error())
			}
		})
	}
}
