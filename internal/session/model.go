package session

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Info identifies one session of the assistant in one working directory.
type Info struct {
	ID        string
	WorkDir   string
	RepoHash  string // scopes per-repository state such as the undo journal
	StartedAt time.Time
}

// NewInfo creates the identity of a fresh session rooted at workDir.
func NewInfo(workDir string) Info {
	return Info{
		ID:        uuid.NewString(),
		WorkDir:   workDir,
		RepoHash:  RepoHash(workDir),
		StartedAt: time.Now(),
	}
}

// RepoHash generates a consistent short hash for a repository path.
func RepoHash(repoPath string) string {
	hash := sha256.Sum256([]byte(filepath.Clean(repoPath)))
	return hex.EncodeToString(hash[:])[:12]
}
