package indexer

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitInfo contains git repository information.
type GitInfo struct {
	IsGit   bool
	GitRoot string
}

// DetectGit detects if a directory is within a git repository.
// Returns git information or falls back to non-git mode.
func DetectGit(ctx context.Context, dir string) GitInfo {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		// Not a git repo or git not available
		return GitInfo{IsGit: false}
	}

	return GitInfo{
		IsGit:   true,
		GitRoot: strings.TrimSpace(string(output)),
	}
}

// GetGitTrackedFiles returns the files tracked by git below dir, relative to
// dir.
func GetGitTrackedFiles(ctx context.Context, dir string) ([]string, error) {
	cmd := exec.CommandContext(ctx, "git", "ls-files")
	cmd.Dir = dir

	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git ls-files failed: %w", err)
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path != "" {
			files = append(files, path)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to parse git ls-files: %w", err)
	}
	return files, nil
}

// GitStatus contains git repository status.
type GitStatus struct {
	Branch string
	Status string // "clean", "dirty" or "unknown"
}

// GetGitStatus gets the current git branch and clean/dirty status.
func GetGitStatus(ctx context.Context, dir string) GitStatus {
	status := GitStatus{Branch: "unknown", Status: "unknown"}

	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--abbrev-ref", "HEAD")
	cmd.Dir = dir
	if output, err := cmd.Output(); err == nil {
		status.Branch = strings.TrimSpace(string(output))
	}

	cmd = exec.CommandContext(ctx, "git", "status", "--porcelain")
	cmd.Dir = dir
	if output, err := cmd.Output(); err == nil {
		if len(strings.TrimSpace(string(output))) == 0 {
			status.Status = "clean"
		} else {
			status.Status = "dirty"
		}
	}
	return status
}
