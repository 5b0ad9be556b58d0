package workspace

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultCommitMessage is used when a commit request carries no message.
const DefaultCommitMessage = "Update"

// NotRepositoryError is returned when committing outside a git repository.
type NotRepositoryError struct{ Dir string }

func (e *NotRepositoryError) Error() string {
	return fmt.Sprintf("%s is not a git repository", e.Dir)
}

// Commit stages paths (relative to dir) and commits them with message.
// With no paths every tracked modification is committed.
func Commit(ctx context.Context, dir string, paths []string, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultCommitMessage
	}
	if _, err := git(ctx, dir, "rev-parse", "--is-inside-work-tree"); err != nil {
		return "", &NotRepositoryError{Dir: dir}
	}

	args := []string{"commit", "-m", message}
	if len(paths) > 0 {
		add := append([]string{"add", "--"}, paths...)
		if out, err := git(ctx, dir, add...); err != nil {
			return "", fmt.Errorf("git add failed: %s", out)
		}
	} else {
		args = []string{"commit", "-a", "-m", message}
	}
	out, err := git(ctx, dir, args...)
	if err != nil {
		return "", fmt.Errorf("git commit failed: %s", out)
	}

	hash, _ := git(ctx, dir, "rev-parse", "--short", "HEAD")
	return fmt.Sprintf("committed %s %q", hash, message), nil
}

func git(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return strings.TrimSpace(out.String()), err
}
