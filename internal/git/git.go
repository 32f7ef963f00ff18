// Package git wraps the git operations taskmap needs: worktree
// isolation per session and branch bookkeeping. All commands go
// through the exec.CommandExecutor seam, so tests never touch a real
// repository.
package git

import (
	"context"
	"fmt"
	"strings"

	"taskmap/internal/errs"
	"taskmap/internal/exec"
)

// Client runs git commands against one repository.
type Client struct {
	executor exec.CommandExecutor
	repoPath string
}

// NewClient creates a client for the repository at repoPath.
func NewClient(executor exec.CommandExecutor, repoPath string) *Client {
	return &Client{executor: executor, repoPath: repoPath}
}

// run executes a git command and returns trimmed stdout. A non-zero
// exit is reported as an ExternalServiceError carrying stderr.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	result, err := c.executor.Execute(ctx, exec.Command{
		Program: "git",
		Args:    args,
		Dir:     c.repoPath,
	})
	if err != nil {
		return "", &errs.ExternalServiceError{Service: "git", Message: err.Error()}
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("git %s: exit code %d", strings.Join(args, " "), result.ExitCode)
		}
		return "", &errs.ExternalServiceError{Service: "git", Message: msg}
	}
	return strings.TrimSpace(result.Stdout), nil
}

// CurrentBranch returns the checked-out branch name.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	return c.run(ctx, "rev-parse", "--abbrev-ref", "HEAD")
}

// BranchExists reports whether a local branch exists.
func (c *Client) BranchExists(ctx context.Context, name string) (bool, error) {
	result, err := c.executor.Execute(ctx, exec.Command{
		Program: "git",
		Args:    []string{"show-ref", "--verify", "--quiet", "refs/heads/" + name},
		Dir:     c.repoPath,
	})
	if err != nil {
		return false, &errs.ExternalServiceError{Service: "git", Message: err.Error()}
	}
	// Exit code 1 means the ref does not exist, which is not a failure.
	return result.Success, nil
}

// DeleteBranch force-deletes a local branch.
func (c *Client) DeleteBranch(ctx context.Context, name string) error {
	_, err := c.run(ctx, "branch", "-D", name)
	return err
}

// WorktreeAddNewBranch creates a worktree at path on a new branch.
func (c *Client) WorktreeAddNewBranch(ctx context.Context, branch, path string) error {
	_, err := c.run(ctx, "worktree", "add", "-b", branch, path)
	return err
}

// WorktreeRemove force-removes the worktree at path.
func (c *Client) WorktreeRemove(ctx context.Context, path string) error {
	_, err := c.run(ctx, "worktree", "remove", "--force", path)
	return err
}

// WorktreeList returns the paths of all worktrees, the main checkout
// included.
func (c *Client) WorktreeList(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range strings.Split(out, "\n") {
		if strings.HasPrefix(line, "worktree ") {
			paths = append(paths, strings.TrimPrefix(line, "worktree "))
		}
	}
	return paths, nil
}

// WorktreePrune removes stale worktree bookkeeping.
func (c *Client) WorktreePrune(ctx context.Context) error {
	_, err := c.run(ctx, "worktree", "prune")
	return err
}
