package session

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskmap/internal/config"
	"taskmap/internal/errs"
	"taskmap/internal/exec"
	"taskmap/internal/git"
	"taskmap/internal/state"
	"taskmap/pkg/models"
)

// Runner launches one external agent session per task and drives it
// through its status ladder, persisting every transition.
type Runner struct {
	store    state.StateStore
	executor exec.CommandExecutor
	git      *git.Client
	repoPath string
	logf     func(format string, args ...interface{})
	now      func() time.Time
}

// NewRunner creates a session runner. repoPath is the main git
// repository workspaces are created from.
func NewRunner(store state.StateStore, executor exec.CommandExecutor, repoPath string) *Runner {
	return &Runner{
		store:    store,
		executor: executor,
		git:      git.NewClient(executor, repoPath),
		repoPath: repoPath,
		logf:     func(format string, args ...interface{}) {},
		now:      time.Now,
	}
}

// SetLogf sets the debug logging function.
func (r *Runner) SetLogf(fn func(format string, args ...interface{})) {
	if fn != nil {
		r.logf = fn
	}
}

// Launch runs a full agent session for the task and records the outcome
// on both the session and its execution record. Command failures are
// recorded (status failed, error message, log line), not returned; the
// error return is reserved for persistence failures.
func (r *Runner) Launch(ctx context.Context, task *models.Task, cfg *config.Config, execution *models.TaskExecution) (*models.ClaudeCodeSession, error) {
	branch := BranchName(cfg.Git.BranchPattern, task.ID, task.Title)
	workspace := WorkspacePath(cfg.Workspace.Root, task.ID, task.Title)

	sess := &models.ClaudeCodeSession{
		ID:            uuid.New().String(),
		ExecutionID:   execution.ID,
		TaskID:        task.ID,
		Status:        models.SessionPending,
		BranchName:    branch,
		WorkspacePath: workspace,
		StartedAt:     r.now(),
	}

	template := cfg.Agent.PromptTemplate
	if template == "" {
		template = config.DefaultPromptTemplate
	}
	sess.Prompt = RenderTemplate(template, map[string]string{
		"task_id":          task.ID,
		"task_title":       task.Title,
		"task_description": task.Description,
		"branch_name":      branch,
		"workspace_path":   workspace,
		"base_branch":      cfg.Git.BaseBranch,
	})

	if err := r.store.CreateSession(sess); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}

	execution.BranchName = branch
	execution.AppendLog(fmt.Sprintf("session %s created for branch %s", sess.ID, branch))
	if err := r.persistExecution(execution); err != nil {
		return nil, fmt.Errorf("persist execution: %w", err)
	}

	// Initializing: carve out the isolated workspace as a worktree on
	// the session branch.
	if err := r.transition(sess, models.SessionInitializing); err != nil {
		return nil, err
	}
	if err := r.git.WorktreeAddNewBranch(ctx, branch, workspace); err != nil {
		return sess, r.fail(sess, execution, err)
	}

	// Working: hand the rendered prompt to the agent binary.
	if err := r.transition(sess, models.SessionWorking); err != nil {
		return nil, err
	}
	r.logf("[session %s] launching %s for task %s", sess.ID, cfg.Agent.Binary, task.ID)
	args := append([]string(nil), cfg.Agent.Args...)
	args = append(args, sess.Prompt)
	result, err := r.executor.Execute(ctx, exec.Command{
		Program: cfg.Agent.Binary,
		Args:    args,
		Dir:     workspace,
	})
	if failErr := r.commandFailure(cfg.Agent.Binary, result, err); failErr != nil {
		return sess, r.fail(sess, execution, failErr)
	}
	sess.AppendLog("agent session finished")

	if cfg.Git.AutoCreatePR {
		if err := r.transition(sess, models.SessionCreatingPR); err != nil {
			return nil, err
		}
		title := PRTitle(cfg.Git.PRTitlePattern, task.Title)
		result, err = r.executor.Execute(ctx, exec.Command{
			Program: "gh",
			Args: []string{"pr", "create",
				"--title", title,
				"--head", branch,
				"--base", cfg.Git.BaseBranch,
				"--fill"},
			Dir: workspace,
		})
		if failErr := r.commandFailure("gh", result, err); failErr != nil {
			return sess, r.fail(sess, execution, failErr)
		}
		url := parsePRURL(result.Stdout)
		sess.PRUrl = url
		sess.PRNumber = parsePRNumber(url)
		execution.PRUrl = sess.PRUrl
		execution.PRNumber = sess.PRNumber
		sess.AppendLog(fmt.Sprintf("pull request created: %s", url))
	}

	if err := r.transition(sess, models.SessionCompleted); err != nil {
		return nil, err
	}
	return sess, r.complete(sess, execution)
}

// Cleanup removes a finished session's worktree and deletes its branch.
// Sessions still in flight are left alone.
func (r *Runner) Cleanup(ctx context.Context, sess *models.ClaudeCodeSession) error {
	if !sess.Status.Terminal() {
		return fmt.Errorf("session %s is still active", sess.ID)
	}

	if sess.WorkspacePath != "" {
		if err := r.git.WorktreeRemove(ctx, sess.WorkspacePath); err != nil {
			return err
		}
	}
	if sess.BranchName != "" {
		exists, err := r.git.BranchExists(ctx, sess.BranchName)
		if err != nil {
			return err
		}
		if exists {
			if err := r.git.DeleteBranch(ctx, sess.BranchName); err != nil {
				return err
			}
		}
	}
	return r.git.WorktreePrune(ctx)
}

// IsTimedOut reports whether the session has exceeded maxDuration
// without reaching a terminal state. Detection is by elapsed time only;
// the underlying process, if any, keeps running.
func (r *Runner) IsTimedOut(sess *models.ClaudeCodeSession, maxDuration time.Duration) bool {
	if sess.Status.Terminal() {
		return false
	}
	return r.now().Sub(sess.StartedAt) > maxDuration
}

// transition moves the session to next, persisting the change. The
// ladder only ever moves forward.
func (r *Runner) transition(sess *models.ClaudeCodeSession, next models.SessionStatus) error {
	if sess.Status.Terminal() {
		return &errs.InvalidStateTransitionError{From: string(sess.Status), To: string(next)}
	}
	r.logf("[session %s] %s -> %s", sess.ID, sess.Status, next)
	sess.Status = next
	if err := r.store.UpdateSession(sess); err != nil {
		return fmt.Errorf("persist transition to %s: %w", next, err)
	}
	return nil
}

// commandFailure turns an exec outcome into an error, or nil on success.
func (r *Runner) commandFailure(service string, result exec.Result, err error) error {
	if err != nil {
		return &errs.ExternalServiceError{Service: service, Message: err.Error()}
	}
	if !result.Success {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = fmt.Sprintf("exit code %d", result.ExitCode)
		}
		return &errs.ExternalServiceError{Service: service, Message: msg}
	}
	return nil
}

// fail records a command failure on the session and execution.
func (r *Runner) fail(sess *models.ClaudeCodeSession, execution *models.TaskExecution, cause error) error {
	now := r.now()
	sess.Status = models.SessionFailed
	sess.ErrorMessage = cause.Error()
	sess.AppendLog(fmt.Sprintf("failed: %v", cause))
	sess.CompletedAt = &now
	if err := r.store.UpdateSession(sess); err != nil {
		return fmt.Errorf("persist failed session: %w", err)
	}

	execution.Status = models.ExecutionFailed
	execution.ErrorMessage = cause.Error()
	execution.AppendLog(fmt.Sprintf("session %s failed: %v", sess.ID, cause))
	execution.CompletedAt = &now
	if err := r.persistExecution(execution); err != nil {
		return fmt.Errorf("persist failed execution: %w", err)
	}
	r.logf("[session %s] failed: %v", sess.ID, cause)
	return nil
}

// complete records a successful session on the session and execution.
func (r *Runner) complete(sess *models.ClaudeCodeSession, execution *models.TaskExecution) error {
	now := r.now()
	sess.CompletedAt = &now
	if err := r.store.UpdateSession(sess); err != nil {
		return fmt.Errorf("persist completed session: %w", err)
	}

	execution.Status = models.ExecutionSuccess
	execution.AppendLog(fmt.Sprintf("session %s completed", sess.ID))
	execution.CompletedAt = &now
	if err := r.persistExecution(execution); err != nil {
		return fmt.Errorf("persist completed execution: %w", err)
	}
	return nil
}

// persistExecution writes the execution record unless the stored copy
// has reached a terminal state in the meantime, which happens when a
// cancel signal or the timeout sweep lands while the session is still
// in flight. Terminal records are never overwritten; the in-memory
// copy adopts the stored status instead.
func (r *Runner) persistExecution(execution *models.TaskExecution) error {
	stored, err := r.store.GetExecution(execution.ID)
	if err != nil {
		return fmt.Errorf("reload execution: %w", err)
	}
	if stored != nil && stored.Status != execution.Status && !stored.Status.CanTransition(execution.Status) {
		r.logf("[execution %s] already %s, keeping it over %s", execution.ID, stored.Status, execution.Status)
		execution.Status = stored.Status
		return nil
	}
	return r.store.UpdateExecution(execution)
}

var prURLPattern = regexp.MustCompile(`https://\S+/pull/(\d+)`)

// parsePRURL extracts the pull request URL from gh output.
func parsePRURL(stdout string) string {
	return prURLPattern.FindString(stdout)
}

// parsePRNumber extracts the PR number from its URL. Returns 0 when the
// URL does not carry one.
func parsePRNumber(url string) int {
	m := prURLPattern.FindStringSubmatch(url)
	if len(m) < 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}
