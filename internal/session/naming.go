// Package session launches and tracks external coding-agent sessions,
// one per task. All process invocation goes through the exec contract;
// the runner owns branch naming, workspace isolation, prompt rendering,
// and the session status ladder.
package session

import (
	"path/filepath"
	"strings"
)

const (
	// branchSlugMax caps the {task_title} slug in branch names.
	branchSlugMax = 50
	// workspaceSlugMax caps the title slug in workspace paths.
	workspaceSlugMax = 30
	// shortIDLen is how many leading characters of a task ID appear in
	// branch names and workspace paths.
	shortIDLen = 8
)

// Slugify lowercases s, maps every non-alphanumeric run to a single
// hyphen, trims boundary hyphens, and caps the length at maxLen.
func Slugify(s string, maxLen int) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if maxLen > 0 && len(slug) > maxLen {
		slug = strings.TrimRight(slug[:maxLen], "-")
	}
	return slug
}

// ShortID returns the first 8 characters of a task ID.
func ShortID(taskID string) string {
	if len(taskID) <= shortIDLen {
		return taskID
	}
	return taskID[:shortIDLen]
}

// BranchName renders the branch pattern for a task. Supported tokens:
// {task_id} and {task_title}.
func BranchName(pattern, taskID, title string) string {
	name := strings.ReplaceAll(pattern, "{task_id}", ShortID(taskID))
	name = strings.ReplaceAll(name, "{task_title}", Slugify(title, branchSlugMax))
	return name
}

// PRTitle renders the PR title pattern. Supported token: {task_title}.
func PRTitle(pattern, title string) string {
	return strings.ReplaceAll(pattern, "{task_title}", title)
}

// WorkspacePath returns the isolated workspace directory for a task:
// <root>/task-<task_id[:8]>-<slug(title, 30)>.
func WorkspacePath(root, taskID, title string) string {
	return filepath.Join(root, "task-"+ShortID(taskID)+"-"+Slugify(title, workspaceSlugMax))
}
