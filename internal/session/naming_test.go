package session

import (
	"strings"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in     string
		maxLen int
		want   string
	}{
		{"Fix login bug", 50, "fix-login-bug"},
		{"Fix  login   bug", 50, "fix-login-bug"},
		{"Add OAuth2.0 support!", 50, "add-oauth2-0-support"},
		{"--weird--title--", 50, "weird-title"},
		{"UPPER case", 50, "upper-case"},
		{"", 50, ""},
		{"###", 50, ""},
		{"abcdef", 3, "abc"},
		{"ab-cd", 3, "ab"}, // cap must not leave a trailing hyphen
	}

	for _, tt := range tests {
		if got := Slugify(tt.in, tt.maxLen); got != tt.want {
			t.Errorf("Slugify(%q, %d) = %q, want %q", tt.in, tt.maxLen, got, tt.want)
		}
	}
}

func TestBranchName(t *testing.T) {
	got := BranchName("task/{task_id}-{task_title}", "12345678-90ab-cdef-1234-567890abcdef", "Fix login bug")
	want := "task/12345678-fix-login-bug"
	if got != want {
		t.Errorf("BranchName = %q, want %q", got, want)
	}
}

func TestBranchNameCapsLongTitles(t *testing.T) {
	long := strings.Repeat("very long title ", 10)
	got := BranchName("task/{task_id}-{task_title}", "abcdef12-3456", long)
	slug := strings.TrimPrefix(got, "task/abcdef12-")
	if len(slug) > 50 {
		t.Errorf("title slug exceeds 50 chars: %q (%d)", slug, len(slug))
	}
	if strings.HasSuffix(slug, "-") {
		t.Errorf("slug has trailing hyphen: %q", slug)
	}
}

func TestShortIDShortInput(t *testing.T) {
	if got := ShortID("abc"); got != "abc" {
		t.Errorf("ShortID(abc) = %q", got)
	}
}

func TestPRTitle(t *testing.T) {
	got := PRTitle("[taskmap] {task_title}", "Fix login bug")
	if got != "[taskmap] Fix login bug" {
		t.Errorf("PRTitle = %q", got)
	}
}

func TestWorkspacePath(t *testing.T) {
	got := WorkspacePath("/ws", "12345678-90ab", "Fix login bug")
	want := "/ws/task-12345678-fix-login-bug"
	if got != want {
		t.Errorf("WorkspacePath = %q, want %q", got, want)
	}
}

func TestRenderTemplate(t *testing.T) {
	tpl := "Task: {{task_title}}\nBranch: {{branch_name}}\nMissing: {{unknown}}"
	got := RenderTemplate(tpl, map[string]string{
		"task_title":  "Fix login bug",
		"branch_name": "task/12345678-fix-login-bug",
	})
	if !strings.Contains(got, "Task: Fix login bug") {
		t.Errorf("title not substituted: %q", got)
	}
	if !strings.Contains(got, "Branch: task/12345678-fix-login-bug") {
		t.Errorf("branch not substituted: %q", got)
	}
	// Unknown placeholders stay visible.
	if !strings.Contains(got, "{{unknown}}") {
		t.Errorf("unknown placeholder should be preserved: %q", got)
	}
}
