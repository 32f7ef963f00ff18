package exec

import (
	"context"
	"strings"
	"sync"
	"time"
)

// MockRule matches commands and supplies a canned response. Rules match
// on program name and an args subset: every string in ArgsContain must
// appear somewhere in the invocation's arguments.
type MockRule struct {
	// Program matches the command's program; empty matches any.
	Program string
	// ArgsContain are substrings that must each appear in some argument.
	ArgsContain []string
	// Result is returned when the rule matches.
	Result Result
	// Err is returned instead of Result when set.
	Err error
	// Delay is slept before responding, for timeout tests.
	Delay time.Duration
}

func (r MockRule) matches(cmd Command) bool {
	if r.Program != "" && r.Program != cmd.Program {
		return false
	}
	for _, want := range r.ArgsContain {
		found := false
		for _, arg := range cmd.Args {
			if strings.Contains(arg, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Mock implements CommandExecutor deterministically for tests. It records
// every call and answers from its rule list; first matching rule wins.
// Commands with no matching rule succeed with empty output.
type Mock struct {
	mu    sync.Mutex
	rules []MockRule
	calls []Command
}

// NewMock creates an empty Mock.
func NewMock() *Mock {
	return &Mock{}
}

// AddRule appends a response rule.
func (m *Mock) AddRule(rule MockRule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, rule)
}

// Execute records the call and answers from the rule list.
func (m *Mock) Execute(ctx context.Context, cmd Command) (Result, error) {
	m.mu.Lock()
	m.calls = append(m.calls, cmd)
	var rule *MockRule
	for i := range m.rules {
		if m.rules[i].matches(cmd) {
			rule = &m.rules[i]
			break
		}
	}
	m.mu.Unlock()

	if rule == nil {
		return Result{Success: true}, nil
	}
	if rule.Delay > 0 {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(rule.Delay):
		}
	}
	if rule.Err != nil {
		return Result{}, rule.Err
	}
	return rule.Result, nil
}

// Calls returns a copy of the recorded call history.
func (m *Mock) Calls() []Command {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Command(nil), m.calls...)
}

// CallCount returns the number of recorded invocations of program.
// An empty program counts all calls.
func (m *Mock) CallCount(program string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if program == "" {
		return len(m.calls)
	}
	n := 0
	for _, c := range m.calls {
		if c.Program == program {
			n++
		}
	}
	return n
}

// Verify Mock implements CommandExecutor at compile time.
var _ CommandExecutor = (*Mock)(nil)
