// Package watch translates operator signal files into execution
// cancellations. Dropping a file named cancel-<task-id-prefix> into
// .taskmap/signals cancels the matching task's active execution: the
// explicit cancellation path, since timeouts never kill the agent
// process.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// Canceller cancels a task's active execution. Satisfied by the
// orchestrator.
type Canceller interface {
	CancelExecution(taskID string) (bool, error)
}

// TaskResolver maps a task-ID prefix from a signal filename to a full
// task ID. Returns empty when no task matches.
type TaskResolver func(prefix string) (string, error)

// SignalWatcher watches the signals directory and forwards cancel
// requests.
type SignalWatcher struct {
	signalsDir string
	canceller  Canceller
	resolve    TaskResolver
	logf       func(format string, args ...interface{})

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewSignalWatcher creates a watcher over <projectRoot>/.taskmap/signals,
// creating the directory if needed.
func NewSignalWatcher(projectRoot string, canceller Canceller, resolve TaskResolver) (*SignalWatcher, error) {
	signalsDir := filepath.Join(projectRoot, ".taskmap", "signals")
	if err := os.MkdirAll(signalsDir, 0755); err != nil {
		return nil, fmt.Errorf("create signals directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(signalsDir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", signalsDir, err)
	}

	sw := &SignalWatcher{
		signalsDir: signalsDir,
		canceller:  canceller,
		resolve:    resolve,
		logf:       func(format string, args ...interface{}) {},
		watcher:    watcher,
		done:       make(chan struct{}),
	}
	go sw.loop()
	return sw, nil
}

// SetLogf sets the debug logging function.
func (sw *SignalWatcher) SetLogf(fn func(format string, args ...interface{})) {
	if fn != nil {
		sw.logf = fn
	}
}

// Close stops the watcher.
func (sw *SignalWatcher) Close() error {
	close(sw.done)
	return sw.watcher.Close()
}

func (sw *SignalWatcher) loop() {
	for {
		select {
		case <-sw.done:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			sw.handleSignal(filepath.Base(event.Name))
		case <-sw.watcher.Errors:
			// Keep watching.
		}
	}
}

// handleSignal processes one signal file by name and removes it after a
// successful cancellation.
func (sw *SignalWatcher) handleSignal(name string) {
	prefix, ok := strings.CutPrefix(name, "cancel-")
	if !ok || prefix == "" {
		return
	}

	taskID, err := sw.resolve(prefix)
	if err != nil {
		sw.logf("[watch] resolve %q: %v", prefix, err)
		return
	}
	if taskID == "" {
		sw.logf("[watch] no task matches signal %q", name)
		return
	}

	cancelled, err := sw.canceller.CancelExecution(taskID)
	if err != nil {
		sw.logf("[watch] cancel task %s: %v", taskID, err)
		return
	}
	if cancelled {
		sw.logf("[watch] cancelled execution for task %s", taskID)
		os.Remove(filepath.Join(sw.signalsDir, name))
	}
}
