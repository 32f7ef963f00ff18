package orchestrator

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"taskmap/pkg/models"
)

func batchOp(id string, opType models.OperationType) models.BatchOperation {
	return models.BatchOperation{
		ID:        id,
		Type:      opType,
		TaskID:    "task-" + id,
		Timestamp: time.Now(),
	}
}

func TestProcessBatchDrainsQueue(t *testing.T) {
	m := NewBatchOperationManager()
	m.Enqueue(batchOp("1", models.OpCreateTask))
	m.Enqueue(batchOp("2", models.OpUpdateTask))

	var got []models.BatchOperation
	ran, err := m.ProcessBatch(func(ops []models.BatchOperation) error {
		got = ops
		return nil
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !ran {
		t.Fatal("expected drain to run")
	}
	if len(got) != 2 || got[0].ID != "1" || got[1].ID != "2" {
		t.Errorf("drained %v, want ops 1 and 2 in order", got)
	}
	if m.PendingCount() != 0 {
		t.Errorf("pending = %d, want 0", m.PendingCount())
	}
}

func TestProcessBatchEmptyQueue(t *testing.T) {
	m := NewBatchOperationManager()
	calls := 0
	ran, err := m.ProcessBatch(func(ops []models.BatchOperation) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !ran {
		t.Error("empty drain should still report true")
	}
	if calls != 0 {
		t.Errorf("processor calls = %d, want 0", calls)
	}
}

func TestProcessBatchSingleFlight(t *testing.T) {
	m := NewBatchOperationManager()
	m.Enqueue(batchOp("1", models.OpCreateTask))

	entered := make(chan struct{})
	release := make(chan struct{})
	var processorRuns int32

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.ProcessBatch(func(ops []models.BatchOperation) error {
			atomic.AddInt32(&processorRuns, 1)
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	// A second drain while the first is in flight is a no-op, not an error.
	ran, err := m.ProcessBatch(func(ops []models.BatchOperation) error {
		atomic.AddInt32(&processorRuns, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("concurrent process: %v", err)
	}
	if ran {
		t.Error("concurrent drain should be skipped")
	}
	close(release)
	wg.Wait()

	if runs := atomic.LoadInt32(&processorRuns); runs != 1 {
		t.Errorf("processor runs = %d, want 1", runs)
	}
}

func TestEnqueueDuringDrainGoesToNextBatch(t *testing.T) {
	m := NewBatchOperationManager()
	m.Enqueue(batchOp("1", models.OpCreateTask))

	var first []models.BatchOperation
	ran, err := m.ProcessBatch(func(ops []models.BatchOperation) error {
		first = ops
		// Arrives mid-drain: must not join the batch being processed.
		m.Enqueue(batchOp("2", models.OpDeleteTask))
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("first drain: ran=%v err=%v", ran, err)
	}
	if len(first) != 1 || first[0].ID != "1" {
		t.Errorf("first batch = %v, want [1]", first)
	}
	if m.PendingCount() != 1 {
		t.Fatalf("pending = %d, want 1", m.PendingCount())
	}

	var second []models.BatchOperation
	ran, err = m.ProcessBatch(func(ops []models.BatchOperation) error {
		second = ops
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("second drain: ran=%v err=%v", ran, err)
	}
	if len(second) != 1 || second[0].ID != "2" {
		t.Errorf("second batch = %v, want [2]", second)
	}
}
