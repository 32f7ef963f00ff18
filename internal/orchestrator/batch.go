package orchestrator

import (
	"sync"
	"sync/atomic"

	"taskmap/pkg/models"
)

// BatchProcessor handles one drained batch of operations.
type BatchProcessor func(ops []models.BatchOperation) error

// BatchOperationManager queues deferred mutations and drains them with
// single-flight semantics: at most one drain runs at a time, and
// operations enqueued during a drain wait for the next one.
type BatchOperationManager struct {
	mu      sync.Mutex
	pending []models.BatchOperation

	// processing guards the drain itself; the queue swap happens under
	// mu so enqueues during a drain land in the next batch.
	processing atomic.Bool
}

// NewBatchOperationManager creates an empty manager.
func NewBatchOperationManager() *BatchOperationManager {
	return &BatchOperationManager{}
}

// Enqueue adds an operation to the pending queue.
func (m *BatchOperationManager) Enqueue(op models.BatchOperation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = append(m.pending, op)
}

// PendingCount returns the number of queued operations.
func (m *BatchOperationManager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// ProcessBatch drains the queue through processor. If a drain is
// already in progress the call returns false immediately without
// invoking the processor (idempotent skip, not an error). An empty
// queue drains trivially with no processor call.
func (m *BatchOperationManager) ProcessBatch(processor BatchProcessor) (bool, error) {
	if !m.processing.CompareAndSwap(false, true) {
		return false, nil
	}
	defer m.processing.Store(false)

	m.mu.Lock()
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(batch) == 0 {
		return true, nil
	}
	return true, processor(batch)
}
