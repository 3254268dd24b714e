package queue

import (
	"sync"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

// WindowQueue is a bounded in-memory queue of sealed windows that preserves
// sealing order.
type WindowQueue struct {
	mu   sync.Mutex
	data []*domain.Window
	cap  int
}

func NewWindowQueue(capacity int) *WindowQueue {
	return &WindowQueue{
		data: make([]*domain.Window, 0, capacity),
		cap:  capacity,
	}
}

func (q *WindowQueue) Enqueue(w *domain.Window) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, w)
	return true
}

func (q *WindowQueue) DequeueBatch(max int) []*domain.Window {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]*domain.Window, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *WindowQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.WindowQueue = (*WindowQueue)(nil)

// AlertQueue is the bounded FIFO buffer between the journal and dispatch.
type AlertQueue struct {
	mu   sync.Mutex
	data []ports.QueuedAlert
	cap  int
}

func NewAlertQueue(capacity int) *AlertQueue {
	return &AlertQueue{
		data: make([]ports.QueuedAlert, 0, capacity),
		cap:  capacity,
	}
}

func (q *AlertQueue) Enqueue(id ports.JournalEntryID, a *domain.Alert) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) >= q.cap {
		return false
	}
	q.data = append(q.data, ports.QueuedAlert{ID: id, Alert: a})
	return true
}

func (q *AlertQueue) DequeueBatch(max int) []ports.QueuedAlert {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.data) == 0 {
		return nil
	}
	if max <= 0 || max > len(q.data) {
		max = len(q.data)
	}
	out := make([]ports.QueuedAlert, max)
	copy(out, q.data[:max])
	q.data = append(q.data[:0], q.data[max:]...)
	return out
}

func (q *AlertQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.data)
}

var _ ports.AlertQueue = (*AlertQueue)(nil)
