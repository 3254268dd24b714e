package queue

import (
	"sync"
	"testing"
	"time"

	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

func windowWithSeq(seq int64) *domain.Window {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	w := domain.NewWindow(start, start.Add(time.Minute))
	w.Seq = seq
	return w
}

func TestWindowQueueFIFO(t *testing.T) {
	q := NewWindowQueue(8)

	for seq := int64(1); seq <= 5; seq++ {
		if !q.Enqueue(windowWithSeq(seq)) {
			t.Fatalf("enqueue %d failed", seq)
		}
	}
	if q.Len() != 5 {
		t.Fatalf("expected length 5, got %d", q.Len())
	}

	batch := q.DequeueBatch(3)
	if len(batch) != 3 {
		t.Fatalf("expected batch of 3, got %d", len(batch))
	}
	for i, w := range batch {
		if w.Seq != int64(i+1) {
			t.Fatalf("order violated: position %d holds seq %d", i, w.Seq)
		}
	}

	rest := q.DequeueBatch(0) // non-positive max drains everything
	if len(rest) != 2 || rest[0].Seq != 4 {
		t.Fatalf("unexpected remainder %v", rest)
	}
	if q.DequeueBatch(10) != nil {
		t.Fatalf("empty queue must return nil")
	}
}

func TestWindowQueueBounded(t *testing.T) {
	q := NewWindowQueue(2)

	if !q.Enqueue(windowWithSeq(1)) || !q.Enqueue(windowWithSeq(2)) {
		t.Fatalf("fill failed")
	}
	if q.Enqueue(windowWithSeq(3)) {
		t.Fatalf("enqueue beyond capacity must fail")
	}
	q.DequeueBatch(1)
	if !q.Enqueue(windowWithSeq(3)) {
		t.Fatalf("enqueue after dequeue should succeed")
	}
}

func TestAlertQueuePairsIDs(t *testing.T) {
	q := NewAlertQueue(4)

	for i := 1; i <= 3; i++ {
		ok := q.Enqueue(ports.JournalEntryID(i), &domain.Alert{ID: "a", WindowSeq: int64(i)})
		if !ok {
			t.Fatalf("enqueue %d failed", i)
		}
	}

	batch := q.DequeueBatch(10)
	if len(batch) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(batch))
	}
	for i, qa := range batch {
		if qa.ID != ports.JournalEntryID(i+1) {
			t.Fatalf("journal id order violated at %d: %d", i, qa.ID)
		}
		if qa.Alert.WindowSeq != int64(i+1) {
			t.Fatalf("alert order violated at %d", i)
		}
	}
}

func TestWindowQueueConcurrentAccess(t *testing.T) {
	q := NewWindowQueue(1024)
	var wg sync.WaitGroup

	for p := 0; p < 4; p++ {
		wg.Add(1)
		go func(base int64) {
			defer wg.Done()
			for i := int64(0); i < 100; i++ {
				q.Enqueue(windowWithSeq(base*1000 + i))
			}
		}(int64(p))
	}
	wg.Wait()

	total := 0
	for {
		batch := q.DequeueBatch(32)
		if batch == nil {
			break
		}
		total += len(batch)
	}
	if total != 400 {
		t.Fatalf("lost or duplicated windows: %d of 400", total)
	}
}
