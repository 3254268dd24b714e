package ports

import "github.com/espirado/model-drift-detection/internal/domain"

// WindowQueue is the bounded hand-off between the sealing side and the
// evaluation side. FIFO order is part of the contract: the alert state
// machine depends on windows arriving in sealing order.
type WindowQueue interface {
	Enqueue(w *domain.Window) bool
	DequeueBatch(max int) []*domain.Window
	Len() int
}

// QueuedAlert pairs an alert with its journal position so dispatch can
// commit the journal once the sink acknowledges.
type QueuedAlert struct {
	ID    JournalEntryID
	Alert *domain.Alert
}

// AlertQueue buffers journaled alerts awaiting dispatch.
type AlertQueue interface {
	Enqueue(id JournalEntryID, a *domain.Alert) bool
	DequeueBatch(max int) []QueuedAlert
	Len() int
}
