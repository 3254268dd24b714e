package ports

import "github.com/espirado/model-drift-detection/internal/domain"

type JournalEntryID uint64

// Journal persists emitted alerts before dispatch so a restart replays
// anything the sink never acknowledged.
type Journal interface {
	Append(a *domain.Alert) (JournalEntryID, error)
	Iterate(from JournalEntryID, fn func(id JournalEntryID, a *domain.Alert) error) error
	Commit(upto JournalEntryID) error
	Stats() JournalStats
}

type JournalStats struct {
	OldestUncommitted JournalEntryID
	LatestAppended    JournalEntryID
	SizeBytes         int64
}
