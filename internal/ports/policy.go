package ports

import "time"

type Policy struct {
	MaxQueueLen     int           `yaml:"max_queue_len"`
	MaxJournalBytes int64         `yaml:"max_journal_bytes"`
	MaxBatchSize    int           `yaml:"max_batch_size"`
	IdleSleep       time.Duration `yaml:"idle_sleep"`

	OnQueueFull   string `yaml:"on_queue_full"`   // "block", "drop"
	OnJournalFull string `yaml:"on_journal_full"` // "block", "drop"
}
