package driftdetect

import (
	"github.com/espirado/model-drift-detection/internal/domain"
	"github.com/espirado/model-drift-detection/internal/ports"
)

// PipelineSample is the record shape that flows through the windowing
// pipeline. It mirrors Sample but is the internal pointer-friendly form
// custom adapters can reference.
type PipelineSample = domain.Sample

// Window is a sealed time bucket with frozen aggregate statistics.
type Window = domain.Window

// ReferenceSet is the immutable per-feature baseline collection.
type ReferenceSet = domain.ReferenceSet

// WindowQueue is the bounded queue that decouples sealing from evaluation.
type WindowQueue = ports.WindowQueue

// AlertQueue buffers journaled alerts awaiting dispatch.
type AlertQueue = ports.AlertQueue

// QueuedAlert is one journaled alert buffered for dispatch.
type QueuedAlert = ports.QueuedAlert

// AlertSink consumes batches of emitted alerts.
type AlertSink = ports.AlertSink

// RecordsSink receives every drift metric and change point for dashboards.
type RecordsSink = ports.RecordsSink

// Observability emits metrics/logs about throughput, latency, and drops.
type Observability = ports.Observability

// Field is a structured log/metric field used by Observability implementations.
type Field = ports.Field

// Journal abstracts the alert log used for crash recovery of undelivered alerts.
type Journal = ports.Journal

// JournalStats exposes journal metadata for observability.
type JournalStats = ports.JournalStats

// JournalEntryID uniquely identifies a journal entry.
type JournalEntryID = ports.JournalEntryID
