// Package orchestrator wires the frame source, scheduler and capture processor
package orchestrator

import "time"

// Orchestrator configuration constants
const (
	// Recent results kept in memory
	ResultsMaxEntries  = 50
	ResultsEventBuffer = 16

	// History batcher configuration
	HistoryBatchSize  = 16
	HistoryFlushDelay = 2 * time.Second

	// Source restarts after SOURCE_FAILED errors
	SourceMaxRestarts  = 5
	SourceRestartDelay = time.Second
	SourceMaxDelay     = 30 * time.Second
)
