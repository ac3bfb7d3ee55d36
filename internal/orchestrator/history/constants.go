// Package history batches capture results into the match history store
package history

import "time"

// History batcher defaults
const (
	DefaultBatcherMaxSize    = 16
	DefaultBatcherFlushDelay = 2 * time.Second
)
