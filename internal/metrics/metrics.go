// Package metrics defines the ledger's instrumentation points. Backends such
// as Prometheus implement Collector; NoOpCollector is the default.
package metrics

import "time"

// Outcomes of a posting attempt.
const (
	OutcomeApplied           = "applied"
	OutcomeDuplicate         = "duplicate"
	OutcomeInsufficientFunds = "insufficient_funds"
	OutcomeInvalid           = "invalid"
	OutcomeError             = "error"
)

// Collector receives ledger events.
type Collector interface {
	// Postings
	RecordTransaction(txnType, outcome string, duration time.Duration)
	RecordRetry()
	RecordDeletion()

	// Imports
	RecordImport(created, skipped, invalid int, duration time.Duration)
}

// NoOpCollector discards everything.
type NoOpCollector struct{}

func (NoOpCollector) RecordTransaction(txnType, outcome string, duration time.Duration) {}

func (NoOpCollector) RecordRetry() {}

func (NoOpCollector) RecordDeletion() {}

func (NoOpCollector) RecordImport(created, skipped, invalid int, duration time.Duration) {}
