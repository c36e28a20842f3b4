// Package migration holds the bookkeeping types of one migration run.
package migration

import (
	"fmt"
	"time"
)

// Mode is the paging strategy used to export the source index.
type Mode string

// Paging modes.
const (
	// ModeCursor pages by "key greater than last key", ordered by key.
	ModeCursor Mode = "cursor"
	// ModeBounded pages by offset through a result set capped at a maximum record count.
	ModeBounded Mode = "bounded"
)

// Reason classifies why a document was not migrated.
type Reason string

// Failure reasons.
const (
	ReasonEnrich Reason = "enrich"
	ReasonUpload Reason = "upload"
	ReasonPage   Reason = "page"
)

// Failure is one document that did not reach the target index.
type Failure struct {
	Key     string `json:"key"`
	Reason  Reason `json:"reason"`
	Message string `json:"message"`
}

// Page summarizes one exported, enriched and uploaded page.
type Page struct {
	Seq       int           `json:"seq"`
	Size      int           `json:"size"`
	Processed int           `json:"processed"`
	Failed    int           `json:"failed"`
	LastKey   string        `json:"last_key,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Dropped returns how many documents the target did not report on.
func (p Page) Dropped() int {
	if n := p.Size - p.Processed; n > 0 {
		return n
	}
	return 0
}

// Report is the outcome of one run.
type Report struct {
	RunID       string    `json:"run_id"`
	SourceIndex string    `json:"source_index"`
	TargetIndex string    `json:"target_index"`
	Mode        Mode      `json:"mode"`
	SourceCount int64     `json:"source_count"`
	Pages       int       `json:"pages"`
	Processed   int       `json:"processed"`
	Failures    []Failure `json:"failures,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Failed returns the number of failed documents.
func (r *Report) Failed() int { return len(r.Failures) }

// FailedKeys returns the keys of failed documents in failure order.
func (r *Report) FailedKeys() []string {
	keys := make([]string, len(r.Failures))
	for i, f := range r.Failures {
		keys[i] = f.Key
	}
	return keys
}

// AddPage folds a page summary and its failures into the report.
func (r *Report) AddPage(p Page, failures []Failure) {
	r.Pages++
	r.Processed += p.Processed
	r.Failures = append(r.Failures, failures...)
}

// String renders a one-line summary.
func (r *Report) String() string {
	return fmt.Sprintf("run %s: %s -> %s (%s): %d pages, %d processed, %d failed",
		r.RunID, r.SourceIndex, r.TargetIndex, r.Mode, r.Pages, r.Processed, r.Failed())
}
