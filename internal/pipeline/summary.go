package pipeline

import (
	"sort"
	"time"

	"go.uber.org/zap"
)

// Summary reports what a run produced and what it left out.
type Summary struct {
	RunID string

	Points      int64 // node rows
	Paths       int64 // way rows
	Annotations int64 // tag rows across both kinds
	ChildRefs   int64 // way node rows

	// Skipped counts whole elements left out, keyed by reason.
	Skipped map[string]int64
	// Dropped counts tags left out for problem characters in their key.
	Dropped int64
	// Malformed counts tags left out because their value could not be
	// corrected or they had no key.
	Malformed int64

	Duration time.Duration
}

func newSummary(runID string) *Summary {
	return &Summary{RunID: runID, Skipped: make(map[string]int64)}
}

// SkippedTotal is the number of elements that produced no rows.
func (s *Summary) SkippedTotal() int64 {
	var n int64
	for _, c := range s.Skipped {
		n += c
	}
	return n
}

// Fields renders the summary as log fields.
func (s *Summary) Fields() []zap.Field {
	fields := []zap.Field{
		zap.Int64("points", s.Points),
		zap.Int64("paths", s.Paths),
		zap.Int64("annotations", s.Annotations),
		zap.Int64("child_refs", s.ChildRefs),
		zap.Int64("skipped", s.SkippedTotal()),
		zap.Int64("dropped_tags", s.Dropped),
		zap.Int64("malformed_tags", s.Malformed),
		zap.Duration("duration", s.Duration),
	}
	reasons := make([]string, 0, len(s.Skipped))
	for r := range s.Skipped {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		fields = append(fields, zap.Int64("skipped_"+r, s.Skipped[r]))
	}
	return fields
}
