package progress

import "github.com/nomis52/taskboard/steps"

// Classification partitions the records of a snapshot by activity id.
//
// An id may appear in both Completed and Active, for example after a loop back
// to an earlier step. Such a step counts as completed for the percentage and
// the per-step status, while the current step is still taken from the active
// record.
type Classification struct {
	// Completed holds every completed record of a registered step, keyed by id,
	// in the order received.
	Completed map[string][]ActivityRecord
	// Active holds every active record of a registered step, keyed by id.
	Active map[string][]ActivityRecord
	// Unregistered lists activity ids that are not part of the sequence, in
	// order of first appearance. They take no part in status or percentage.
	Unregistered []string
	// Mismatched lists activity ids whose record disagrees with the list it
	// came in: a completed record without an end time or an active record with
	// one. The list still decides the classification.
	Mismatched []string
}

// IsCompleted reports whether at least one completed record exists for id.
func (c Classification) IsCompleted(id string) bool {
	return len(c.Completed[id]) > 0
}

// IsActive reports whether at least one active record exists for id.
func (c Classification) IsActive(id string) bool {
	return len(c.Active[id]) > 0
}

// Classify projects the activity ids of snap onto the steps of seq.
// It never fails: records for ids outside seq are only reported in
// Unregistered.
func Classify(snap Snapshot, seq steps.Sequence) Classification {
	registered := make(map[string]bool, seq.Len())
	for _, id := range seq.IDs() {
		registered[id] = true
	}

	c := Classification{
		Completed: make(map[string][]ActivityRecord),
		Active:    make(map[string][]ActivityRecord),
	}
	seenUnregistered := make(map[string]bool)
	seenMismatched := make(map[string]bool)

	add := func(into map[string][]ActivityRecord, records []ActivityRecord, completed bool) {
		for _, rec := range records {
			if rec.Completed() != completed && !seenMismatched[rec.ActivityID] {
				seenMismatched[rec.ActivityID] = true
				c.Mismatched = append(c.Mismatched, rec.ActivityID)
			}
			if !registered[rec.ActivityID] {
				if !seenUnregistered[rec.ActivityID] {
					seenUnregistered[rec.ActivityID] = true
					c.Unregistered = append(c.Unregistered, rec.ActivityID)
				}
				continue
			}
			into[rec.ActivityID] = append(into[rec.ActivityID], rec)
		}
	}
	add(c.Completed, snap.CompletedActivities, true)
	add(c.Active, snap.ActiveActivities, false)

	return c
}
