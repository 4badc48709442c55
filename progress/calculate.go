package progress

import (
	"math"

	"github.com/nomis52/taskboard/steps"
)

// Percentage returns the completion percentage of a classified snapshot.
// An ended instance is always 100 regardless of how many steps completed.
func Percentage(c Classification, seq steps.Sequence, isEnded bool) int {
	if isEnded {
		return 100
	}
	total := seq.Len()
	if total == 0 {
		return 0
	}

	done := 0
	for _, id := range seq.IDs() {
		if c.IsCompleted(id) {
			done++
		}
	}

	pct := int(math.Round(100 * float64(done) / float64(total)))
	return min(max(pct, 0), 100)
}

// StepStatuses returns the status of every step of seq in registry order.
// Completed takes precedence over active.
func StepStatuses(c Classification, seq steps.Sequence) []StepProgress {
	out := make([]StepProgress, 0, seq.Len())
	for _, st := range seq.Steps {
		status := StatusPending
		switch {
		case c.IsCompleted(st.ID):
			status = StatusCompleted
		case c.IsActive(st.ID):
			status = StatusActive
		}
		out = append(out, StepProgress{Step: st, Status: status})
	}
	return out
}

// Compute derives the full Progress of snap against seq.
func Compute(seq steps.Sequence, snap Snapshot) Progress {
	c := Classify(snap, seq)
	statuses := StepStatuses(c, seq)

	perStep := make(map[string]StepStatus, len(statuses))
	for _, sp := range statuses {
		perStep[sp.Step.ID] = sp.Status
	}

	return Progress{
		PerStep:     perStep,
		Steps:       statuses,
		CurrentStep: ResolveCurrentStep(snap, seq),
		Percentage:  Percentage(c, seq, snap.IsEnded),
	}
}
