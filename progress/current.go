package progress

import "github.com/nomis52/taskboard/steps"

// ResolveCurrentStep picks the step an operator should look at.
//
// The first active record wins, in the order the engine reported them, so
// that parallel branches keep the engine's notion of relevance. Without
// active records the most recently completed record is used. A nil result
// means the instance has not started.
//
// Ids outside seq resolve to a synthetic step carrying the raw id and name.
func ResolveCurrentStep(snap Snapshot, seq steps.Sequence) *steps.StepDefinition {
	var rec ActivityRecord
	switch {
	case len(snap.ActiveActivities) > 0:
		rec = snap.ActiveActivities[0]
	case len(snap.CompletedActivities) > 0:
		rec = snap.CompletedActivities[len(snap.CompletedActivities)-1]
	default:
		return nil
	}

	if st, ok := seq.Lookup(rec.ActivityID); ok {
		return &st
	}
	return &steps.StepDefinition{
		ID:        rec.ActivityID,
		Name:      rec.ActivityName,
		Kind:      steps.KindFromActivityType(rec.ActivityType),
		Synthetic: true,
	}
}
