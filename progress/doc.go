// Package progress derives the execution progress of a process instance from
// the activity history reported by the engine.
//
// Everything in this package is pure: the same sequence and snapshot always
// produce the same Progress, and nothing is cached between calls.
//
//	seq, _ := registry.DefinitionFor("order_process")
//	p := progress.Compute(seq, snapshot)
//	fmt.Printf("%d%% current=%s\n", p.Percentage, p.CurrentStep.Name)
//
// # Classification
//
// Classify splits the records into completed and active sets keyed by
// activity id. A step present in both sets is completed for the percentage
// and the per-step status, but ResolveCurrentStep still lands on its live
// record. Ids that are not part of the sequence are ignored for status and
// percentage and never cause an error, so a newer process version with extra
// nodes still renders.
//
// # Percentage
//
// The percentage is the share of registered steps with at least one completed
// record, rounded to the nearest integer. An ended instance is always 100.
// Because only completed records contribute, the percentage never decreases
// while an instance's history grows.
package progress
