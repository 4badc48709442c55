// Package steps holds the canonical, ordered step sequences of the process
// definitions the dashboard knows how to display.
//
// A Registry is built once at startup and never mutated afterwards. The order
// of a Sequence is the display order used for the step flow and the
// completion percentage; the engine alone decides the real execution order.
//
//	reg, err := steps.NewRegistry(steps.OrderProcess())
//	if err != nil {
//	    return err // duplicate ids are fatal at startup
//	}
//	seq, err := reg.DefinitionFor("order_process")
package steps

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrUnknownProcessKind is returned when no sequence is registered for a process kind.
	ErrUnknownProcessKind = errors.New("unknown process kind")
	// ErrDuplicateStepID is returned when a sequence contains the same step id twice.
	ErrDuplicateStepID = errors.New("duplicate step id")
	// ErrDuplicateProcessKind is returned when two sequences share a process kind.
	ErrDuplicateProcessKind = errors.New("duplicate process kind")
)

// StepDefinition is one node of a process definition.
type StepDefinition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
	// Synthetic is set on steps that were built from an engine record whose
	// activity id is not part of the registered sequence.
	Synthetic bool `json:"synthetic,omitempty"`
}

// Sequence is the ordered list of steps for one process kind.
type Sequence struct {
	ProcessKind string
	Steps       []StepDefinition
}

// Len returns the number of steps in the sequence.
func (s Sequence) Len() int {
	return len(s.Steps)
}

// IDs returns the step ids in sequence order.
func (s Sequence) IDs() []string {
	ids := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		ids[i] = st.ID
	}
	return ids
}

// Lookup returns the step with the given id.
func (s Sequence) Lookup(id string) (StepDefinition, bool) {
	for _, st := range s.Steps {
		if st.ID == id {
			return st, true
		}
	}
	return StepDefinition{}, false
}

// Contains reports whether id is a step of the sequence.
func (s Sequence) Contains(id string) bool {
	_, ok := s.Lookup(id)
	return ok
}

func (s Sequence) clone() Sequence {
	out := Sequence{ProcessKind: s.ProcessKind, Steps: make([]StepDefinition, len(s.Steps))}
	copy(out.Steps, s.Steps)
	return out
}

func (s Sequence) validate() error {
	if strings.TrimSpace(s.ProcessKind) == "" {
		return errors.New("process kind is required")
	}
	seen := make(map[string]bool, len(s.Steps))
	for i, st := range s.Steps {
		if st.ID == "" {
			return fmt.Errorf("process %q: step %d has no id", s.ProcessKind, i)
		}
		if seen[st.ID] {
			return fmt.Errorf("process %q: %w %q", s.ProcessKind, ErrDuplicateStepID, st.ID)
		}
		seen[st.ID] = true
	}
	return nil
}

// Registry maps process kinds to their step sequences.
type Registry struct {
	sequences map[string]Sequence
}

// NewRegistry validates the given sequences and builds a Registry from them.
// All validation problems are reported together.
func NewRegistry(seqs ...Sequence) (*Registry, error) {
	r := &Registry{sequences: make(map[string]Sequence, len(seqs))}

	var errs []error
	for _, seq := range seqs {
		if err := seq.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, exists := r.sequences[seq.ProcessKind]; exists {
			errs = append(errs, fmt.Errorf("%w %q", ErrDuplicateProcessKind, seq.ProcessKind))
			continue
		}
		r.sequences[seq.ProcessKind] = seq.clone()
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return r, nil
}

// DefinitionFor returns the step sequence registered for processKind.
// The returned Sequence is a copy and may be modified by the caller.
func (r *Registry) DefinitionFor(processKind string) (Sequence, error) {
	seq, ok := r.sequences[processKind]
	if !ok {
		return Sequence{}, fmt.Errorf("%w %q", ErrUnknownProcessKind, processKind)
	}
	return seq.clone(), nil
}

// ProcessKinds returns the registered process kinds in sorted order.
func (r *Registry) ProcessKinds() []string {
	kinds := make([]string, 0, len(r.sequences))
	for k := range r.sequences {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// ProcessKindFromDefinitionID extracts the definition key from an engine
// process definition id such as "order_process:3:8f2c...".
func ProcessKindFromDefinitionID(definitionID string) string {
	key, _, _ := strings.Cut(definitionID, ":")
	return key
}
