package taskvars

import "maps"

// Builder turns raw form input into completion variables using a Table.
type Builder struct {
	table Table
}

// NewBuilder creates a Builder over a copy of table.
func NewBuilder(table Table) *Builder {
	return &Builder{table: Table{}.Merge(table)}
}

// Knows reports whether the builder has an entry for taskDefinitionKey.
func (b *Builder) Knows(taskDefinitionKey string) bool {
	_, ok := b.table[taskDefinitionKey]
	return ok
}

// Build returns the variables to submit for a task of type taskDefinitionKey.
//
// The raw input is copied, never modified. For an unknown key the copy is
// returned unchanged so completion is never blocked by a new task type. For a
// known key the decision variable is normalised to a bool and empty optional
// fields are dropped.
func (b *Builder) Build(taskDefinitionKey string, raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw)+1)
	maps.Copy(out, raw)

	entry, ok := b.table[taskDefinitionKey]
	if !ok {
		return out
	}

	if entry.Decision != "" {
		out[entry.Decision] = entry.Always || truthy(raw[entry.Decision])
	}
	for _, field := range entry.Optional {
		if v, present := raw[field]; present && empty(v) {
			delete(out, field)
		}
	}
	return out
}

var defaultBuilder = NewBuilder(DefaultTable())

// Build uses DefaultTable to build the variables for taskDefinitionKey.
func Build(taskDefinitionKey string, raw map[string]any) map[string]any {
	return defaultBuilder.Build(taskDefinitionKey, raw)
}

// truthy accepts exactly the string "true" or the bool true. Form selects
// post strings while API callers may post real booleans.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	default:
		return false
	}
}

// empty is true only for nil and "". Optional fields are free text, so false
// and 0 are real answers and are submitted as given.
func empty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}
