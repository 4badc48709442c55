// Package taskvars builds the variables submitted when an operator completes
// a task.
//
// Which variables a task contributes is decided by a Table keyed by task
// definition key. Adding a task type means adding an Entry; the building logic
// itself never branches on task keys.
package taskvars

import (
	"maps"
	"slices"
)

// Task definition keys of the order process user tasks.
const (
	ReviewOrder     = "UserTask_ReviewOrder"
	PaymentApproval = "UserTask_PaymentApproval"
	PrepareShipping = "UserTask_PrepareShipping"
	ConfirmDelivery = "UserTask_ConfirmDelivery"
)

// Entry describes the variables one task type contributes.
type Entry struct {
	// Decision is the boolean variable set on completion.
	Decision string `yaml:"decision" json:"decision"`
	// Always sets Decision to true whatever the input says.
	Always bool `yaml:"always" json:"always,omitempty"`
	// Optional fields are submitted only when present and non-empty.
	Optional []string `yaml:"optional" json:"optional,omitempty"`
}

// Table maps task definition keys to their entries.
type Table map[string]Entry

// DefaultTable returns the entries for the order process user tasks.
func DefaultTable() Table {
	return Table{
		ReviewOrder:     {Decision: "reviewApproved", Optional: []string{"reviewComments"}},
		PaymentApproval: {Decision: "paymentApproved", Optional: []string{"paymentComments"}},
		PrepareShipping: {Decision: "shippingPrepared", Always: true, Optional: []string{"trackingNumber"}},
		ConfirmDelivery: {Decision: "deliveryConfirmed", Always: true, Optional: []string{"deliveryNotes"}},
	}
}

// Merge returns a new table holding the entries of t overlaid with other.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, e := range t {
		out[k] = e.clone()
	}
	for k, e := range other {
		out[k] = e.clone()
	}
	return out
}

// Keys returns the task definition keys of the table in sorted order.
func (t Table) Keys() []string {
	return slices.Sorted(maps.Keys(t))
}

func (e Entry) clone() Entry {
	e.Optional = slices.Clone(e.Optional)
	return e
}
