package taskvars

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuild_ReviewOrder(t *testing.T) {
	raw := map[string]any{"reviewApproved": "true", "reviewComments": "ok"}

	got := Build(ReviewOrder, raw)

	assert.Equal(t, true, got["reviewApproved"])
	assert.Equal(t, "ok", got["reviewComments"])
	// raw input untouched
	assert.Equal(t, "true", raw["reviewApproved"])
}

func TestBuild_UnknownKeyIsIdentity(t *testing.T) {
	raw := map[string]any{"reviewApproved": "true", "anything": 42, "empty": ""}

	got := Build("UserTask_SomethingNew", raw)

	assert.Equal(t, raw, got)
	got["anything"] = 0
	assert.Equal(t, 42, raw["anything"], "result must be a copy")
}

func TestBuild_NilInput(t *testing.T) {
	assert.Equal(t, map[string]any{}, Build("unknown", nil))
	assert.Equal(t, map[string]any{"reviewApproved": false}, Build(ReviewOrder, nil))
}

func TestBuild_Table(t *testing.T) {
	tests := []struct {
		name string
		key  string
		raw  map[string]any
		want map[string]any
	}{
		{
			name: "review rejected",
			key:  ReviewOrder,
			raw:  map[string]any{"reviewApproved": "false"},
			want: map[string]any{"reviewApproved": false},
		},
		{
			name: "review bool input",
			key:  ReviewOrder,
			raw:  map[string]any{"reviewApproved": true},
			want: map[string]any{"reviewApproved": true},
		},
		{
			name: "review case sensitive",
			key:  ReviewOrder,
			raw:  map[string]any{"reviewApproved": "TRUE"},
			want: map[string]any{"reviewApproved": false},
		},
		{
			name: "review missing decision",
			key:  ReviewOrder,
			raw:  map[string]any{"reviewComments": "later"},
			want: map[string]any{"reviewApproved": false, "reviewComments": "later"},
		},
		{
			name: "review empty comments dropped",
			key:  ReviewOrder,
			raw:  map[string]any{"reviewApproved": "true", "reviewComments": ""},
			want: map[string]any{"reviewApproved": true},
		},
		{
			name: "payment approved keeps other fields",
			key:  PaymentApproval,
			raw:  map[string]any{"paymentApproved": "true", "paymentComments": "fine", "orderId": float64(7)},
			want: map[string]any{"paymentApproved": true, "paymentComments": "fine", "orderId": float64(7)},
		},
		{
			name: "payment numeric is not truthy",
			key:  PaymentApproval,
			raw:  map[string]any{"paymentApproved": 1},
			want: map[string]any{"paymentApproved": false},
		},
		{
			name: "shipping always prepared",
			key:  PrepareShipping,
			raw:  map[string]any{"trackingNumber": "TRACK-1"},
			want: map[string]any{"shippingPrepared": true, "trackingNumber": "TRACK-1"},
		},
		{
			name: "shipping ignores input flag",
			key:  PrepareShipping,
			raw:  map[string]any{"shippingPrepared": "false"},
			want: map[string]any{"shippingPrepared": true},
		},
		{
			name: "delivery nil notes dropped",
			key:  ConfirmDelivery,
			raw:  map[string]any{"deliveryNotes": nil},
			want: map[string]any{"deliveryConfirmed": true},
		},
		{
			name: "falsy optional values kept",
			key:  ConfirmDelivery,
			raw:  map[string]any{"deliveryNotes": false, "trackingNumber": float64(0)},
			want: map[string]any{"deliveryConfirmed": true, "deliveryNotes": false, "trackingNumber": float64(0)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Build(tt.key, tt.raw))
		})
	}
}

func TestBuilder_CustomEntry(t *testing.T) {
	table := DefaultTable().Merge(Table{
		"UserTask_Escalate": {Decision: "escalated", Optional: []string{"reason"}},
	})
	b := NewBuilder(table)

	assert.True(t, b.Knows("UserTask_Escalate"))
	assert.True(t, b.Knows(ReviewOrder))
	assert.False(t, b.Knows("nope"))

	got := b.Build("UserTask_Escalate", map[string]any{"escalated": "true", "reason": "vip"})
	assert.Equal(t, map[string]any{"escalated": true, "reason": "vip"}, got)
}

func TestNewBuilder_CopiesTable(t *testing.T) {
	table := Table{"k": {Decision: "d", Optional: []string{"o"}}}
	b := NewBuilder(table)

	table["k"].Optional[0] = "changed"
	delete(table, "k")

	assert.True(t, b.Knows("k"))
	got := b.Build("k", map[string]any{"o": ""})
	assert.Equal(t, map[string]any{"d": false}, got)
}

func TestTable_Merge(t *testing.T) {
	base := DefaultTable()
	merged := base.Merge(Table{ReviewOrder: {Decision: "approved"}})

	assert.Equal(t, "approved", merged[ReviewOrder].Decision)
	assert.Equal(t, "reviewApproved", base[ReviewOrder].Decision)
	assert.Equal(t, []string{ConfirmDelivery, PaymentApproval, PrepareShipping, ReviewOrder}, merged.Keys())
}
