package steps

// OrderProcessKind is the definition key of the order fulfilment process.
const OrderProcessKind = "order_process"

// OrderProcess returns the built-in sequence for the order fulfilment process.
func OrderProcess() Sequence {
	return Sequence{
		ProcessKind: OrderProcessKind,
		Steps: []StepDefinition{
			{ID: "StartEvent_OrderPlaced", Name: "Order Placed", Kind: KindStart},
			{ID: "ServiceTask_ValidateOrder", Name: "Validate Order", Kind: KindServiceTask},
			{ID: "UserTask_ReviewOrder", Name: "Review Order", Kind: KindUserTask},
			{ID: "Gateway_OrderApproved", Name: "Order Approved?", Kind: KindGateway},
			{ID: "ServiceTask_ProcessPayment", Name: "Process Payment", Kind: KindServiceTask},
			{ID: "UserTask_PaymentApproval", Name: "Approve Payment", Kind: KindUserTask},
			{ID: "UserTask_PrepareShipping", Name: "Prepare Shipping", Kind: KindUserTask},
			{ID: "ServiceTask_ShipOrder", Name: "Ship Order", Kind: KindServiceTask},
			{ID: "UserTask_ConfirmDelivery", Name: "Confirm Delivery", Kind: KindUserTask},
			{ID: "EndEvent_OrderCompleted", Name: "Order Completed", Kind: KindEnd},
		},
	}
}
