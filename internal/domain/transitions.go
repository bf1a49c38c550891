package domain

// transitions maps (current status, actor role) to the statuses that actor may
// set. Customers never advance fulfillment states; only the bakery operator
// does. Only the customer may mark final delivery, since it models a physical
// handoff the operator cannot observe.
var transitions = map[OrderStatus]map[Role][]OrderStatus{
	OrderPending: {
		RoleAdmin:    {OrderConfirmed, OrderCancelled},
		RoleCustomer: {OrderCancelled},
	},
	OrderConfirmed: {
		RoleAdmin: {OrderPreparing, OrderCancelled},
	},
	OrderPreparing: {
		RoleAdmin: {OrderOutForDelivery, OrderCancelled},
	},
	OrderOutForDelivery: {
		RoleAdmin:    {OrderCancelled},
		RoleCustomer: {OrderDelivered},
	},
	OrderDelivered: {},
	OrderCancelled: {},
}

// ValidTransitions returns the statuses the given role may move an order to
// from the given status. Empty for terminal states and for roles with no
// permitted moves.
func ValidTransitions(from OrderStatus, role Role) []OrderStatus {
	byRole, ok := transitions[from]
	if !ok {
		return nil
	}
	return byRole[role]
}

// CanTransition reports whether role may move an order from one status to
// another. Both enforcement paths (admin status updates and the customer's
// cancel / confirm-delivery actions) consult this single table.
func CanTransition(from OrderStatus, role Role, to OrderStatus) bool {
	for _, s := range ValidTransitions(from, role) {
		if s == to {
			return true
		}
	}
	return false
}
