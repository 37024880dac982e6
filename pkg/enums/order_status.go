package enums

// OrderStatus tracks a work order through its field lifecycle.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusAssigned         OrderStatus = "assigned"
	OrderStatusInProgress       OrderStatus = "in_progress"
	OrderStatusCompleted        OrderStatus = "completed"
	OrderStatusFailed           OrderStatus = "failed"
	OrderStatusCancelledPayment OrderStatus = "cancelled_payment"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusAssigned, OrderStatusInProgress,
		OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelledPayment:
		return true
	}
	return false
}

// Terminal reports whether the status admits no further transitions.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed || s == OrderStatusCancelledPayment
}
