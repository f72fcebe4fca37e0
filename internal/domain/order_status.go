package domain

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// TransitionPolicy decides whether an order may move from one status to another.
type TransitionPolicy interface {
	Allows(from, to OrderStatus) bool
}

// PermissivePolicy accepts any pair of valid statuses.
type PermissivePolicy struct{}

func (PermissivePolicy) Allows(from, to OrderStatus) bool {
	return to.Valid()
}

var strictTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusCancelled},
}

// StrictPolicy only follows the forward lifecycle. Re-applying the current
// status is always allowed.
type StrictPolicy struct{}

func (StrictPolicy) Allows(from, to OrderStatus) bool {
	if !to.Valid() {
		return false
	}
	if from == to {
		return true
	}
	for _, next := range strictTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func NewTransitionPolicy(strict bool) TransitionPolicy {
	if strict {
		return StrictPolicy{}
	}
	return PermissivePolicy{}
}
