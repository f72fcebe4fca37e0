package domain

import (
	"fmt"
	"strings"
	"time"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodBankTransfer PaymentMethod = "bank-transfer"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentMethodCard || m == PaymentMethodBankTransfer
}

type ShippingAddress struct {
	Name       string `json:"name" bson:"name"`
	Email      string `json:"email" bson:"email"`
	Phone      string `json:"phone" bson:"phone"`
	Address    string `json:"address" bson:"address"`
	City       string `json:"city" bson:"city"`
	PostalCode string `json:"postalCode" bson:"postalCode"`
}

// Normalize trims surrounding whitespace from every field.
func (a ShippingAddress) Normalize() ShippingAddress {
	return ShippingAddress{
		Name:       strings.TrimSpace(a.Name),
		Email:      strings.TrimSpace(a.Email),
		Phone:      strings.TrimSpace(a.Phone),
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
	}
}

func (a ShippingAddress) Validate() error {
	fields := []struct {
		name  string
		value string
	}{
		{"name", a.Name},
		{"email", a.Email},
		{"phone", a.Phone},
		{"address", a.Address},
		{"city", a.City},
		{"postalCode", a.PostalCode},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return NewValidationErrorf("shipping address is missing: %s", strings.Join(missing, ", "))
	}
	return nil
}

type Order struct {
	ID              string          `json:"id" bson:"_id"`
	UserID          string          `json:"userId" bson:"userId"`
	Date            time.Time       `json:"date" bson:"date"`
	Items           []CartItem      `json:"items" bson:"items"`
	Subtotal        int64           `json:"subtotal" bson:"subtotal"`
	Shipping        int64           `json:"shipping" bson:"shipping"`
	Tax             int64           `json:"tax" bson:"tax"`
	Total           int64           `json:"total" bson:"total"`
	Status          OrderStatus     `json:"status" bson:"status"`
	ShippingAddress ShippingAddress `json:"shippingAddress" bson:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" bson:"paymentMethod"`
	TrackingNumber  string          `json:"trackingNumber,omitempty" bson:"trackingNumber,omitempty"`
	PaymentKey      string          `json:"paymentKey,omitempty" bson:"paymentKey,omitempty"`
	Revision        int64           `json:"revision" bson:"revision"`
	CreatedAt       time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt" bson:"updatedAt"`
}

// NewOrder freezes cart into a pending order. The cart is not modified and the
// returned order shares no memory with it.
func NewOrder(id, userID string, now time.Time, cart *Cart, addr ShippingAddress, method PaymentMethod) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, ErrNoItems
	}
	addr = addr.Normalize()
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if !method.Valid() {
		return nil, ErrInvalidPayment
	}

	items := cart.Items()
	for _, item := range items {
		if item.Quantity > MaxQuantity {
			return nil, ErrQuantityTooLarge
		}
	}
	if err := CheckAmounts(items); err != nil {
		return nil, err
	}

	totals := cart.Totals()
	now = now.UTC()
	return &Order{
		ID:              id,
		UserID:          userID,
		Date:            now,
		Items:           items,
		Subtotal:        totals.Subtotal,
		Shipping:        totals.Shipping,
		Tax:             totals.Tax,
		Total:           totals.Total,
		Status:          OrderStatusPending,
		ShippingAddress: addr,
		PaymentMethod:   method,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// ApplyStatus moves the order to status under policy. Shipping an order
// without a tracking number assigns one from newTracking; an existing
// tracking number is kept.
func (o *Order) ApplyStatus(status OrderStatus, policy TransitionPolicy, newTracking func() string, now time.Time) error {
	if !status.Valid() {
		return ErrInvalidStatus
	}
	if !policy.Allows(o.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.Status, status)
	}
	o.Status = status
	if status == OrderStatusShipped && o.TrackingNumber == "" {
		o.TrackingNumber = newTracking()
	}
	o.UpdatedAt = now.UTC()
	return nil
}

// AttachPaymentKey records the provider key of an authorized card payment.
func (o *Order) AttachPaymentKey(key string, now time.Time) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrPaymentKeyRequired
	}
	if o.PaymentMethod != PaymentMethodCard {
		return ErrPaymentKeyNotCard
	}
	o.PaymentKey = key
	o.UpdatedAt = now.UTC()
	return nil
}

// Clone returns a deep copy of o.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = make([]CartItem, len(o.Items))
	copy(c.Items, o.Items)
	return &c
}

// Line is a requested order line before prices are resolved.
type Line struct {
	ArtworkID int64 `json:"artwork"`
	Quantity  int   `json:"quantity"`
}
