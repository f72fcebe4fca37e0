package domain

import (
	"encoding/json"
	"fmt"
)

const (
	FreeShippingThreshold int64 = 100000
	ShippingFee           int64 = 3000
	TaxPercent            int64 = 10

	// MaxQuantity caps the units of one artwork in a cart or order.
	MaxQuantity = 1000
	// MaxSubtotal keeps every derived amount well inside int64.
	MaxSubtotal int64 = 1_000_000_000_000_000
)

// CartItem is one selected artwork. Price is in whole currency units.
type CartItem struct {
	ID       int64  `json:"id" bson:"artwork_id"`
	Title    string `json:"title" bson:"title"`
	Price    int64  `json:"price" bson:"price"`
	Image    string `json:"image" bson:"image"`
	Quantity int    `json:"quantity" bson:"quantity"`
}

// CheckAmounts reports ErrAmountTooLarge when pricing items would exceed
// MaxSubtotal. Quantities must already be within MaxQuantity.
func CheckAmounts(items []CartItem) error {
	var subtotal int64
	for _, item := range items {
		if item.Price < 0 || item.Quantity < 0 {
			return ErrAmountTooLarge
		}
		if item.Quantity > 0 && item.Price > (MaxSubtotal-subtotal)/int64(item.Quantity) {
			return ErrAmountTooLarge
		}
		subtotal += item.Price * int64(item.Quantity)
	}
	return nil
}

// Totals are the derived pricing fields of a set of items.
type Totals struct {
	Subtotal int64 `json:"subtotal" bson:"subtotal"`
	Shipping int64 `json:"shipping" bson:"shipping"`
	Tax      int64 `json:"tax" bson:"tax"`
	Total    int64 `json:"total" bson:"total"`
}

// ComputeTotals prices items. Tax is rounded half-up in integer arithmetic.
func ComputeTotals(items []CartItem) Totals {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}

	var shipping int64
	if subtotal > 0 && subtotal <= FreeShippingThreshold {
		shipping = ShippingFee
	}

	tax := (subtotal*TaxPercent + 50) / 100

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// CartState is the read-only view of a cart.
type CartState struct {
	Items []CartItem `json:"items"`
	Totals
	IsOpen bool `json:"isOpen"`
}

// Cart is the session-scoped cart aggregate. Items are only reachable through
// the mutators below so totals can never drift from them.
type Cart struct {
	items  []CartItem
	totals Totals
	open   bool
}

func NewCart() *Cart {
	return &Cart{items: []CartItem{}}
}

// NewCartFromItems builds a cart from already-priced items, merging duplicate
// ids and dropping lines with quantity outside 1..MaxQuantity. A merged
// quantity is capped at MaxQuantity.
func NewCartFromItems(items []CartItem) *Cart {
	c := NewCart()
	for _, item := range items {
		if item.Quantity < 1 || item.Quantity > MaxQuantity {
			continue
		}
		if i := c.indexOf(item.ID); i >= 0 {
			c.items[i].Quantity = min(c.items[i].Quantity+item.Quantity, MaxQuantity)
			continue
		}
		c.items = append(c.items, item)
	}
	c.recompute()
	return c
}

func (c *Cart) indexOf(id int64) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (c *Cart) recompute() {
	c.totals = ComputeTotals(c.items)
}

// AddItem increments the quantity of an existing id by one or appends the
// item with quantity one. The incoming quantity is ignored and an item already
// at MaxQuantity stays there.
func (c *Cart) AddItem(item CartItem) {
	if i := c.indexOf(item.ID); i >= 0 {
		if c.items[i].Quantity < MaxQuantity {
			c.items[i].Quantity++
		}
	} else {
		item.Quantity = 1
		c.items = append(c.items, item)
	}
	c.open = true
	c.recompute()
}

// RemoveItem deletes the item with id. Unknown ids are a no-op.
func (c *Cart) RemoveItem(id int64) {
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	c.recompute()
}

// SetQuantity replaces the quantity of id. Quantities below one or above
// MaxQuantity are ignored without mutating the cart; removal goes through
// RemoveItem.
func (c *Cart) SetQuantity(id int64, quantity int) {
	if quantity < 1 || quantity > MaxQuantity {
		return
	}
	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.items[i].Quantity = quantity
	c.recompute()
}

func (c *Cart) Clear() {
	c.items = []CartItem{}
	c.recompute()
}

func (c *Cart) SetOpen(open bool) {
	c.open = open
}

func (c *Cart) IsOpen() bool {
	return c.open
}

func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the items in insertion order.
func (c *Cart) Items() []CartItem {
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Totals() Totals {
	return c.totals
}

func (c *Cart) State() CartState {
	return CartState{
		Items:  c.Items(),
		Totals: c.totals,
		IsOpen: c.open,
	}
}

func (c *Cart) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.State())
}

// storedCart is the persisted shape. Totals are never persisted.
type storedCart struct {
	Items []CartItem `json:"items"`
}

// EncodeCart serialises the items of c for a session store.
func EncodeCart(c *Cart) ([]byte, error) {
	data, err := json.Marshal(storedCart{Items: c.items})
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

// DecodeCart restores a cart from a session store and recomputes its totals.
// A malformed representation yields an empty cart together with the error so
// callers can log it; it is never fatal.
func DecodeCart(data []byte) (*Cart, error) {
	var stored storedCart
	if err := json.Unmarshal(data, &stored); err != nil {
		return NewCart(), fmt.Errorf("unmarshal cart failed: %w", err)
	}
	return NewCartFromItems(stored.Items), nil
}
