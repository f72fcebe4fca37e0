package domain

import "time"

type CardInfo struct {
	Company               string `json:"company"`
	Number                string `json:"number"`
	InstallmentPlanMonths int    `json:"installmentPlanMonths"`
}

// PaymentInfo is the provider's view of a payment, looked up by payment key.
type PaymentInfo struct {
	PaymentKey    string     `json:"paymentKey"`
	Method        string     `json:"method"`
	TotalAmount   int64      `json:"totalAmount"`
	BalanceAmount int64      `json:"balanceAmount"`
	Status        string     `json:"status"`
	RequestedAt   time.Time  `json:"requestedAt"`
	ApprovedAt    *time.Time `json:"approvedAt,omitempty"`
	Card          *CardInfo  `json:"card,omitempty"`
}

// OrderView is an order with its optional payment panel.
type OrderView struct {
	Order   *Order       `json:"order"`
	Payment *PaymentInfo `json:"payment,omitempty"`
}
