package domain

import "time"

// StatusEvent is an audit record of one status change, published through the outbox.
type StatusEvent struct {
	ID             string      `json:"id" bson:"_id"`
	OrderID        string      `json:"orderId" bson:"orderId"`
	PreviousStatus OrderStatus `json:"previousStatus" bson:"previousStatus"`
	NewStatus      OrderStatus `json:"newStatus" bson:"newStatus"`
	Timestamp      time.Time   `json:"timestamp" bson:"timestamp"`
	Published      bool        `json:"-" bson:"published"`
}

// Sale is one line item of a recent order, flattened for the dashboard.
type Sale struct {
	OrderID  string    `json:"orderId"`
	Title    string    `json:"title"`
	Buyer    string    `json:"buyer"`
	Price    int64     `json:"price"`
	Quantity int       `json:"quantity"`
	Date     time.Time `json:"date"`
}

type DashboardStats struct {
	TotalArtworks int64 `json:"totalArtworks"`
	TotalSales    int64 `json:"totalSales"`
	TotalRevenue  int64 `json:"totalRevenue"`
	TotalVisitors int64 `json:"totalVisitors"`
}

// FlattenSales expands orders into line-item sales, keeping order sequence,
// and stops at limit. buyer names the purchaser of an order.
func FlattenSales(orders []*Order, limit int, buyer func(*Order) string) []Sale {
	if limit <= 0 {
		return []Sale{}
	}
	sales := make([]Sale, 0, limit)
	for _, o := range orders {
		for _, item := range o.Items {
			if len(sales) >= limit {
				return sales
			}
			sales = append(sales, Sale{
				OrderID:  o.ID,
				Title:    item.Title,
				Buyer:    buyer(o),
				Price:    item.Price,
				Quantity: item.Quantity,
				Date:     o.Date,
			})
		}
	}
	return sales
}
