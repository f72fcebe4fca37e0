package domain

import "time"

type Artwork struct {
	ID          int64     `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Year        int       `json:"year" bson:"year"`
	Category    string    `json:"category" bson:"category"`
	Medium      string    `json:"medium" bson:"medium"`
	Dimensions  string    `json:"dimensions" bson:"dimensions"`
	Price       int64     `json:"price" bson:"price"`
	Description string    `json:"description" bson:"description"`
	Image       string    `json:"image" bson:"image"`
	Available   bool      `json:"available" bson:"available"`
	Views       int64     `json:"views" bson:"views"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CartItem returns the artwork as a cart line priced from the catalog.
func (a Artwork) CartItem(quantity int) CartItem {
	return CartItem{
		ID:       a.ID,
		Title:    a.Title,
		Price:    a.Price,
		Image:    a.Image,
		Quantity: quantity,
	}
}

// PopularArtwork is an artwork ranked by views together with the number of
// orders that contain it.
type PopularArtwork struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Year  int    `json:"year"`
	Views int64  `json:"views"`
	Sales int64  `json:"sales"`
}
