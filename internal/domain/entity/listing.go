package entity

import "time"

type Listing struct {
	ID          string    `json:"id" firestore:"id"`
	SellerID    string    `json:"seller_id" firestore:"sellerId"`
	Title       string    `json:"title" firestore:"title"`
	Description string    `json:"description,omitempty" firestore:"description,omitempty"`
	Price       float64   `json:"price" firestore:"price"`
	Category    string    `json:"category,omitempty" firestore:"category,omitempty"`
	Status      string    `json:"status" firestore:"status"` // "active", "sold", "removed"
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}
