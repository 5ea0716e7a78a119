package entity

import "time"

const (
	NotificationNewMessage   = "new-message"
	NotificationItemSold     = "item-sold"
	NotificationOrderShipped = "order-shipped"
)

type Notification struct {
	ID        string    `json:"id" firestore:"id"`
	UserID    string    `json:"user_id" firestore:"userId"`
	Type      string    `json:"type" firestore:"type"`
	Title     string    `json:"title" firestore:"title"`
	Body      string    `json:"body" firestore:"body"`
	Link      string    `json:"link,omitempty" firestore:"link,omitempty"`
	ListingID string    `json:"listing_id,omitempty" firestore:"listingId,omitempty"`
	Read      bool      `json:"read" firestore:"read"`
	CreatedAt time.Time `json:"created_at" firestore:"createdAt"`
}
