package entity

import "time"

// Message is one chat message between two users about a listing.
// ClientID is a client-generated correlation id used only to reconcile
// optimistic UI entries against the stored row; it is never the identity.
type Message struct {
	ID          string     `json:"id" firestore:"id"`
	ClientID    string     `json:"client_id,omitempty" firestore:"clientId,omitempty"`
	ListingID   string     `json:"listing_id" firestore:"listingId"`
	SenderID    string     `json:"sender_id" firestore:"senderId"`
	ReceiverID  string     `json:"receiver_id" firestore:"receiverId"`
	Body        string     `json:"body" firestore:"body"`
	Read        bool       `json:"read" firestore:"read"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty" firestore:"deliveredAt,omitempty"`
	SeenAt      *time.Time `json:"seen_at,omitempty" firestore:"seenAt,omitempty"`
	Edited      bool       `json:"edited" firestore:"edited"`
	Deleted     bool       `json:"deleted" firestore:"deleted"`
	CreatedAt   time.Time  `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time  `json:"updated_at" firestore:"updatedAt"`
}
