package entity

import (
	"sort"
	"time"
)

// Conversation is the derived aggregate for all messages between one
// unordered participant pair about one listing. Participants are stored in
// canonical (sorted) order so the same pair always maps to the same row.
type Conversation struct {
	ID                  string         `json:"id" firestore:"id"`
	ListingID           string         `json:"listing_id" firestore:"listingId"`
	Participants        []string       `json:"participants" firestore:"participants"`
	LastMessage         string         `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastMessageAt       time.Time      `json:"last_message_at" firestore:"lastMessageAt"`
	UnreadCount         map[string]int `json:"unread_count" firestore:"unreadCount"`
	LastEmailNotifiedAt time.Time      `json:"last_email_notified_at,omitempty" firestore:"lastEmailNotifiedAt,omitempty"`
	CreatedAt           time.Time      `json:"created_at" firestore:"createdAt"`
	UpdatedAt           time.Time      `json:"updated_at" firestore:"updatedAt"`
}

// ConversationKey builds the canonical conversation id for a listing and an
// unordered user pair.
func ConversationKey(listingID, userA, userB string) string {
	if userB < userA {
		userA, userB = userB, userA
	}
	return listingID + ":" + userA + ":" + userB
}

// CanonicalPair returns the two user ids in sorted order.
func CanonicalPair(userA, userB string) []string {
	pair := []string{userA, userB}
	sort.Strings(pair)
	return pair
}

// OtherParticipant returns the participant that is not userID, or "" if
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, p := range c.Participants {
		if p != userID {
			return p
		}
	}
	return ""
}

// HasParticipant reports whether userID belongs to the conversation.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, p := range c.Participants {
		if p == userID {
			return true
		}
	}
	return false
}
