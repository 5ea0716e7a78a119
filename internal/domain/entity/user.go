package entity

import "time"

type User struct {
	ID          string    `json:"id" firestore:"id"`
	Email       string    `json:"email" firestore:"email"`
	DisplayName string    `json:"display_name" firestore:"displayName"`
	Campus      string    `json:"campus,omitempty" firestore:"campus,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty" firestore:"avatarURL,omitempty"`
	LastSeen    time.Time `json:"last_seen" firestore:"lastSeen"`
	CreatedAt   time.Time `json:"created_at" firestore:"createdAt"`
	UpdatedAt   time.Time `json:"updated_at" firestore:"updatedAt"`
}

// ActiveWithin reports whether the user has been seen within the window
// ending at now.
func (u *User) ActiveWithin(window time.Duration, now time.Time) bool {
	return !u.LastSeen.IsZero() && now.Sub(u.LastSeen) < window
}
