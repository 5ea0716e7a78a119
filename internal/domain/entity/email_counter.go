package entity

// EmailCounter tracks outbound emails for one calendar day. The date key is
// formatted as 2006-01-02 in UTC; a new day starts a new row.
type EmailCounter struct {
	Date  string `json:"date" firestore:"date"`
	Count int    `json:"count" firestore:"count"`
}
