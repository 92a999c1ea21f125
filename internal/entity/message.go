package entity

// Message represents a chat message. Ids are server-assigned; CreatedAt is
// epoch milliseconds and defines in-conversation ordering. Only IsRead is
// ever mutated after creation.
type Message struct {
	Id        string `json:"id"`
	SenderId  string `json:"senderId"`
	Text      string `json:"text"`
	IsRead    bool   `json:"isRead"`
	CreatedAt int64  `json:"createdAt"`
}
