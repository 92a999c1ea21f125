package entity

// ConversationSummary is one sidebar directory entry: the counterpart plus
// a preview of the most recent activity.
type ConversationSummary struct {
	CustomerId    string `json:"customerId"`
	DisplayName   string `json:"displayName"`
	Email         string `json:"email"`
	AvatarUrl     string `json:"avatarUrl"`
	LastMessage   string `json:"lastMessage"`
	LastMessageAt int64  `json:"lastMessageAt"`
	IsRead        bool   `json:"isRead"`
}

// SummaryFromMessage synthesizes a directory entry from a bare live message.
// Presentation fields stay empty; the merge keeps whatever the directory
// already knows about them.
func SummaryFromMessage(counterpartId string, msg Message) ConversationSummary {
	return ConversationSummary{
		CustomerId:    counterpartId,
		LastMessage:   msg.Text,
		LastMessageAt: msg.CreatedAt,
		IsRead:        true,
	}
}
