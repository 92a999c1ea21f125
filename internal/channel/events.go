package channel

import "encoding/json"

// Event names pushed by the realtime backend. This is a closed contract
// owned by the backend service.
const (
	// EventOnlineUsers carries the full set of online identities.
	// The payload replaces the presence set, it is never a delta.
	EventOnlineUsers = "getOnlineUsers"

	// EventNewMessage carries a single message including its sender.
	EventNewMessage = "newMessage"

	// EventSidebarRead carries the identity of the conversation whose
	// unread flag should clear.
	EventSidebarRead = "sidebarReadUpdate"

	// EventSidebarUpdate carries a conversation summary to merge into
	// the directory.
	EventSidebarUpdate = "sidebarChatUpdate"
)

// Query parameter keys
const (
	QueryUserId = "userId"
)

// Envelope is the wire frame for every inbound event.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Timeout defaults, used when the config leaves them zero.
const (
	// DefaultReconnectAttempts bounds the auto-reconnect loop.
	DefaultReconnectAttempts = 5
)
