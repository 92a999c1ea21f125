package api

import "encoding/json"

// Response represents the standard API response envelope
type Response struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SendMessageRequest represents the send message body
type SendMessageRequest struct {
	Text string `json:"text"`
}
