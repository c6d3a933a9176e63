package gateway

import "context"

// Message is one inbound chat event from the gateway stream.
type Message struct {
	Msg    string         `json:"msg"`
	Room   string         `json:"room"`
	Sender *string        `json:"sender,omitempty"`
	JSON   *MessageDetail `json:"json,omitempty"`
}

// MessageDetail carries the decoded payload fields the bot cares about.
type MessageDetail struct {
	UserID string `json:"user_id"`
}

// ReplyRequest is the outbound frame for both text and image replies.
type ReplyRequest struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Data string `json:"data"`
}

type MessageCallback func(message *Message)

type StateCallback func(state WebSocketState)

// WebSocketState tracks the lifecycle of the event stream connection.
type WebSocketState string

const (
	WSStateDisconnected WebSocketState = "disconnected"
	WSStateConnecting   WebSocketState = "connecting"
	WSStateConnected    WebSocketState = "connected"
	WSStateReconnecting WebSocketState = "reconnecting"
	WSStateFailed       WebSocketState = "failed"
)

// WSClient is the event-stream surface the bot wires callbacks into.
type WSClient interface {
	Connect(ctx context.Context) error
	OnMessage(cb MessageCallback) int
	RemoveMessageCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}
