package relay

import domain "github.com/example/chatflow/domain/chat"

// Directive is an inbound frame from a client.
type Directive struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
}

// Inbound directive types.
const (
	DirectiveJoin        = "join_conversation"
	DirectiveTypingStart = "typing_start"
	DirectiveTypingStop  = "typing_stop"
)

// Frame is an outbound frame to a client.
type Frame struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Outbound frame types.
const (
	FrameMessage     = "message"
	FrameTypingStart = "typing_start"
	FrameTypingStop  = "typing_stop"
	FrameUserOnline  = "user_online"
	FrameUserOffline = "user_offline"
)

// typingData is the payload of typing frames.
type typingData struct {
	UserID string `json:"userId"`
}

// presenceData is the payload of presence frames.
type presenceData struct {
	UserID   string `json:"userId"`
	IsOnline bool   `json:"isOnline"`
}

// MessageFrame builds the frame announcing a persisted message.
func MessageFrame(msg domain.Message) Frame {
	return Frame{Type: FrameMessage, Data: msg}
}

// TypingFrame builds a typing start or stop frame for a user.
func TypingFrame(userID string, isTyping bool) Frame {
	frameType := FrameTypingStop
	if isTyping {
		frameType = FrameTypingStart
	}
	return Frame{Type: frameType, Data: typingData{UserID: userID}}
}

// PresenceFrame builds a user online or offline frame.
func PresenceFrame(userID string, online bool) Frame {
	frameType := FrameUserOffline
	if online {
		frameType = FrameUserOnline
	}
	return Frame{Type: frameType, Data: presenceData{UserID: userID, IsOnline: online}}
}
