package events

import (
	"github.com/go-monolith/mono/pkg/helper"

	domain "github.com/example/chatflow/domain/chat"
)

// MessageCreatedEvent is emitted after a message has been persisted.
// The relay module consumes it to fan the message out to live connections.
type MessageCreatedEvent struct {
	ConversationID string         `json:"conversation_id"`
	SenderID       string         `json:"sender_id"`
	Message        domain.Message `json:"message"`
}

// Event definitions for the chat domain.
var MessageCreatedV1 = helper.EventDefinition[MessageCreatedEvent](
	"chat",
	"MessageCreated",
	"v1",
)
