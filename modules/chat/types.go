package chat

import "errors"

var (
	// ErrEmptyMessage is returned for messages with no content or attachment.
	ErrEmptyMessage = errors.New("message content is required")
	// ErrMessageTooLong is returned when content exceeds maxMessageLength.
	ErrMessageTooLong = errors.New("message content is too long")
	// ErrNotParticipant is returned when a user acts on a conversation they
	// do not belong to.
	ErrNotParticipant = errors.New("user is not a participant of this conversation")
	// ErrNoParticipants is returned when a conversation is created without
	// any other members.
	ErrNoParticipants = errors.New("at least one participant is required")
)

// maxMessageLength caps message content, in bytes.
const maxMessageLength = 4096

// CreateConversationInput carries the fields to create a conversation.
// Direct conversations are deduplicated per user pair; ParticipantEmails
// may name users that do not exist yet, which creates placeholders.
type CreateConversationInput struct {
	Type              string   `json:"type"`
	Name              string   `json:"name"`
	ParticipantEmails []string `json:"participantEmails"`
}

// SendMessageInput carries the fields to send a message.
type SendMessageInput struct {
	ConversationID string `json:"conversationId"`
	Content        string `json:"content"`
	MessageType    string `json:"messageType"`
	FileURL        string `json:"fileUrl"`
	FileName       string `json:"fileName"`
	FileSize       int64  `json:"fileSize"`
}
