package chat

import (
	"time"

	"gorm.io/gorm"
)

// Conversation types.
const (
	ConversationDirect = "direct"
	ConversationGroup  = "group"
)

// Message types.
const (
	MessageText  = "text"
	MessageImage = "image"
	MessageFile  = "file"
)

// User represents a chat user. LastSeen is null while the user is online
// and stamped on disconnect.
type User struct {
	ID              string         `gorm:"primarykey;size:36" json:"id"`
	Email           string         `gorm:"uniqueIndex;size:255" json:"email"`
	FirstName       string         `gorm:"size:100" json:"firstName,omitempty"`
	LastName        string         `gorm:"size:100" json:"lastName,omitempty"`
	ProfileImageURL string         `gorm:"size:512" json:"profileImageUrl,omitempty"`
	PasswordHash    string         `gorm:"size:100" json:"-"`
	EmailVerified   bool           `gorm:"not null;default:false" json:"emailVerified"`
	IsOnline        bool           `gorm:"not null;default:false" json:"isOnline"`
	LastSeen        *time.Time     `json:"lastSeen,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName returns the table name for the User model.
func (User) TableName() string {
	return "users"
}

// AuthProvider links a user to an external identity provider.
// (provider, provider_id) pairs are unique.
type AuthProvider struct {
	ID         string    `gorm:"primarykey;size:36" json:"id"`
	UserID     string    `gorm:"size:36;not null;index" json:"userId"`
	Provider   string    `gorm:"size:32;not null;uniqueIndex:idx_provider_identity" json:"provider"`
	ProviderID string    `gorm:"size:255;not null;uniqueIndex:idx_provider_identity" json:"providerId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName returns the table name for the AuthProvider model.
func (AuthProvider) TableName() string {
	return "auth_providers"
}

// PasswordResetToken is a single-use token for password recovery.
type PasswordResetToken struct {
	ID        string    `gorm:"primarykey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName returns the table name for the PasswordResetToken model.
func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}

// EmailVerificationToken is a single-use token for email verification.
type EmailVerificationToken struct {
	ID        string    `gorm:"primarykey;size:36"`
	UserID    string    `gorm:"size:36;not null;index"`
	Token     string    `gorm:"size:64;not null;uniqueIndex"`
	ExpiresAt time.Time `gorm:"not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// TableName returns the table name for the EmailVerificationToken model.
func (EmailVerificationToken) TableName() string {
	return "email_verification_tokens"
}

// Conversation is a chat thread between two or more users.
type Conversation struct {
	ID        string    `gorm:"primarykey;size:36" json:"id"`
	Type      string    `gorm:"size:16;not null;default:direct" json:"type"`
	Name      string    `gorm:"size:100" json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for the Conversation model.
func (Conversation) TableName() string {
	return "conversations"
}

// ConversationParticipant is a user's membership in a conversation.
type ConversationParticipant struct {
	ID                string    `gorm:"primarykey;size:36" json:"id"`
	ConversationID    string    `gorm:"size:36;not null;index" json:"conversationId"`
	UserID            string    `gorm:"size:36;not null;index" json:"userId"`
	JoinedAt          time.Time `json:"joinedAt"`
	LastReadMessageID string    `gorm:"size:36" json:"lastReadMessageId,omitempty"`
	User              User      `gorm:"foreignKey:UserID" json:"user"`
}

// TableName returns the table name for the ConversationParticipant model.
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// Message is a persisted chat message.
type Message struct {
	ID             string     `gorm:"primarykey;size:36" json:"id"`
	ConversationID string     `gorm:"size:36;not null;index" json:"conversationId"`
	SenderID       string     `gorm:"size:36;not null;index" json:"senderId"`
	Content        string     `gorm:"type:text" json:"content"`
	MessageType    string     `gorm:"size:16;not null;default:text" json:"messageType"`
	FileURL        string     `gorm:"size:512" json:"fileUrl,omitempty"`
	FileName       string     `gorm:"size:255" json:"fileName,omitempty"`
	FileSize       int64      `json:"fileSize,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	EditedAt       *time.Time `json:"editedAt,omitempty"`
	Sender         User       `gorm:"foreignKey:SenderID" json:"sender"`
}

// TableName returns the table name for the Message model.
func (Message) TableName() string {
	return "messages"
}

// TypingStatus records whether a user is typing in a conversation.
// Rows are unique per (conversation, user) and upserted last-write-wins.
type TypingStatus struct {
	ID             string    `gorm:"primarykey;size:36" json:"id"`
	ConversationID string    `gorm:"size:36;not null;uniqueIndex:idx_typing_conversation_user" json:"conversationId"`
	UserID         string    `gorm:"size:36;not null;uniqueIndex:idx_typing_conversation_user" json:"userId"`
	IsTyping       bool      `gorm:"not null;default:false" json:"isTyping"`
	UpdatedAt      time.Time `json:"updatedAt"`
	User           User      `gorm:"foreignKey:UserID" json:"user"`
}

// TableName returns the table name for the TypingStatus model.
func (TypingStatus) TableName() string {
	return "typing_status"
}

// ConversationSummary is a conversation with the details the contact list
// needs: participants, the most recent message, and the unread count.
type ConversationSummary struct {
	Conversation
	Participants []ConversationParticipant `json:"participants"`
	LastMessage  *Message                  `json:"lastMessage,omitempty"`
	UnreadCount  int64                     `json:"unreadCount"`
}
