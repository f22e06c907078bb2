package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/example/chatflow/domain/chat"
)

// ErrMessageNotFound is returned when a message is not found.
var ErrMessageNotFound = errors.New("message not found")

// MessageRepository handles message persistence.
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create persists a message and returns it with the sender preloaded.
func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.MessageType == "" {
		msg.MessageType = domain.MessageText
	}
	if err := r.db.WithContext(ctx).Omit("Sender").Create(msg).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, msg.ID)
}

// FindByID returns a message with its sender.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	result := r.db.WithContext(ctx).Preload("Sender").First(&msg, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, result.Error
	}
	return &msg, nil
}

// ListByConversation returns a page of a conversation's messages with
// senders, newest first.
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string, limit, offset int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	var messages []domain.Message
	result := r.db.WithContext(ctx).
		Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages)
	if result.Error != nil {
		return nil, result.Error
	}
	return messages, nil
}
