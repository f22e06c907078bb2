package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/example/chatflow/domain/chat"
)

// TypingStaleness is how old a typing row may be before readers must treat
// it as not-typing. Expiry is a read-time filter, rows are never evicted.
const TypingStaleness = 10 * time.Second

// TypingRepository handles per-conversation typing indicators.
type TypingRepository struct {
	db *gorm.DB
}

// NewTypingRepository creates a new TypingRepository.
func NewTypingRepository(db *gorm.DB) *TypingRepository {
	return &TypingRepository{db: db}
}

// Upsert records the user's typing state for a conversation. The row is
// unique per (conversation, user); concurrent updates are last-write-wins.
func (r *TypingRepository) Upsert(ctx context.Context, conversationID, userID string, isTyping bool) error {
	row := domain.TypingStatus{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		IsTyping:       isTyping,
		UpdatedAt:      time.Now(),
	}
	return r.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"is_typing":  isTyping,
				"updated_at": time.Now(),
			}),
		}).
		Create(&row).Error
}

// TypingUsers returns the users currently typing in a conversation,
// excluding the given user. Rows older than TypingStaleness are ignored
// regardless of their stored flag.
func (r *TypingRepository) TypingUsers(ctx context.Context, conversationID, excludeUserID string) ([]domain.TypingStatus, error) {
	var rows []domain.TypingStatus
	result := r.db.WithContext(ctx).
		Preload("User").
		Where("conversation_id = ? AND is_typing = ? AND user_id != ? AND updated_at > ?",
			conversationID, true, excludeUserID, time.Now().Add(-TypingStaleness)).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	return rows, nil
}

// Status returns the stored typing row for a (conversation, user) pair.
func (r *TypingRepository) Status(ctx context.Context, conversationID, userID string) (*domain.TypingStatus, error) {
	var row domain.TypingStatus
	result := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &row, nil
}
