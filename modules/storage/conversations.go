package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/example/chatflow/domain/chat"
)

// ErrConversationNotFound is returned when a conversation is not found.
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository handles conversations and their participants.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create creates a new conversation.
func (r *ConversationRepository) Create(ctx context.Context, conv *domain.Conversation) error {
	if conv.ID == "" {
		conv.ID = uuid.New().String()
	}
	return r.db.WithContext(ctx).Create(conv).Error
}

// FindByID finds a conversation by ID.
func (r *ConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	result := r.db.WithContext(ctx).First(&conv, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return &conv, nil
}

// AddParticipant adds a user to a conversation.
func (r *ConversationRepository) AddParticipant(ctx context.Context, conversationID, userID string) error {
	return r.db.WithContext(ctx).Create(&domain.ConversationParticipant{
		ID:             uuid.New().String(),
		ConversationID: conversationID,
		UserID:         userID,
		JoinedAt:       time.Now(),
	}).Error
}

// IsParticipant reports whether the user belongs to the conversation.
func (r *ConversationRepository) IsParticipant(ctx context.Context, conversationID, userID string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// FindDirect returns the existing direct conversation between two users, if any.
func (r *ConversationRepository) FindDirect(ctx context.Context, userID1, userID2 string) (*domain.Conversation, error) {
	var conv domain.Conversation
	result := r.db.WithContext(ctx).
		Joins("JOIN conversation_participants p1 ON p1.conversation_id = conversations.id AND p1.user_id = ?", userID1).
		Joins("JOIN conversation_participants p2 ON p2.conversation_id = conversations.id AND p2.user_id = ?", userID2).
		Where("conversations.type = ?", domain.ConversationDirect).
		First(&conv)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, result.Error
	}
	return &conv, nil
}

// MemberIDs returns the user IDs of all participants in a conversation.
func (r *ConversationRepository) MemberIDs(ctx context.Context, conversationID string) ([]string, error) {
	var ids []string
	result := r.db.WithContext(ctx).Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ?", conversationID).
		Pluck("user_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}

// ListForUser returns the user's conversations, newest activity first, each
// with participants, the last message, and the unread count.
func (r *ConversationRepository) ListForUser(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	var convs []domain.Conversation
	memberOf := r.db.Model(&domain.ConversationParticipant{}).
		Select("conversation_id").
		Where("user_id = ?", userID)
	result := r.db.WithContext(ctx).
		Where("id IN (?)", memberOf).
		Order("updated_at DESC").
		Find(&convs)
	if result.Error != nil {
		return nil, result.Error
	}

	summaries := make([]domain.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summary := domain.ConversationSummary{Conversation: conv}

		if err := r.db.WithContext(ctx).
			Preload("User").
			Where("conversation_id = ?", conv.ID).
			Find(&summary.Participants).Error; err != nil {
			return nil, err
		}

		var last domain.Message
		err := r.db.WithContext(ctx).
			Preload("Sender").
			Where("conversation_id = ?", conv.ID).
			Order("created_at DESC").
			First(&last).Error
		if err == nil {
			summary.LastMessage = &last
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}

		unread, err := r.unreadCount(ctx, conv.ID, userID, summary.Participants)
		if err != nil {
			return nil, err
		}
		summary.UnreadCount = unread

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// unreadCount counts messages created after the user's last read message.
// With no read marker every message in the conversation counts as unread.
func (r *ConversationRepository) unreadCount(ctx context.Context, conversationID, userID string, participants []domain.ConversationParticipant) (int64, error) {
	var lastReadID string
	for _, p := range participants {
		if p.UserID == userID {
			lastReadID = p.LastReadMessageID
			break
		}
	}

	query := r.db.WithContext(ctx).Model(&domain.Message{}).
		Where("conversation_id = ?", conversationID)
	if lastReadID != "" {
		readAt := r.db.Model(&domain.Message{}).
			Select("created_at").
			Where("id = ?", lastReadID)
		query = query.Where("created_at > (?)", readAt)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead advances the user's read marker in a conversation.
func (r *ConversationRepository) MarkRead(ctx context.Context, conversationID, userID, lastMessageID string) error {
	return r.db.WithContext(ctx).Model(&domain.ConversationParticipant{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_message_id", lastMessageID).Error
}

// Touch bumps the conversation's updated_at so it sorts to the top of the list.
func (r *ConversationRepository) Touch(ctx context.Context, conversationID string) error {
	return r.db.WithContext(ctx).Model(&domain.Conversation{}).
		Where("id = ?", conversationID).
		Update("updated_at", time.Now()).Error
}
