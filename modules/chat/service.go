package chat

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"strings"

	"github.com/go-monolith/mono"
	"github.com/google/uuid"

	domain "github.com/example/chatflow/domain/chat"
	"github.com/example/chatflow/events"
	"github.com/example/chatflow/modules/cache"
	"github.com/example/chatflow/modules/storage"
)

// Service provides conversation and message operations. Reads go through
// the cache-aside layer; writes invalidate the affected members' entries.
type Service struct {
	users         *storage.UserRepository
	conversations *storage.ConversationRepository
	messages      *storage.MessageRepository
	typing        *storage.TypingRepository
	cache         *cache.Cache
	eventBus      mono.EventBus
}

// NewService creates a new chat service. The cache may be nil.
func NewService(store *storage.StorageModule, c *cache.Cache) *Service {
	return &Service{
		users:         store.Users(),
		conversations: store.Conversations(),
		messages:      store.Messages(),
		typing:        store.Typing(),
		cache:         c,
	}
}

// SetEventBus injects the event bus used to announce new messages.
func (s *Service) SetEventBus(bus mono.EventBus) {
	s.eventBus = bus
}

func conversationsCacheKey(userID string) string {
	return "conversations:" + userID
}

// CreateConversation creates a conversation with the given participants,
// looked up by email. Unknown emails get placeholder accounts so they can
// be invited before signing up. Direct conversations between the same two
// users are deduplicated.
func (s *Service) CreateConversation(ctx context.Context, creatorID string, input CreateConversationInput) (*domain.Conversation, error) {
	if len(input.ParticipantEmails) == 0 {
		return nil, ErrNoParticipants
	}

	convType := input.Type
	if convType == "" {
		convType = domain.ConversationDirect
	}

	participantIDs := make([]string, 0, len(input.ParticipantEmails))
	for _, email := range input.ParticipantEmails {
		email = strings.TrimSpace(strings.ToLower(email))
		if email == "" {
			continue
		}
		user, err := s.users.FindByEmail(ctx, email)
		if err != nil {
			if !errors.Is(err, storage.ErrUserNotFound) {
				return nil, fmt.Errorf("failed to look up participant: %w", err)
			}
			user = &domain.User{
				ID:        uuid.New().String(),
				Email:     email,
				FirstName: strings.Split(email, "@")[0],
			}
			if err := s.users.Create(ctx, user); err != nil {
				return nil, fmt.Errorf("failed to create placeholder user: %w", err)
			}
		}
		if user.ID != creatorID {
			participantIDs = append(participantIDs, user.ID)
		}
	}
	if len(participantIDs) == 0 {
		return nil, ErrNoParticipants
	}

	if convType == domain.ConversationDirect && len(participantIDs) == 1 {
		existing, err := s.conversations.FindDirect(ctx, creatorID, participantIDs[0])
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, storage.ErrConversationNotFound) {
			return nil, fmt.Errorf("failed to look up direct conversation: %w", err)
		}
	}

	conv := &domain.Conversation{
		Type: convType,
		Name: input.Name,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	for _, id := range append([]string{creatorID}, participantIDs...) {
		if err := s.conversations.AddParticipant(ctx, conv.ID, id); err != nil {
			return nil, fmt.Errorf("failed to add participant: %w", err)
		}
	}

	s.invalidateMembers(ctx, append(participantIDs, creatorID))
	return conv, nil
}

// ListConversations returns the user's conversation summaries,
// cache-aside with a short TTL.
func (s *Service) ListConversations(ctx context.Context, userID string) ([]domain.ConversationSummary, error) {
	key := conversationsCacheKey(userID)

	var cached []domain.ConversationSummary
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		log.Printf("[chat] Cache read failed for %s: %v", key, err)
	}
	if found {
		return cached, nil
	}

	summaries, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	if err := s.cache.Set(ctx, key, summaries); err != nil {
		log.Printf("[chat] Cache write failed for %s: %v", key, err)
	}
	return summaries, nil
}

// GetConversation returns a conversation the user participates in.
func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (*domain.Conversation, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.conversations.FindByID(ctx, conversationID)
}

// ListMessages returns a page of a conversation's messages, newest first.
func (s *Service) ListMessages(ctx context.Context, conversationID, userID string, limit, offset int) ([]domain.Message, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.messages.ListByConversation(ctx, conversationID, limit, offset)
}

// SendMessage validates and persists a message, bumps the conversation,
// invalidates the members' caches and announces the message on the bus.
func (s *Service) SendMessage(ctx context.Context, senderID string, input SendMessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" && input.FileURL == "" {
		return nil, ErrEmptyMessage
	}
	if len(content) > maxMessageLength {
		return nil, ErrMessageTooLong
	}
	if err := s.requireParticipant(ctx, input.ConversationID, senderID); err != nil {
		return nil, err
	}

	msg, err := s.messages.Create(ctx, &domain.Message{
		ConversationID: input.ConversationID,
		SenderID:       senderID,
		Content:        content,
		MessageType:    input.MessageType,
		FileURL:        input.FileURL,
		FileName:       input.FileName,
		FileSize:       input.FileSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	if err := s.conversations.Touch(ctx, input.ConversationID); err != nil {
		log.Printf("[chat] Failed to bump conversation %s: %v", input.ConversationID, err)
	}

	memberIDs, err := s.conversations.MemberIDs(ctx, input.ConversationID)
	if err != nil {
		log.Printf("[chat] Failed to load members of %s: %v", input.ConversationID, err)
	} else {
		s.invalidateMembers(ctx, memberIDs)
	}

	if s.eventBus != nil {
		event := events.MessageCreatedEvent{
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Message:        *msg,
		}
		if err := events.MessageCreatedV1.Publish(s.eventBus, event, nil); err != nil {
			slog.Warn("Failed to publish MessageCreated event", "error", err)
		}
	}

	return msg, nil
}

// MarkRead advances the user's read marker in a conversation.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID, lastMessageID string) error {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.conversations.MarkRead(ctx, conversationID, userID, lastMessageID); err != nil {
		return fmt.Errorf("failed to mark read: %w", err)
	}
	if err := s.cache.Delete(ctx, conversationsCacheKey(userID)); err != nil {
		log.Printf("[chat] Cache invalidation failed for %s: %v", userID, err)
	}
	return nil
}

// TypingUsers returns who is currently typing in a conversation, excluding
// the requesting user. Stale indicators are filtered at read time.
func (s *Service) TypingUsers(ctx context.Context, conversationID, userID string) ([]domain.TypingStatus, error) {
	if err := s.requireParticipant(ctx, conversationID, userID); err != nil {
		return nil, err
	}
	return s.typing.TypingUsers(ctx, conversationID, userID)
}

// requireParticipant checks membership before reads and writes.
func (s *Service) requireParticipant(ctx context.Context, conversationID, userID string) error {
	ok, err := s.conversations.IsParticipant(ctx, conversationID, userID)
	if err != nil {
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

// invalidateMembers drops the cached conversation lists of the given users.
func (s *Service) invalidateMembers(ctx context.Context, userIDs []string) {
	for _, id := range userIDs {
		if err := s.cache.Delete(ctx, conversationsCacheKey(id)); err != nil {
			log.Printf("[chat] Cache invalidation failed for %s: %v", id, err)
		}
	}
}
