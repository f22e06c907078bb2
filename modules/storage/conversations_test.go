package storage

import (
	"context"
	"errors"
	"testing"

	domain "github.com/example/chatflow/domain/chat"
)

func TestConversationRepository_FindDirect(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewConversationRepository(db)
	users := NewUserRepository(db)

	u1 := createTestUser(t, users, "d1@example.com")
	u2 := createTestUser(t, users, "d2@example.com")
	u3 := createTestUser(t, users, "d3@example.com")

	conv := &domain.Conversation{Type: domain.ConversationDirect}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.AddParticipant(ctx, conv.ID, u1.ID); err != nil {
		t.Fatalf("AddParticipant() error = %v", err)
	}
	if err := repo.AddParticipant(ctx, conv.ID, u2.ID); err != nil {
		t.Fatalf("AddParticipant() error = %v", err)
	}

	t.Run("finds existing pair", func(t *testing.T) {
		found, err := repo.FindDirect(ctx, u1.ID, u2.ID)
		if err != nil {
			t.Fatalf("FindDirect() error = %v", err)
		}
		if found.ID != conv.ID {
			t.Errorf("expected conversation %q, got %q", conv.ID, found.ID)
		}
	})

	t.Run("order of users does not matter", func(t *testing.T) {
		found, err := repo.FindDirect(ctx, u2.ID, u1.ID)
		if err != nil {
			t.Fatalf("FindDirect() error = %v", err)
		}
		if found.ID != conv.ID {
			t.Errorf("expected conversation %q, got %q", conv.ID, found.ID)
		}
	})

	t.Run("no conversation for other pair", func(t *testing.T) {
		_, err := repo.FindDirect(ctx, u1.ID, u3.ID)
		if !errors.Is(err, ErrConversationNotFound) {
			t.Errorf("expected ErrConversationNotFound, got %v", err)
		}
	})
}

func TestConversationRepository_ListForUser(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewConversationRepository(db)
	users := NewUserRepository(db)
	messages := NewMessageRepository(db)

	u1 := createTestUser(t, users, "l1@example.com")
	u2 := createTestUser(t, users, "l2@example.com")

	conv := &domain.Conversation{Type: domain.ConversationDirect}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, id := range []string{u1.ID, u2.ID} {
		if err := repo.AddParticipant(ctx, conv.ID, id); err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
	}

	first, err := messages.Create(ctx, &domain.Message{
		ConversationID: conv.ID,
		SenderID:       u2.ID,
		Content:        "hello",
	})
	if err != nil {
		t.Fatalf("Create message error = %v", err)
	}
	second, err := messages.Create(ctx, &domain.Message{
		ConversationID: conv.ID,
		SenderID:       u2.ID,
		Content:        "are you there?",
	})
	if err != nil {
		t.Fatalf("Create message error = %v", err)
	}

	t.Run("summary carries participants and last message", func(t *testing.T) {
		list, err := repo.ListForUser(ctx, u1.ID)
		if err != nil {
			t.Fatalf("ListForUser() error = %v", err)
		}
		if len(list) != 1 {
			t.Fatalf("expected 1 conversation, got %d", len(list))
		}
		summary := list[0]
		if len(summary.Participants) != 2 {
			t.Errorf("expected 2 participants, got %d", len(summary.Participants))
		}
		if summary.LastMessage == nil || summary.LastMessage.ID != second.ID {
			t.Errorf("expected last message %q, got %+v", second.ID, summary.LastMessage)
		}
		if summary.LastMessage.Sender.ID != u2.ID {
			t.Errorf("expected sender preloaded, got %+v", summary.LastMessage.Sender)
		}
		if summary.UnreadCount != 2 {
			t.Errorf("expected 2 unread with no read marker, got %d", summary.UnreadCount)
		}
	})

	t.Run("unread count respects read marker", func(t *testing.T) {
		if err := repo.MarkRead(ctx, conv.ID, u1.ID, first.ID); err != nil {
			t.Fatalf("MarkRead() error = %v", err)
		}
		list, err := repo.ListForUser(ctx, u1.ID)
		if err != nil {
			t.Fatalf("ListForUser() error = %v", err)
		}
		if list[0].UnreadCount != 1 {
			t.Errorf("expected 1 unread after marker, got %d", list[0].UnreadCount)
		}
	})

	t.Run("non-participant sees nothing", func(t *testing.T) {
		outsider := createTestUser(t, users, "l3@example.com")
		list, err := repo.ListForUser(ctx, outsider.ID)
		if err != nil {
			t.Fatalf("ListForUser() error = %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected 0 conversations, got %d", len(list))
		}
	})
}

func TestConversationRepository_MemberIDs(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := NewConversationRepository(db)
	users := NewUserRepository(db)

	u1 := createTestUser(t, users, "m1@example.com")
	u2 := createTestUser(t, users, "m2@example.com")

	conv := &domain.Conversation{Type: domain.ConversationGroup, Name: "team"}
	if err := repo.Create(ctx, conv); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	for _, id := range []string{u1.ID, u2.ID} {
		if err := repo.AddParticipant(ctx, conv.ID, id); err != nil {
			t.Fatalf("AddParticipant() error = %v", err)
		}
	}

	ids, err := repo.MemberIDs(ctx, conv.ID)
	if err != nil {
		t.Fatalf("MemberIDs() error = %v", err)
	}
	if len(ids) != 2 {
		t.Errorf("expected 2 member IDs, got %d", len(ids))
	}
}
