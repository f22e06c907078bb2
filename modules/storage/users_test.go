package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	domain "github.com/example/chatflow/domain/chat"
)

func createTestUser(t *testing.T, repo *UserRepository, email string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:    uuid.New().String(),
		Email: email,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func TestUserRepository_FindByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	user := createTestUser(t, repo, "alice@example.com")

	t.Run("existing user", func(t *testing.T) {
		found, err := repo.FindByEmail(ctx, "alice@example.com")
		if err != nil {
			t.Fatalf("FindByEmail() error = %v", err)
		}
		if found.ID != user.ID {
			t.Errorf("expected ID %q, got %q", user.ID, found.ID)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := repo.FindByEmail(ctx, "nobody@example.com")
		if !errors.Is(err, ErrUserNotFound) {
			t.Errorf("expected ErrUserNotFound, got %v", err)
		}
	})
}

func TestUserRepository_CreateDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	createTestUser(t, repo, "dup@example.com")

	err := repo.Create(ctx, &domain.User{
		ID:    uuid.New().String(),
		Email: "dup@example.com",
	})
	if !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestUserRepository_SetOnline(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	user := createTestUser(t, repo, "bob@example.com")

	t.Run("going online clears last seen", func(t *testing.T) {
		if err := repo.SetOnline(ctx, user.ID, true); err != nil {
			t.Fatalf("SetOnline(true) error = %v", err)
		}

		found, err := repo.FindByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if !found.IsOnline {
			t.Error("expected IsOnline = true")
		}
		if found.LastSeen != nil {
			t.Errorf("expected LastSeen = nil while online, got %v", found.LastSeen)
		}
	})

	t.Run("going offline stamps last seen", func(t *testing.T) {
		if err := repo.SetOnline(ctx, user.ID, false); err != nil {
			t.Fatalf("SetOnline(false) error = %v", err)
		}

		found, err := repo.FindByID(ctx, user.ID)
		if err != nil {
			t.Fatalf("FindByID() error = %v", err)
		}
		if found.IsOnline {
			t.Error("expected IsOnline = false")
		}
		if found.LastSeen == nil {
			t.Error("expected LastSeen to be stamped after going offline")
		}
	})
}

func TestUserRepository_UpsertByEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	t.Run("creates unknown email", func(t *testing.T) {
		user, err := repo.UpsertByEmail(ctx, &domain.User{
			ID:        uuid.New().String(),
			Email:     "carol@example.com",
			FirstName: "Carol",
		})
		if err != nil {
			t.Fatalf("UpsertByEmail() error = %v", err)
		}
		if user.FirstName != "Carol" {
			t.Errorf("expected first name Carol, got %q", user.FirstName)
		}
	})

	t.Run("updates existing email in place", func(t *testing.T) {
		updated, err := repo.UpsertByEmail(ctx, &domain.User{
			ID:              uuid.New().String(),
			Email:           "carol@example.com",
			ProfileImageURL: "https://example.com/carol.png",
			EmailVerified:   true,
		})
		if err != nil {
			t.Fatalf("UpsertByEmail() error = %v", err)
		}
		if updated.FirstName != "Carol" {
			t.Errorf("expected existing first name preserved, got %q", updated.FirstName)
		}
		if updated.ProfileImageURL != "https://example.com/carol.png" {
			t.Errorf("expected profile image updated, got %q", updated.ProfileImageURL)
		}
		if !updated.EmailVerified {
			t.Error("expected email verified flag set")
		}

		var count int64
		if err := repo.db.Model(&domain.User{}).Where("email = ?", "carol@example.com").Count(&count).Error; err != nil {
			t.Fatalf("count error: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 user for the email, got %d", count)
		}
	})
}

func TestUserRepository_OnlineStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(setupTestDB(t))

	online := createTestUser(t, repo, "on@example.com")
	offline := createTestUser(t, repo, "off@example.com")
	if err := repo.SetOnline(ctx, online.ID, true); err != nil {
		t.Fatalf("SetOnline() error = %v", err)
	}

	status, err := repo.OnlineStatus(ctx, []string{online.ID, offline.ID})
	if err != nil {
		t.Fatalf("OnlineStatus() error = %v", err)
	}
	if !status[online.ID] {
		t.Error("expected online user to be reported online")
	}
	if status[offline.ID] {
		t.Error("expected offline user to be reported offline")
	}
}
