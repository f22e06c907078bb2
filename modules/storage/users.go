package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/example/chatflow/domain/chat"
)

var (
	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists is returned when a user already exists.
	ErrUserExists = errors.New("user with this email already exists")
)

// UserRepository handles user persistence using GORM.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	result := r.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrDuplicatedKey) {
			return ErrUserExists
		}
		return result.Error
	}
	return nil
}

// FindByID finds a user by ID.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindByEmail finds a user by email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	result := r.db.WithContext(ctx).First(&user, "email = ?", email)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// EmailExists checks if a user with the given email exists.
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(&domain.User{}).Where("email = ?", email).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// UpsertByEmail creates the user if the email is unknown, otherwise updates
// the profile fields of the existing user and returns it.
func (r *UserRepository) UpsertByEmail(ctx context.Context, user *domain.User) (*domain.User, error) {
	existing, err := r.FindByEmail(ctx, user.Email)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		if err := r.Create(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	updates := map[string]any{"updated_at": time.Now()}
	if user.FirstName != "" {
		updates["first_name"] = user.FirstName
	}
	if user.LastName != "" {
		updates["last_name"] = user.LastName
	}
	if user.ProfileImageURL != "" {
		updates["profile_image_url"] = user.ProfileImageURL
	}
	if user.EmailVerified {
		updates["email_verified"] = true
	}
	if err := r.db.WithContext(ctx).Model(existing).Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, existing.ID)
}

// UpdatePassword replaces the user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"password_hash": passwordHash, "updated_at": time.Now()}).Error
}

// SetEmailVerified updates the user's email verification flag.
func (r *UserRepository) SetEmailVerified(ctx context.Context, userID string, verified bool) error {
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"email_verified": verified, "updated_at": time.Now()}).Error
}

// SetOnline updates the user's presence. Going online clears last_seen;
// going offline stamps it with the current time.
func (r *UserRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	updates := map[string]any{
		"is_online":  online,
		"updated_at": time.Now(),
	}
	if online {
		updates["last_seen"] = nil
	} else {
		updates["last_seen"] = time.Now()
	}
	return r.db.WithContext(ctx).Model(&domain.User{}).
		Where("id = ?", userID).
		Updates(updates).Error
}

// OnlineStatus returns the online flag for each of the given user IDs.
func (r *UserRepository) OnlineStatus(ctx context.Context, userIDs []string) (map[string]bool, error) {
	var rows []struct {
		ID       string
		IsOnline bool
	}
	result := r.db.WithContext(ctx).Model(&domain.User{}).
		Select("id", "is_online").
		Where("id IN ?", userIDs).
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	status := make(map[string]bool, len(rows))
	for _, row := range rows {
		status[row.ID] = row.IsOnline
	}
	return status, nil
}
