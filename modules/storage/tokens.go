package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/example/chatflow/domain/chat"
)

// ErrTokenNotFound is returned when no unused token matches.
var ErrTokenNotFound = errors.New("token not found")

// TokenRepository handles password reset and email verification tokens.
type TokenRepository struct {
	db *gorm.DB
}

// NewTokenRepository creates a new TokenRepository.
func NewTokenRepository(db *gorm.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

// CreatePasswordReset stores a new password reset token.
func (r *TokenRepository) CreatePasswordReset(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Create(&domain.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}).Error
}

// FindPasswordReset returns the unused reset token with the given value.
func (r *TokenRepository) FindPasswordReset(ctx context.Context, token string) (*domain.PasswordResetToken, error) {
	var t domain.PasswordResetToken
	result := r.db.WithContext(ctx).
		Where("token = ? AND used = ?", token, false).
		First(&t)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, result.Error
	}
	return &t, nil
}

// MarkPasswordResetUsed marks a reset token as consumed.
func (r *TokenRepository) MarkPasswordResetUsed(ctx context.Context, tokenID string) error {
	return r.db.WithContext(ctx).Model(&domain.PasswordResetToken{}).
		Where("id = ?", tokenID).
		Update("used", true).Error
}

// CreateEmailVerification stores a new email verification token.
func (r *TokenRepository) CreateEmailVerification(ctx context.Context, userID, token string, expiresAt time.Time) error {
	return r.db.WithContext(ctx).Create(&domain.EmailVerificationToken{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
	}).Error
}

// FindEmailVerification returns the unused verification token with the given value.
func (r *TokenRepository) FindEmailVerification(ctx context.Context, token string) (*domain.EmailVerificationToken, error) {
	var t domain.EmailVerificationToken
	result := r.db.WithContext(ctx).
		Where("token = ? AND used = ?", token, false).
		First(&t)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, result.Error
	}
	return &t, nil
}

// MarkEmailVerificationUsed marks a verification token as consumed.
func (r *TokenRepository) MarkEmailVerificationUsed(ctx context.Context, tokenID string) error {
	return r.db.WithContext(ctx).Model(&domain.EmailVerificationToken{}).
		Where("id = ?", tokenID).
		Update("used", true).Error
}

// DeleteExpired removes expired tokens of both kinds.
func (r *TokenRepository) DeleteExpired(ctx context.Context) error {
	now := time.Now()
	if err := r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.PasswordResetToken{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&domain.EmailVerificationToken{}).Error
}
