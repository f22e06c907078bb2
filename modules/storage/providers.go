package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/example/chatflow/domain/chat"
)

// ErrProviderNotFound is returned when no provider link matches.
var ErrProviderNotFound = errors.New("auth provider not found")

// AuthProviderRepository links users to external identity providers.
type AuthProviderRepository struct {
	db *gorm.DB
}

// NewAuthProviderRepository creates a new AuthProviderRepository.
func NewAuthProviderRepository(db *gorm.DB) *AuthProviderRepository {
	return &AuthProviderRepository{db: db}
}

// Link records that the given provider identity belongs to the user.
func (r *AuthProviderRepository) Link(ctx context.Context, userID, provider, providerID string) error {
	return r.db.WithContext(ctx).Create(&domain.AuthProvider{
		ID:         uuid.New().String(),
		UserID:     userID,
		Provider:   provider,
		ProviderID: providerID,
	}).Error
}

// Find returns the link for the given provider identity.
func (r *AuthProviderRepository) Find(ctx context.Context, provider, providerID string) (*domain.AuthProvider, error) {
	var link domain.AuthProvider
	result := r.db.WithContext(ctx).
		Where("provider = ? AND provider_id = ?", provider, providerID).
		First(&link)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, result.Error
	}
	return &link, nil
}

// ListForUser returns all provider links for a user.
func (r *AuthProviderRepository) ListForUser(ctx context.Context, userID string) ([]domain.AuthProvider, error) {
	var links []domain.AuthProvider
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&links)
	if result.Error != nil {
		return nil, result.Error
	}
	return links, nil
}
