package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"time"

	"github.com/google/uuid"

	domain "github.com/example/chatflow/domain/chat"
	"github.com/example/chatflow/modules/storage"
)

var (
	// ErrInvalidCredentials is returned when login credentials are invalid.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail is returned when email format is invalid.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrWeakPassword is returned when password is too weak.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrPasswordTooLong is returned when password exceeds bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("password must be at most 72 characters")
	// ErrInvalidResetToken is returned when a reset token is unknown, used or expired.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
	// ErrInvalidVerifyToken is returned when a verification token is unknown, used or expired.
	ErrInvalidVerifyToken = errors.New("invalid or expired verification token")
)

const (
	passwordResetTTL     = time.Hour
	emailVerificationTTL = 24 * time.Hour
)

// AuthService handles authentication business logic.
type AuthService struct {
	users     *storage.UserRepository
	tokens    *storage.TokenRepository
	providers *storage.AuthProviderRepository
	hasher    *PasswordHasher
	jwt       *JWTManager
	mailer    *Mailer
}

// NewAuthService creates a new AuthService.
func NewAuthService(
	users *storage.UserRepository,
	tokens *storage.TokenRepository,
	providers *storage.AuthProviderRepository,
	hasher *PasswordHasher,
	jwt *JWTManager,
	mailer *Mailer,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		providers: providers,
		hasher:    hasher,
		jwt:       jwt,
		mailer:    mailer,
	}
}

// Register creates a new user account and sends a verification email.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return nil, ErrInvalidEmail
	}

	// bcrypt has a 72-byte limit
	if len(input.Password) < 8 {
		return nil, ErrWeakPassword
	}
	if len(input.Password) > 72 {
		return nil, ErrPasswordTooLong
	}

	exists, err := s.users.EmailExists(ctx, input.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if exists {
		return nil, storage.ErrUserExists
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: passwordHash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate verification token: %w", err)
	}
	if err := s.tokens.CreateEmailVerification(ctx, user.ID, token, time.Now().Add(emailVerificationTTL)); err != nil {
		return nil, fmt.Errorf("failed to store verification token: %w", err)
	}
	if err := s.mailer.SendEmailVerification(user.Email, token); err != nil {
		// Registration itself succeeded; the user can request a new mail.
		log.Printf("[auth] Failed to send verification email to %s: %v", user.Email, err)
	}

	return user, nil
}

// Login authenticates a user and returns tokens.
func (s *AuthService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if user.PasswordHash == "" || !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokenPair(user.ID, user.Email)
}

// GoogleLogin signs a user in with a verified Google identity, creating
// the account and provider link on first use.
func (s *AuthService) GoogleLogin(ctx context.Context, profile GoogleProfile) (*domain.User, *TokenPair, error) {
	if profile.Email == "" || profile.Sub == "" {
		return nil, nil, ErrInvalidCredentials
	}

	// Google accounts arrive with a verified email.
	user, err := s.users.UpsertByEmail(ctx, &domain.User{
		ID:              uuid.New().String(),
		Email:           profile.Email,
		FirstName:       profile.GivenName,
		LastName:        profile.FamilyName,
		ProfileImageURL: profile.Picture,
		EmailVerified:   true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if _, err := s.providers.Find(ctx, "google", profile.Sub); err != nil {
		if !errors.Is(err, storage.ErrProviderNotFound) {
			return nil, nil, fmt.Errorf("failed to look up provider link: %w", err)
		}
		if err := s.providers.Link(ctx, user.ID, "google", profile.Sub); err != nil {
			return nil, nil, fmt.Errorf("failed to link provider: %w", err)
		}
	}

	tokens, err := s.generateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

// RefreshTokens generates new access and refresh tokens.
func (s *AuthService) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	return s.generateTokenPair(user.ID, user.Email)
}

// ValidateToken validates an access token and returns claims.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*Claims, error) {
	claims, err := s.jwt.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}

	return &Claims{
		UserID: claims.UserID,
		Email:  claims.Email,
	}, nil
}

// GetUser retrieves a user by ID.
func (s *AuthService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ForgotPassword creates a reset token and emails it. Unknown emails are
// silently accepted so the endpoint does not leak which accounts exist.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	token, err := generateToken()
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}
	if err := s.tokens.CreatePasswordReset(ctx, user.ID, token, time.Now().Add(passwordResetTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	return s.mailer.SendPasswordReset(user.Email, token)
}

// ResetPassword consumes a reset token and replaces the user's password.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return ErrWeakPassword
	}
	if len(newPassword) > 72 {
		return ErrPasswordTooLong
	}

	reset, err := s.tokens.FindPasswordReset(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	if time.Now().After(reset.ExpiresAt) {
		return ErrInvalidResetToken
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, reset.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return s.tokens.MarkPasswordResetUsed(ctx, reset.ID)
}

// VerifyEmail consumes a verification token and marks the user verified.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	verification, err := s.tokens.FindEmailVerification(ctx, token)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			return ErrInvalidVerifyToken
		}
		return fmt.Errorf("failed to find verification token: %w", err)
	}
	if time.Now().After(verification.ExpiresAt) {
		return ErrInvalidVerifyToken
	}

	if err := s.users.SetEmailVerified(ctx, verification.UserID, true); err != nil {
		return fmt.Errorf("failed to mark email verified: %w", err)
	}
	return s.tokens.MarkEmailVerificationUsed(ctx, verification.ID)
}

// CleanupExpiredTokens deletes expired reset and verification tokens.
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) error {
	return s.tokens.DeleteExpired(ctx)
}

// generateTokenPair generates both access and refresh tokens.
func (s *AuthService) generateTokenPair(userID, email string) (*TokenPair, error) {
	accessToken, err := s.jwt.GenerateAccessToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := s.jwt.GenerateRefreshToken(userID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    s.jwt.AccessTokenDuration(),
		TokenType:    "Bearer",
	}, nil
}

// generateToken returns 32 random bytes hex-encoded, for reset and
// verification links.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
