package auth

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"

	"github.com/example/chatflow/modules/storage"
)

// AuthModule provides authentication services.
type AuthModule struct {
	store   *storage.StorageModule
	service *AuthService

	janitorStop chan struct{}
}

// Compile-time interface checks.
var _ mono.Module = (*AuthModule)(nil)
var _ mono.HealthCheckableModule = (*AuthModule)(nil)

// NewModule creates a new AuthModule.
func NewModule() *AuthModule {
	return &AuthModule{
		janitorStop: make(chan struct{}),
	}
}

// SetStorage injects the storage module. Must be called before Start.
func (m *AuthModule) SetStorage(store *storage.StorageModule) {
	m.store = store
}

// Name returns the module name.
func (m *AuthModule) Name() string {
	return "auth"
}

// Start initializes the auth module.
func (m *AuthModule) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("storage module not set")
	}

	config := loadJWTConfig()
	if config.SecretKey == "" {
		return fmt.Errorf("JWT_SECRET_KEY is not set")
	}

	hasher := NewPasswordHasher()
	jwtManager := NewJWTManager(config)
	mailer := NewMailerFromEnv()

	m.service = NewAuthService(
		m.store.Users(),
		m.store.Tokens(),
		m.store.Providers(),
		hasher,
		jwtManager,
		mailer,
	)

	go m.runTokenJanitor()

	log.Printf("[auth] Module started (mailer configured: %v)", mailer.Configured())
	return nil
}

// Stop shuts down the module.
func (m *AuthModule) Stop(_ context.Context) error {
	close(m.janitorStop)
	log.Println("[auth] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *AuthModule) Health(_ context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
	}
}

// GetService returns the auth service for direct use by other modules.
func (m *AuthModule) GetService() *AuthService {
	return m.service
}

// runTokenJanitor deletes expired reset and verification tokens hourly.
func (m *AuthModule) runTokenJanitor() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := m.service.CleanupExpiredTokens(ctx); err != nil {
				log.Printf("[auth] Token cleanup failed: %v", err)
			}
			cancel()
		case <-m.janitorStop:
			return
		}
	}
}

// loadJWTConfig loads JWT configuration from environment variables.
func loadJWTConfig() JWTConfig {
	config := DefaultJWTConfig()

	if secret := os.Getenv("JWT_SECRET_KEY"); secret != "" {
		config.SecretKey = secret
	}

	if issuer := os.Getenv("JWT_ISSUER"); issuer != "" {
		config.Issuer = issuer
	}

	return config
}
