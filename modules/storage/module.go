package storage

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	domain "github.com/example/chatflow/domain/chat"
)

// StorageModule owns the application database and its repositories.
type StorageModule struct {
	db     *gorm.DB
	dbPath string

	users         *UserRepository
	tokens        *TokenRepository
	providers     *AuthProviderRepository
	conversations *ConversationRepository
	messages      *MessageRepository
	typing        *TypingRepository
}

// Compile-time interface checks.
var _ mono.Module = (*StorageModule)(nil)
var _ mono.HealthCheckableModule = (*StorageModule)(nil)

// NewModule creates a new StorageModule.
func NewModule() *StorageModule {
	dbPath := os.Getenv("CHAT_DB_PATH")
	if dbPath == "" {
		dbPath = "chatflow.db"
	}
	return &StorageModule{
		dbPath: dbPath,
	}
}

// Name returns the module name.
func (m *StorageModule) Name() string {
	return "storage"
}

// Start opens the database, runs migrations and builds the repositories.
func (m *StorageModule) Start(_ context.Context) error {
	log.Printf("[storage] Connecting to SQLite database: %s", m.dbPath)

	logLevel := logger.Silent
	if os.Getenv("DB_DEBUG") == "true" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(m.dbPath), &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	m.db = db

	if err := Migrate(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	m.users = NewUserRepository(db)
	m.tokens = NewTokenRepository(db)
	m.providers = NewAuthProviderRepository(db)
	m.conversations = NewConversationRepository(db)
	m.messages = NewMessageRepository(db)
	m.typing = NewTypingRepository(db)

	log.Println("[storage] Module started successfully")
	return nil
}

// Stop closes the database connection.
func (m *StorageModule) Stop(_ context.Context) error {
	if m.db == nil {
		return nil
	}

	log.Println("[storage] Closing database connection...")

	sqlDB, err := m.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("[storage] Database connection closed")
	return nil
}

// Health performs a health check on the storage module.
func (m *StorageModule) Health(ctx context.Context) mono.HealthStatus {
	if m.db == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "database not initialized",
		}
	}

	sqlDB, err := m.db.DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}

// Migrate runs auto-migrations for all chat entities.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.User{},
		&domain.AuthProvider{},
		&domain.PasswordResetToken{},
		&domain.EmailVerificationToken{},
		&domain.Conversation{},
		&domain.ConversationParticipant{},
		&domain.Message{},
		&domain.TypingStatus{},
	)
}

// Users returns the user repository.
func (m *StorageModule) Users() *UserRepository { return m.users }

// Tokens returns the token repository.
func (m *StorageModule) Tokens() *TokenRepository { return m.tokens }

// Providers returns the auth provider repository.
func (m *StorageModule) Providers() *AuthProviderRepository { return m.providers }

// Conversations returns the conversation repository.
func (m *StorageModule) Conversations() *ConversationRepository { return m.conversations }

// Messages returns the message repository.
func (m *StorageModule) Messages() *MessageRepository { return m.messages }

// Typing returns the typing status repository.
func (m *StorageModule) Typing() *TypingRepository { return m.typing }
