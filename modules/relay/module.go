package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/chatflow/events"
	"github.com/example/chatflow/modules/storage"
)

// RelayModule fans chat events out to live WebSocket connections. It
// consumes MessageCreated events from the chat module and relays
// presence and typing changes between connections.
type RelayModule struct {
	registry   *Registry
	reconciler *Reconciler
	router     *Router
	store      *storage.StorageModule
}

// Compile-time interface checks.
var _ mono.Module = (*RelayModule)(nil)
var _ mono.EventConsumerModule = (*RelayModule)(nil)
var _ mono.HealthCheckableModule = (*RelayModule)(nil)

// NewModule creates a new RelayModule.
func NewModule() *RelayModule {
	return &RelayModule{
		registry: NewRegistry(),
		router:   NewRouter(),
	}
}

// SetStorage injects the storage module. Must be called before Start.
func (m *RelayModule) SetStorage(store *storage.StorageModule) {
	m.store = store
}

// Name returns the module name.
func (m *RelayModule) Name() string {
	return "relay"
}

// Start initializes the reconciler over the storage repositories.
func (m *RelayModule) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("storage module not set")
	}
	m.reconciler = NewReconciler(&storePresence{store: m.store})
	log.Println("[relay] Module started")
	return nil
}

// Stop shuts down the module.
func (m *RelayModule) Stop(_ context.Context) error {
	log.Printf("[relay] Module stopped (%d connections were live)", m.registry.ConnectionCount())
	return nil
}

// Health returns the health status of the module.
func (m *RelayModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":   m.registry.ConnectionCount(),
			"conversations": m.registry.ConversationCount(),
		},
	}
}

// RegisterEventConsumers subscribes to chat events.
func (m *RelayModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.MessageCreatedV1, m.handleMessageCreated, m,
	); err != nil {
		return fmt.Errorf("failed to register MessageCreated consumer: %w", err)
	}

	log.Println("[relay] Registered event consumers: MessageCreated")
	return nil
}

// handleMessageCreated broadcasts a persisted message to the live
// members of its conversation. The sender's connections are excluded by
// user identity: the sender already holds the message from the create
// response, on every device.
func (m *RelayModule) handleMessageCreated(_ context.Context, event events.MessageCreatedEvent, _ *mono.Msg) error {
	targets := m.registry.MembersOfExcludingUser(event.ConversationID, event.SenderID)
	m.router.Broadcast(MessageFrame(event.Message), targets)
	return nil
}

// NewSession registers a transport connection and returns its lifecycle
// handler. Called by the WebSocket endpoint for each accepted upgrade.
func (m *RelayModule) NewSession(conn Conn) *Session {
	return NewSession(conn, m.registry, m.reconciler, m.router)
}

// storePresence adapts the storage repositories to the PresenceStore
// interface.
type storePresence struct {
	store *storage.StorageModule
}

func (p *storePresence) SetUserOnline(ctx context.Context, userID string, online bool) error {
	return p.store.Users().SetOnline(ctx, userID, online)
}

func (p *storePresence) UpsertTyping(ctx context.Context, conversationID, userID string, isTyping bool) error {
	return p.store.Typing().Upsert(ctx, conversationID, userID, isTyping)
}
