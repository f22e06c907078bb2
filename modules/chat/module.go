package chat

import (
	"context"
	"fmt"
	"log"

	"github.com/go-monolith/mono"

	"github.com/example/chatflow/events"
	"github.com/example/chatflow/modules/cache"
	"github.com/example/chatflow/modules/storage"
)

// ChatModule owns conversations and messages and emits MessageCreated
// events for the relay to fan out.
type ChatModule struct {
	store    *storage.StorageModule
	cacheMod *cache.CacheModule
	service  *Service
	eventBus mono.EventBus
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*ChatModule)(nil)
	_ mono.HealthCheckableModule = (*ChatModule)(nil)
	_ mono.EventBusAwareModule   = (*ChatModule)(nil)
	_ mono.EventEmitterModule    = (*ChatModule)(nil)
)

// NewModule creates a new ChatModule.
func NewModule() *ChatModule {
	return &ChatModule{}
}

// SetStorage injects the storage module. Must be called before Start.
func (m *ChatModule) SetStorage(store *storage.StorageModule) {
	m.store = store
}

// SetCache injects the cache module. Optional.
func (m *ChatModule) SetCache(cacheMod *cache.CacheModule) {
	m.cacheMod = cacheMod
}

// SetEventBus receives the EventBus from the framework.
func (m *ChatModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
	if m.service != nil {
		m.service.SetEventBus(bus)
	}
}

// EmitEvents declares the events this module can emit.
func (m *ChatModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.MessageCreatedV1.ToBase(),
	}
}

// Name returns the module name.
func (m *ChatModule) Name() string {
	return "chat"
}

// Start initializes the chat service.
func (m *ChatModule) Start(_ context.Context) error {
	if m.store == nil {
		return fmt.Errorf("storage module not set")
	}

	var c *cache.Cache
	if m.cacheMod != nil {
		c = m.cacheMod.GetCache()
	}

	m.service = NewService(m.store, c)
	m.service.SetEventBus(m.eventBus)

	log.Println("[chat] Module started")
	return nil
}

// Stop shuts down the module.
func (m *ChatModule) Stop(_ context.Context) error {
	log.Println("[chat] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *ChatModule) Health(_ context.Context) mono.HealthStatus {
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

// GetService returns the chat service for direct use by other modules.
func (m *ChatModule) GetService() *Service {
	return m.service
}
