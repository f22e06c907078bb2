package files

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/go-monolith/mono"
)

// FilesModule provides attachment storage using NATS JetStream Object Store.
type FilesModule struct {
	store   *JetStreamObjectStore
	service *Service
	natsURL string
	bucket  string
}

// Compile-time interface checks.
var _ mono.Module = (*FilesModule)(nil)
var _ mono.HealthCheckableModule = (*FilesModule)(nil)

// NewModule creates a new FilesModule.
func NewModule() *FilesModule {
	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}
	bucket := os.Getenv("NATS_BUCKET")
	if bucket == "" {
		bucket = "attachments"
	}
	return &FilesModule{
		natsURL: natsURL,
		bucket:  bucket,
	}
}

// Name returns the module name.
func (m *FilesModule) Name() string {
	return "files"
}

// Start initializes the module and connects to NATS JetStream.
func (m *FilesModule) Start(ctx context.Context) error {
	var err error
	m.store, err = NewJetStreamObjectStore(m.natsURL, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to create object store: %w", err)
	}

	if err := m.store.Init(ctx); err != nil {
		m.store.Close()
		return fmt.Errorf("failed to initialize object store: %w", err)
	}

	m.service = NewService(m.store)

	log.Printf("[files] Module started (NATS: %s, bucket: %s)", m.natsURL, m.bucket)
	return nil
}

// Stop shuts down the module.
func (m *FilesModule) Stop(_ context.Context) error {
	if m.store != nil {
		m.store.Close()
	}
	log.Println("[files] Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *FilesModule) Health(_ context.Context) mono.HealthStatus {
	healthy := m.store != nil && m.store.IsConnected()
	message := "connected"
	if !healthy {
		message = "disconnected"
	}
	return mono.HealthStatus{
		Healthy: healthy,
		Message: message,
		Details: map[string]any{
			"nats_url": m.natsURL,
			"bucket":   m.bucket,
		},
	}
}

// GetService returns the file service for direct use by other modules.
func (m *FilesModule) GetService() *Service {
	return m.service
}
