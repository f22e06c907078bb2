package api

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/chatflow/modules/auth"
	"github.com/example/chatflow/modules/chat"
	"github.com/example/chatflow/modules/files"
	"github.com/example/chatflow/modules/relay"
)

// APIModule is the HTTP surface: REST endpoints plus the /ws upgrade.
type APIModule struct {
	app    *fiber.App
	port   string
	authM  *auth.AuthModule
	chatM  *chat.ChatModule
	filesM *files.FilesModule
	relay  *relay.RelayModule
}

// Compile-time interface checks.
var _ mono.Module = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates a new APIModule.
func NewModule() *APIModule {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	return &APIModule{
		port: port,
	}
}

// SetAuth injects the auth module. Must be called before Start.
func (m *APIModule) SetAuth(authM *auth.AuthModule) {
	m.authM = authM
}

// SetChat injects the chat module. Must be called before Start.
func (m *APIModule) SetChat(chatM *chat.ChatModule) {
	m.chatM = chatM
}

// SetFiles injects the files module. Must be called before Start.
func (m *APIModule) SetFiles(filesM *files.FilesModule) {
	m.filesM = filesM
}

// SetRelay injects the relay module. Must be called before Start.
func (m *APIModule) SetRelay(relayM *relay.RelayModule) {
	m.relay = relayM
}

func (m *APIModule) authService() *auth.AuthService { return m.authM.GetService() }
func (m *APIModule) chatService() *chat.Service     { return m.chatM.GetService() }
func (m *APIModule) fileService() *files.Service    { return m.filesM.GetService() }

// Name returns the module name.
func (m *APIModule) Name() string {
	return "api"
}

// Start initializes the Fiber HTTP server.
func (m *APIModule) Start(_ context.Context) error {
	if m.authM == nil || m.chatM == nil || m.filesM == nil || m.relay == nil {
		return fmt.Errorf("module dependencies not set")
	}

	m.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
		BodyLimit:             files.MaxFileSize + 1024*1024,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          60 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	m.app.Use(recover.New())
	m.app.Use(cors.New())
	m.app.Use(loggerMiddleware())

	m.setupRoutes()

	go func() {
		if err := m.app.Listen(":" + m.port); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%s", m.port)
	return nil
}

// Stop shuts down the Fiber HTTP server.
func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

// Health returns the health status.
func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port": m.port,
		},
	}
}

// customErrorHandler handles Fiber errors.
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(ErrorResponse{
		Error:   "server_error",
		Message: message,
	})
}

// loggerMiddleware returns a Fiber middleware for request logging.
func loggerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Skip logging for WebSocket upgrade requests
		if c.Get("Upgrade") == "websocket" {
			return c.Next()
		}
		err := c.Next()
		log.Printf("[api] %s %s %d", c.Method(), c.Path(), c.Response().StatusCode())
		return err
	}
}
