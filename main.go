package main

import (
	"context"
	"log"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/chatflow/modules/api"
	"github.com/example/chatflow/modules/auth"
	"github.com/example/chatflow/modules/cache"
	"github.com/example/chatflow/modules/chat"
	"github.com/example/chatflow/modules/files"
	"github.com/example/chatflow/modules/relay"
	"github.com/example/chatflow/modules/storage"
)

const shutdownTimeout = 30 * time.Second

func main() {
	log.Println("=== ChatFlow ===")

	// Create mono application
	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(shutdownTimeout),
		mono.WithLogLevel(mono.LogLevelInfo),
		mono.WithLogFormat(mono.LogFormatText),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	// Create modules
	storageModule := storage.NewModule()
	cacheModule := cache.NewModule()
	authModule := auth.NewModule()
	chatModule := chat.NewModule()
	filesModule := files.NewModule()
	relayModule := relay.NewModule()
	apiModule := api.NewModule()

	// Wire dependencies. Modules only hold references here; each one
	// resolves its services in Start, after its dependencies started.
	authModule.SetStorage(storageModule)
	chatModule.SetStorage(storageModule)
	chatModule.SetCache(cacheModule)
	relayModule.SetStorage(storageModule)
	apiModule.SetAuth(authModule)
	apiModule.SetChat(chatModule)
	apiModule.SetFiles(filesModule)
	apiModule.SetRelay(relayModule)

	// Register modules with the framework
	// Order: independent modules first, then dependent modules
	app.Register(storageModule)
	app.Register(cacheModule)
	app.Register(authModule)
	app.Register(chatModule)
	app.Register(filesModule)
	app.Register(relayModule)
	app.Register(apiModule)

	// Start application
	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo()

	// Graceful shutdown
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}

func printStartupInfo() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	log.Printf("REST API Endpoints (http://localhost:%s):", port)
	log.Println("")
	log.Println("  Public Endpoints:")
	log.Println("  POST   /api/auth/register             - Register a new user")
	log.Println("  POST   /api/auth/login                - Login and get tokens")
	log.Println("  POST   /api/auth/google               - Login with a Google profile")
	log.Println("  POST   /api/auth/refresh              - Refresh access token")
	log.Println("  POST   /api/auth/forgot-password      - Request a password reset")
	log.Println("  POST   /api/auth/reset-password       - Reset password with a token")
	log.Println("  POST   /api/auth/verify-email         - Verify email with a token")
	log.Println("  GET    /api/files/:id/:name           - Download an attachment")
	log.Println("  GET    /health                        - Health check")
	log.Println("")
	log.Println("  Protected Endpoints (require Bearer token):")
	log.Println("  GET    /api/auth/me                   - Get current user")
	log.Println("  GET    /api/conversations             - List conversations")
	log.Println("  POST   /api/conversations             - Create a conversation")
	log.Println("  GET    /api/conversations/:id         - Get a conversation")
	log.Println("  GET    /api/conversations/:id/messages  - List messages")
	log.Println("  POST   /api/conversations/:id/messages  - Send a message")
	log.Println("  POST   /api/conversations/:id/read    - Mark conversation read")
	log.Println("  GET    /api/conversations/:id/typing  - Who is typing now")
	log.Println("  POST   /api/files                     - Upload an attachment")
	log.Println("")
	log.Printf("WebSocket: ws://localhost:%s/ws", port)
	log.Println("  -> join_conversation / typing_start / typing_stop")
	log.Println("  <- message / typing_start / typing_stop / user_online / user_offline")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
