package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/example/chatflow/modules/auth"
)

func TestLogout(t *testing.T) {
	validator := &mockValidator{
		validateTokenFunc: func(ctx context.Context, token string) (*auth.Claims, error) {
			return &auth.Claims{UserID: "user-1", Email: "alice@example.com"}, nil
		},
	}

	m := &APIModule{}
	app := fiber.New()
	app.Post("/api/auth/logout", AuthMiddleware(validator), m.logout)

	t.Run("requires authentication", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/logout", nil)

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusUnauthorized)
		}
	})

	t.Run("authenticated logout succeeds", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/api/auth/logout", nil)
		req.Header.Set("Authorization", "Bearer valid-token")

		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("app.Test() error = %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %v, want %v", resp.StatusCode, http.StatusOK)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatalf("io.ReadAll() error = %v", err)
		}
		if !strings.Contains(string(body), "logged out") {
			t.Errorf("body = %v, want to contain %q", string(body), "logged out")
		}
	})
}
