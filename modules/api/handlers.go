package api

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/example/chatflow/modules/auth"
	"github.com/example/chatflow/modules/chat"
	"github.com/example/chatflow/modules/files"
	"github.com/example/chatflow/modules/storage"
)

const defaultMessageLimit = 50

// setupRoutes configures all HTTP routes.
func (m *APIModule) setupRoutes() {
	m.app.Get("/health", m.healthHandler)

	// WebSocket endpoint
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Get("/ws", websocket.New(m.handleWebSocket))

	authGroup := m.app.Group("/api/auth")
	authGroup.Post("/register", m.register)
	authGroup.Post("/login", m.login)
	authGroup.Post("/google", m.googleLogin)
	authGroup.Post("/refresh", m.refresh)
	authGroup.Post("/forgot-password", m.forgotPassword)
	authGroup.Post("/reset-password", m.resetPassword)
	authGroup.Post("/verify-email", m.verifyEmail)

	authed := AuthMiddleware(m.authService())
	authGroup.Get("/me", authed, m.me)
	authGroup.Post("/logout", authed, m.logout)

	conversations := m.app.Group("/api/conversations", authed)
	conversations.Get("/", m.listConversations)
	conversations.Post("/", m.createConversation)
	conversations.Get("/:id", m.getConversation)
	conversations.Get("/:id/messages", m.listMessages)
	conversations.Post("/:id/messages", m.sendMessage)
	conversations.Post("/:id/read", m.markRead)
	conversations.Get("/:id/typing", m.typingUsers)

	m.app.Post("/api/files", authed, m.uploadFile)
	m.app.Get("/api/files/:id/:name", m.downloadFile)
}

// healthHandler handles GET /health.
func (m *APIModule) healthHandler(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "healthy"})
}

// register handles POST /api/auth/register.
func (m *APIModule) register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, err := m.authService().Register(c.UserContext(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrUserExists):
			return conflict(c, "An account with this email already exists")
		case errors.Is(err, auth.ErrInvalidEmail),
			errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrPasswordTooLong):
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to register")
	}

	tokens, err := m.authService().Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return internalError(c, "Failed to issue tokens")
	}

	return c.Status(fiber.StatusCreated).JSON(AuthResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// login handles POST /api/auth/login.
func (m *APIModule) login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tokens, err := m.authService().Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return unauthorized(c, "Invalid email or password")
		}
		return internalError(c, "Failed to log in")
	}

	claims, err := m.authService().ValidateToken(c.UserContext(), tokens.AccessToken)
	if err != nil {
		return internalError(c, "Failed to log in")
	}
	user, err := m.authService().GetUser(c.UserContext(), claims.UserID)
	if err != nil {
		return internalError(c, "Failed to log in")
	}

	return c.JSON(AuthResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// googleLogin handles POST /api/auth/google with a verified profile payload.
func (m *APIModule) googleLogin(c *fiber.Ctx) error {
	var profile auth.GoogleProfile
	if err := c.BodyParser(&profile); err != nil {
		return badRequest(c, "Invalid request body")
	}

	user, tokens, err := m.authService().GoogleLogin(c.UserContext(), profile)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return unauthorized(c, "Invalid Google profile")
		}
		return internalError(c, "Failed to log in with Google")
	}

	return c.JSON(AuthResponse{
		User:         user,
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// refresh handles POST /api/auth/refresh.
func (m *APIModule) refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	tokens, err := m.authService().RefreshTokens(c.UserContext(), req.RefreshToken)
	if err != nil {
		return unauthorized(c, "Invalid or expired refresh token")
	}

	return c.JSON(AuthResponse{
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
		ExpiresIn:    tokens.ExpiresIn,
		TokenType:    tokens.TokenType,
	})
}

// forgotPassword handles POST /api/auth/forgot-password. Always answers
// 200 so the endpoint does not reveal which accounts exist.
func (m *APIModule) forgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := m.authService().ForgotPassword(c.UserContext(), req.Email); err != nil {
		if errors.Is(err, auth.ErrMailerNotConfigured) {
			return internalError(c, "Password reset mail is not configured")
		}
		return internalError(c, "Failed to process request")
	}
	return c.JSON(StatusResponse{Status: "ok"})
}

// resetPassword handles POST /api/auth/reset-password.
func (m *APIModule) resetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := m.authService().ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidResetToken):
			return badRequest(c, "Invalid or expired reset token")
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrPasswordTooLong):
			return badRequest(c, err.Error())
		}
		return internalError(c, "Failed to reset password")
	}
	return c.JSON(StatusResponse{Status: "ok"})
}

// verifyEmail handles POST /api/auth/verify-email.
func (m *APIModule) verifyEmail(c *fiber.Ctx) error {
	var req VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := m.authService().VerifyEmail(c.UserContext(), req.Token); err != nil {
		if errors.Is(err, auth.ErrInvalidVerifyToken) {
			return badRequest(c, "Invalid or expired verification token")
		}
		return internalError(c, "Failed to verify email")
	}
	return c.JSON(StatusResponse{Status: "ok"})
}

// logout handles POST /api/auth/logout. Tokens are stateless, so there
// is no server-side session to destroy; the client discards its token
// pair and the WebSocket disconnect handles presence.
func (m *APIModule) logout(c *fiber.Ctx) error {
	return c.JSON(StatusResponse{Status: "logged out"})
}

// me handles GET /api/auth/me.
func (m *APIModule) me(c *fiber.Ctx) error {
	user, err := m.authService().GetUser(c.UserContext(), currentUser(c).UserID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return notFound(c, "User not found")
		}
		return internalError(c, "Failed to load user")
	}
	return c.JSON(user)
}

// listConversations handles GET /api/conversations.
func (m *APIModule) listConversations(c *fiber.Ctx) error {
	summaries, err := m.chatService().ListConversations(c.UserContext(), currentUser(c).UserID)
	if err != nil {
		return internalError(c, "Failed to list conversations")
	}
	return c.JSON(summaries)
}

// createConversation handles POST /api/conversations.
func (m *APIModule) createConversation(c *fiber.Ctx) error {
	var input chat.CreateConversationInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}

	conv, err := m.chatService().CreateConversation(c.UserContext(), currentUser(c).UserID, input)
	if err != nil {
		if errors.Is(err, chat.ErrNoParticipants) {
			return badRequest(c, "At least one participant is required")
		}
		return internalError(c, "Failed to create conversation")
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

// getConversation handles GET /api/conversations/:id.
func (m *APIModule) getConversation(c *fiber.Ctx) error {
	conv, err := m.chatService().GetConversation(c.UserContext(), c.Params("id"), currentUser(c).UserID)
	if err != nil {
		return conversationError(c, err)
	}
	return c.JSON(conv)
}

// listMessages handles GET /api/conversations/:id/messages.
func (m *APIModule) listMessages(c *fiber.Ctx) error {
	limit := defaultMessageLimit
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}
	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	messages, err := m.chatService().ListMessages(c.UserContext(), c.Params("id"), currentUser(c).UserID, limit, offset)
	if err != nil {
		return conversationError(c, err)
	}
	return c.JSON(messages)
}

// sendMessage handles POST /api/conversations/:id/messages.
func (m *APIModule) sendMessage(c *fiber.Ctx) error {
	var input chat.SendMessageInput
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, "Invalid request body")
	}
	input.ConversationID = c.Params("id")

	msg, err := m.chatService().SendMessage(c.UserContext(), currentUser(c).UserID, input)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
			return badRequest(c, err.Error())
		case errors.Is(err, chat.ErrNotParticipant):
			return forbidden(c, "Not a participant of this conversation")
		}
		return internalError(c, "Failed to send message")
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// markRead handles POST /api/conversations/:id/read.
func (m *APIModule) markRead(c *fiber.Ctx) error {
	var req MarkReadRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	if err := m.chatService().MarkRead(c.UserContext(), c.Params("id"), currentUser(c).UserID, req.LastMessageID); err != nil {
		return conversationError(c, err)
	}
	return c.JSON(StatusResponse{Status: "ok"})
}

// typingUsers handles GET /api/conversations/:id/typing.
func (m *APIModule) typingUsers(c *fiber.Ctx) error {
	typing, err := m.chatService().TypingUsers(c.UserContext(), c.Params("id"), currentUser(c).UserID)
	if err != nil {
		return conversationError(c, err)
	}
	return c.JSON(typing)
}

// uploadFile handles POST /api/files (multipart form, field "file").
func (m *APIModule) uploadFile(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "A file is required")
	}
	if header.Size > files.MaxFileSize {
		return tooLarge(c, "File exceeds the 10MB limit")
	}

	src, err := header.Open()
	if err != nil {
		return internalError(c, "Failed to read upload")
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, files.MaxFileSize+1))
	if err != nil {
		return internalError(c, "Failed to read upload")
	}

	meta, err := m.fileService().Upload(c.UserContext(), header.Filename, data, header.Header.Get("Content-Type"))
	if err != nil {
		switch {
		case errors.Is(err, files.ErrFileTooLarge):
			return tooLarge(c, "File exceeds the 10MB limit")
		case errors.Is(err, files.ErrFileTypeNotAllowed):
			return badRequest(c, "File type not allowed")
		}
		return internalError(c, "Failed to store file")
	}
	return c.Status(fiber.StatusCreated).JSON(meta)
}

// downloadFile handles GET /api/files/:id/:name.
func (m *APIModule) downloadFile(c *fiber.Ctx) error {
	data, meta, err := m.fileService().Get(c.UserContext(), c.Params("id"), c.Params("name"))
	if err != nil {
		return notFound(c, "File not found")
	}
	c.Set(fiber.HeaderContentType, meta.ContentType)
	return c.Send(data)
}

// conversationError maps chat service errors to HTTP responses.
func conversationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, chat.ErrNotParticipant):
		return forbidden(c, "Not a participant of this conversation")
	case errors.Is(err, storage.ErrConversationNotFound):
		return notFound(c, "Conversation not found")
	}
	return internalError(c, "Request failed")
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "validation_error", Message: message})
}

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Error: "unauthorized", Message: message})
}

func forbidden(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusForbidden).JSON(ErrorResponse{Error: "forbidden", Message: message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "not_found", Message: message})
}

func conflict(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "conflict", Message: message})
}

func tooLarge(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusRequestEntityTooLarge).JSON(ErrorResponse{Error: "too_large", Message: message})
}

func internalError(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "server_error", Message: message})
}
