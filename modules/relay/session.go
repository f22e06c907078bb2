package relay

import (
	"context"
	"encoding/json"
	"log"
	"sync"
)

// Session is the per-connection lifecycle handler. Directives are
// processed serially by the connection's read loop; Close may be called
// from any goroutine and runs teardown exactly once.
type Session struct {
	conn       Conn
	registry   *Registry
	reconciler *Reconciler
	router     *Router

	joined    bool
	closeOnce sync.Once
}

// NewSession registers the connection and returns its session.
func NewSession(conn Conn, registry *Registry, reconciler *Reconciler, router *Router) *Session {
	registry.Register(conn)
	return &Session{
		conn:       conn,
		registry:   registry,
		reconciler: reconciler,
		router:     router,
	}
}

// HandleDirective processes one inbound frame. Malformed or unrecognized
// directives are logged and dropped; the connection stays open.
func (s *Session) HandleDirective(ctx context.Context, raw []byte) {
	var directive Directive
	if err := json.Unmarshal(raw, &directive); err != nil {
		log.Printf("[relay] Dropping malformed frame: %v", err)
		return
	}

	switch directive.Type {
	case DirectiveJoin:
		s.handleJoin(ctx, directive)
	case DirectiveTypingStart:
		s.handleTyping(ctx, directive, true)
	case DirectiveTypingStop:
		s.handleTyping(ctx, directive, false)
	default:
		log.Printf("[relay] Dropping unrecognized directive type %q", directive.Type)
	}
}

func (s *Session) handleJoin(ctx context.Context, directive Directive) {
	if directive.ConversationID == "" || directive.UserID == "" {
		log.Printf("[relay] Dropping join directive with missing fields")
		return
	}

	s.registry.Join(s.conn, directive.UserID, directive.ConversationID)
	s.joined = true

	frame := s.reconciler.OnJoin(ctx, directive.UserID, directive.ConversationID)
	s.router.Broadcast(frame, s.registry.MembersOf(directive.ConversationID, s.conn))
}

func (s *Session) handleTyping(ctx context.Context, directive Directive, isTyping bool) {
	if !s.joined {
		return
	}
	if directive.ConversationID == "" || directive.UserID == "" {
		log.Printf("[relay] Dropping typing directive with missing fields")
		return
	}

	frame := s.reconciler.OnTypingChange(ctx, directive.UserID, directive.ConversationID, isTyping)
	s.router.Broadcast(frame, s.registry.MembersOf(directive.ConversationID, s.conn))
}

// Close runs disconnect teardown. Exactly once per session, regardless of
// how many close signals race in.
func (s *Session) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		userID, conversationID, joined := s.registry.Unregister(s.conn)
		if !joined {
			return
		}
		for _, frame := range s.reconciler.OnDisconnect(ctx, userID, conversationID) {
			s.router.Broadcast(frame, s.registry.MembersOf(conversationID, nil))
		}
	})
}
