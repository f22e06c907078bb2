package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	domain "github.com/example/chatflow/domain/chat"
	"github.com/example/chatflow/events"
)

// decodedFrame is a wire frame decoded for assertions.
type decodedFrame struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func decodeFrames(t *testing.T, conn *fakeConn) []decodedFrame {
	t.Helper()

	frames := make([]decodedFrame, 0, len(conn.writes))
	for _, raw := range conn.writes {
		var frame decodedFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("failed to decode frame %q: %v", raw, err)
		}
		frames = append(frames, frame)
	}
	return frames
}

func countFrames(frames []decodedFrame, frameType, userID string) int {
	n := 0
	for _, f := range frames {
		if f.Type == frameType && f.Data["userId"] == userID {
			n++
		}
	}
	return n
}

// setupSessions builds a registry/reconciler/router trio over a fake
// presence store and opens a session per connection.
func setupSessions(conns ...Conn) (map[Conn]*Session, *fakePresence, *Registry) {
	store := newFakePresence()
	registry := NewRegistry()
	reconciler := NewReconciler(store)
	router := NewRouter()

	sessions := make(map[Conn]*Session, len(conns))
	for _, conn := range conns {
		sessions[conn] = NewSession(conn, registry, reconciler, router)
	}
	return sessions, store, registry
}

func joinDirective(conversationID, userID string) []byte {
	raw, _ := json.Marshal(Directive{Type: DirectiveJoin, ConversationID: conversationID, UserID: userID})
	return raw
}

func typingDirective(start bool, conversationID, userID string) []byte {
	directiveType := DirectiveTypingStop
	if start {
		directiveType = DirectiveTypingStart
	}
	raw, _ := json.Marshal(Directive{Type: directiveType, ConversationID: conversationID, UserID: userID})
	return raw
}

func TestSession_TypingReachesPeersOnly(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, _, _ := setupSessions(x, y)

	sessions[x].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))

	// Clear the join-presence frames before asserting on typing.
	x.writes = nil
	y.writes = nil

	sessions[x].HandleDirective(ctx, typingDirective(true, "c1", "u1"))

	yFrames := decodeFrames(t, y)
	if got := countFrames(yFrames, FrameTypingStart, "u1"); got != 1 {
		t.Errorf("expected y to receive exactly one typing_start for u1, got %d", got)
	}
	if len(x.writes) != 0 {
		t.Errorf("expected no echo to the typist, got %d frames", len(x.writes))
	}
}

func TestSession_JoinAnnouncesPresence(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, store, _ := setupSessions(x, y)

	sessions[x].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))

	if !store.online["u1"] || !store.online["u2"] {
		t.Error("expected both users marked online")
	}

	// x was alone when it joined; y's join must have reached x.
	xFrames := decodeFrames(t, x)
	if got := countFrames(xFrames, FrameUserOnline, "u2"); got != 1 {
		t.Errorf("expected x to see u2 come online once, got %d", got)
	}
}

func TestSession_MessageBroadcastExcludesSenderByUser(t *testing.T) {
	x := &fakeConn{name: "x"}       // u1's first connection
	phone := &fakeConn{name: "p"}   // u1's second connection
	z := &fakeConn{name: "z"}       // u3
	sessions, _, _ := setupSessions(x, phone, z)

	ctx := context.Background()
	sessions[x].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[phone].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[z].HandleDirective(ctx, joinDirective("c1", "u3"))

	x.writes = nil
	phone.writes = nil
	z.writes = nil

	module := NewModule()
	module.registry = sessionRegistry(sessions)
	if err := module.handleMessageCreated(ctx, events.MessageCreatedEvent{
		ConversationID: "c1",
		SenderID:       "u1",
		Message:        domain.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hello"},
	}, nil); err != nil {
		t.Fatalf("handleMessageCreated() error = %v", err)
	}

	if len(x.writes) != 0 || len(phone.writes) != 0 {
		t.Error("expected no message echo to any of the sender's connections")
	}

	zFrames := decodeFrames(t, z)
	if len(zFrames) != 1 || zFrames[0].Type != FrameMessage {
		t.Fatalf("expected exactly one message frame for z, got %+v", zFrames)
	}
	if zFrames[0].Data["content"] != "hello" {
		t.Errorf("expected full message record, got %+v", zFrames[0].Data)
	}
}

// sessionRegistry extracts the shared registry from any session.
func sessionRegistry(sessions map[Conn]*Session) *Registry {
	for _, s := range sessions {
		return s.registry
	}
	return nil
}

func TestSession_DisconnectAnnouncesOfflineOnce(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, store, registry := setupSessions(x, y)

	sessions[x].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))
	y.writes = nil

	sessions[x].Close(ctx)
	sessions[x].Close(ctx) // racing second close signal

	yFrames := decodeFrames(t, y)
	if got := countFrames(yFrames, FrameUserOffline, "u1"); got != 1 {
		t.Errorf("expected exactly one user_offline for u1, got %d", got)
	}
	if got := countFrames(yFrames, FrameTypingStop, "u1"); got != 1 {
		t.Errorf("expected exactly one typing_stop for u1, got %d", got)
	}
	if store.online["u1"] {
		t.Error("expected u1 marked offline")
	}
	if registry.ConnectionCount() != 1 {
		t.Errorf("expected only y registered, got %d", registry.ConnectionCount())
	}
}

func TestSession_ConcurrentCloseRunsTeardownOnce(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, _, _ := setupSessions(x, y)

	sessions[x].HandleDirective(ctx, joinDirective("c1", "u1"))
	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))
	y.writes = nil

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sessions[x].Close(ctx)
		}()
	}
	wg.Wait()

	yFrames := decodeFrames(t, y)
	if got := countFrames(yFrames, FrameUserOffline, "u1"); got != 1 {
		t.Errorf("expected exactly one user_offline under racing closes, got %d", got)
	}
}

func TestSession_UnjoinedCloseIsQuiet(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, store, _ := setupSessions(x, y)

	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))
	y.writes = nil

	sessions[x].Close(ctx)

	if len(y.writes) != 0 {
		t.Errorf("expected no frames for a never-joined disconnect, got %d", len(y.writes))
	}
	if _, ok := store.online["u1"]; ok {
		t.Error("expected no presence write for a never-joined disconnect")
	}
}

func TestSession_MalformedAndEarlyDirectives(t *testing.T) {
	ctx := context.Background()
	x := &fakeConn{name: "x"}
	y := &fakeConn{name: "y"}
	sessions, store, registry := setupSessions(x, y)

	sessions[y].HandleDirective(ctx, joinDirective("c1", "u2"))
	y.writes = nil

	t.Run("unparseable frame is dropped", func(t *testing.T) {
		sessions[x].HandleDirective(ctx, []byte("{not json"))
		if registry.ConnectionCount() != 2 {
			t.Error("connection must stay registered after a malformed frame")
		}
	})

	t.Run("join with missing fields is dropped", func(t *testing.T) {
		sessions[x].HandleDirective(ctx, []byte(`{"type":"join_conversation","conversationId":"c1"}`))
		if len(registry.MembersOf("c1", nil)) != 1 {
			t.Error("incomplete join must not register membership")
		}
	})

	t.Run("typing before join is ignored", func(t *testing.T) {
		sessions[x].HandleDirective(ctx, typingDirective(true, "c1", "u1"))
		if len(y.writes) != 0 {
			t.Errorf("expected no typing broadcast before join, got %d frames", len(y.writes))
		}
		if _, ok := store.typing["c1/u1"]; ok {
			t.Error("expected no typing upsert before join")
		}
	})

	t.Run("unrecognized type is dropped", func(t *testing.T) {
		sessions[x].HandleDirective(ctx, []byte(`{"type":"ping"}`))
		if len(x.writes) != 0 {
			t.Error("expected no reply to unrecognized directives")
		}
	})
}

func TestRouter_WriteFailureIsIsolated(t *testing.T) {
	broken := &fakeConn{name: "broken", fail: true}
	healthy := &fakeConn{name: "healthy"}

	router := NewRouter()
	router.Broadcast(TypingFrame("u1", true), []Conn{broken, healthy})

	if len(healthy.writes) != 1 {
		t.Errorf("expected delivery to the healthy peer, got %d frames", len(healthy.writes))
	}
}
