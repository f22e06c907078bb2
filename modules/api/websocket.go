package api

import (
	"context"
	"log"
	"sync"

	"github.com/gofiber/contrib/websocket"
)

// wsConn wraps a WebSocket connection for the relay. Broadcasts arrive
// from other goroutines while the read loop owns the socket, so writes
// are serialized with a mutex.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// WriteText writes a text frame to the peer.
func (w *wsConn) WriteText(data []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, data)
}

// handleWebSocket runs the per-connection read loop at /ws. All relay
// semantics live in the session; this loop only shuttles frames.
func (m *APIModule) handleWebSocket(c *websocket.Conn) {
	conn := &wsConn{conn: c}
	session := m.relay.NewSession(conn)

	ctx := context.Background()
	defer session.Close(ctx)

	for {
		messageType, raw, err := c.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Println("[api] WebSocket client closed connection")
			} else {
				log.Printf("[api] WebSocket read error: %v", err)
			}
			return
		}
		if messageType != websocket.TextMessage {
			continue
		}
		session.HandleDirective(ctx, raw)
	}
}
