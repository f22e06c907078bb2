package relay

import (
	"sync"
)

// Conn is the transport half the registry needs: a way to write a text
// frame. Satisfied by *websocket.Conn via the session wrapper and by
// fakes in tests.
type Conn interface {
	WriteText(data []byte) error
}

// entry is a registered connection with its joined identity. userID and
// conversationID are either both set or both empty.
type entry struct {
	conn           Conn
	userID         string
	conversationID string
}

// Registry is the authoritative set of live connections, indexed by
// conversation for fan-out. Only the registry's own maps are touched
// under the lock; persistence and peer writes happen elsewhere.
type Registry struct {
	mu            sync.RWMutex
	entries       map[Conn]*entry
	conversations map[string]map[Conn]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries:       make(map[Conn]*entry),
		conversations: make(map[string]map[Conn]struct{}),
	}
}

// Register adds a connection with no joined conversation. Registering an
// already-registered connection is a no-op.
func (r *Registry) Register(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[conn]; ok {
		return
	}
	r.entries[conn] = &entry{conn: conn}
}

// Join binds a connection to a user and conversation. Re-joining
// overwrites the prior association; the connection is moved between
// conversation buckets so it is indexed exactly once.
func (r *Registry) Join(conn Conn, userID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[conn]
	if !ok {
		e = &entry{conn: conn}
		r.entries[conn] = e
	}

	if e.conversationID != "" && e.conversationID != conversationID {
		r.removeFromConversation(conn, e.conversationID)
	}

	e.userID = userID
	e.conversationID = conversationID

	bucket := r.conversations[conversationID]
	if bucket == nil {
		bucket = make(map[Conn]struct{})
		r.conversations[conversationID] = bucket
	}
	bucket[conn] = struct{}{}
}

// Unregister removes a connection and returns its last joined identity.
// The boolean is false when the connection was never joined. Safe to call
// repeatedly; later calls return false.
func (r *Registry) Unregister(conn Conn) (userID, conversationID string, joined bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[conn]
	if !ok {
		return "", "", false
	}
	delete(r.entries, conn)
	if e.conversationID != "" {
		r.removeFromConversation(conn, e.conversationID)
		return e.userID, e.conversationID, true
	}
	return "", "", false
}

// removeFromConversation drops conn from a conversation bucket. Caller
// must hold the write lock.
func (r *Registry) removeFromConversation(conn Conn, conversationID string) {
	bucket := r.conversations[conversationID]
	if bucket == nil {
		return
	}
	delete(bucket, conn)
	if len(bucket) == 0 {
		delete(r.conversations, conversationID)
	}
}

// MembersOf returns a snapshot of the connections joined to a
// conversation, excluding the given connection. Pass nil to exclude none.
func (r *Registry) MembersOf(conversationID string, excluding Conn) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.conversations[conversationID]
	conns := make([]Conn, 0, len(bucket))
	for conn := range bucket {
		if conn == excluding {
			continue
		}
		conns = append(conns, conn)
	}
	return conns
}

// MembersOfExcludingUser returns the connections joined to a conversation
// that do not belong to the given user. Exclusion is by user identity,
// not connection, since a user may hold several connections at once.
func (r *Registry) MembersOfExcludingUser(conversationID, userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bucket := r.conversations[conversationID]
	conns := make([]Conn, 0, len(bucket))
	for conn := range bucket {
		if e, ok := r.entries[conn]; ok && e.userID == userID {
			continue
		}
		conns = append(conns, conn)
	}
	return conns
}

// ConnectionCount returns the number of registered connections.
func (r *Registry) ConnectionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// ConversationCount returns the number of conversations with at least one
// live connection.
func (r *Registry) ConversationCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conversations)
}
