package relay

import (
	"context"
	"log"
)

// PresenceStore is the slice of the persistence layer the reconciler
// writes through. Implemented by the storage repositories.
type PresenceStore interface {
	SetUserOnline(ctx context.Context, userID string, online bool) error
	UpsertTyping(ctx context.Context, conversationID, userID string, isTyping bool) error
}

// Reconciler keeps persisted presence and typing state in line with
// registry membership changes and decides which frames to broadcast.
// Persistence errors are logged and swallowed; presence is best-effort
// and must never block message delivery or teardown.
type Reconciler struct {
	store PresenceStore
}

// NewReconciler creates a Reconciler over the given store.
func NewReconciler(store PresenceStore) *Reconciler {
	return &Reconciler{store: store}
}

// OnJoin marks the user online and returns the frame to route to the
// conversation's other members.
func (r *Reconciler) OnJoin(ctx context.Context, userID, conversationID string) Frame {
	if err := r.store.SetUserOnline(ctx, userID, true); err != nil {
		log.Printf("[relay] Failed to mark %s online: %v", userID, err)
	}
	return PresenceFrame(userID, true)
}

// OnTypingChange upserts the typing row and returns the frame to route.
func (r *Reconciler) OnTypingChange(ctx context.Context, userID, conversationID string, isTyping bool) Frame {
	if err := r.store.UpsertTyping(ctx, conversationID, userID, isTyping); err != nil {
		log.Printf("[relay] Failed to upsert typing for %s in %s: %v", userID, conversationID, err)
	}
	return TypingFrame(userID, isTyping)
}

// OnDisconnect marks the user offline, force-stops their typing row for
// the conversation, and returns the frames to route. The typing stop is
// unconditional; a stop for a user who was not typing is harmless.
func (r *Reconciler) OnDisconnect(ctx context.Context, userID, conversationID string) []Frame {
	if err := r.store.SetUserOnline(ctx, userID, false); err != nil {
		log.Printf("[relay] Failed to mark %s offline: %v", userID, err)
	}
	if err := r.store.UpsertTyping(ctx, conversationID, userID, false); err != nil {
		log.Printf("[relay] Failed to stop typing for %s in %s: %v", userID, conversationID, err)
	}
	return []Frame{
		PresenceFrame(userID, false),
		TypingFrame(userID, false),
	}
}
