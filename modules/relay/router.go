package relay

import (
	"encoding/json"
	"log"
)

// Router delivers frames to sets of live connections. Delivery is
// fire-and-forget: a failed write to one target is logged and skipped
// without affecting the remaining targets.
type Router struct{}

// NewRouter creates a Router.
func NewRouter() *Router {
	return &Router{}
}

// Broadcast serializes the frame once and writes it to each target in
// iteration order.
func (r *Router) Broadcast(frame Frame, targets []Conn) {
	if len(targets) == 0 {
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		log.Printf("[relay] Failed to marshal %s frame: %v", frame.Type, err)
		return
	}

	for _, target := range targets {
		if err := target.WriteText(data); err != nil {
			log.Printf("[relay] Failed to write %s frame to peer: %v", frame.Type, err)
		}
	}
}
