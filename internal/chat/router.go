package chat

import (
	"fmt"

	"github.com/Tyrowin/roomchat/internal/protocol"
)

// Transport delivers encoded frames and maintains room subscriptions. The
// websocket hub implements it; delivery is best-effort.
type Transport interface {
	Send(id ConnID, frame []byte) error
	Broadcast(room string, frame []byte) error
	Subscribe(id ConnID, room string) error
	Unsubscribe(id ConnID, room string) error
}

// Router encodes events and hands them to the transport. Room delivery uses
// the transport's own subscription set rather than looping over members.
type Router struct {
	transport Transport
}

// NewRouter returns a Router over transport.
func NewRouter(transport Transport) *Router {
	return &Router{transport: transport}
}

// SendTo delivers an event to exactly one connection.
func (r *Router) SendTo(id ConnID, event string, args ...any) error {
	frame, err := protocol.Encode(event, args...)
	if err != nil {
		return err
	}
	if err := r.transport.Send(id, frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// BroadcastToRoom delivers an event to every connection subscribed to room.
func (r *Router) BroadcastToRoom(room, event string, args ...any) error {
	frame, err := protocol.Encode(event, args...)
	if err != nil {
		return err
	}
	if err := r.transport.Broadcast(room, frame); err != nil {
		return fmt.Errorf("broadcast %s: %w", event, err)
	}
	return nil
}

// Subscribe adds id to room's broadcast group.
func (r *Router) Subscribe(id ConnID, room string) error {
	return r.transport.Subscribe(id, room)
}

// Unsubscribe removes id from room's broadcast group.
func (r *Router) Unsubscribe(id ConnID, room string) error {
	return r.transport.Unsubscribe(id, room)
}
