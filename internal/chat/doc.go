// Package chat implements the room-scoped presence and broadcast core: the
// per-connection session store, the derived room index, join arbitration,
// room broadcast routing and the per-connection data cooldown.
//
// The package never touches sockets. Delivery and room subscription go
// through the Transport interface, which internal/server implements on top
// of its websocket hub.
//
// A room is addressed by the raw concatenation of the room name and the
// password the client supplied ("lobby"+"pw" == "lob"+"bypw"). This is an
// opaque partition key kept for wire compatibility, not an access control
// boundary.
package chat
