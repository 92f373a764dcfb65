// Package server implements the websocket transport for the room chat core.
//
// The Hub owns the connection registry and room subscription sets and
// implements chat.Transport; Client runs the read and write pumps of one
// socket; Server wires both to a chat.Handler behind an HTTP ServeMux.
package server
