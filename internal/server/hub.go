// Package server coordinates client registration, room subscriptions,
// frame delivery, and connection cleanup for the websocket transport via the
// Hub type.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"go.uber.org/zap"
)

var (
	// ErrHubClosed is returned by transport calls made after shutdown began.
	ErrHubClosed = errors.New("server: hub closed")
	// ErrUnknownClient is returned when subscribing a connection the hub
	// does not hold.
	ErrUnknownClient = errors.New("server: unknown client")
)

// delivery is one outbound frame addressed either to a single connection
// (target) or to every subscriber of a room.
type delivery struct {
	target  chat.ConnID
	room    string
	payload []byte
}

type subscription struct {
	id     chat.ConnID
	room   string
	leave  bool
	result chan error
}

// Hub owns every registered client and the room subscription sets. All
// mutation happens on the Run goroutine, so frames issued to one room are
// delivered in the order they were issued.
type Hub struct {
	clients    map[chat.ConnID]*Client
	rooms      map[string]map[chat.ConnID]*Client
	register   chan *Client
	unregister chan *Client
	outbound   chan delivery
	subscribe  chan subscription
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	started    atomic.Bool
	logger     *zap.Logger
}

// NewHub creates a Hub ready to Run.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:    make(map[chat.ConnID]*Client),
		rooms:      make(map[string]map[chat.ConnID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		outbound:   make(chan delivery, 256),
		subscribe:  make(chan subscription),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Send queues a frame for one connection. Unknown connections are skipped.
func (h *Hub) Send(id chat.ConnID, frame []byte) error {
	return h.enqueue(delivery{target: id, payload: frame})
}

// Broadcast queues a frame for every subscriber of room.
func (h *Hub) Broadcast(room string, frame []byte) error {
	return h.enqueue(delivery{room: room, payload: frame})
}

// Subscribe adds id to room's subscription set. It returns once the hub has
// applied the change, so any later Broadcast reaches id.
func (h *Hub) Subscribe(id chat.ConnID, room string) error {
	return h.changeSubscription(subscription{id: id, room: room})
}

// Unsubscribe removes id from room's subscription set.
func (h *Hub) Unsubscribe(id chat.ConnID, room string) error {
	return h.changeSubscription(subscription{id: id, room: room, leave: true})
}

func (h *Hub) enqueue(d delivery) error {
	select {
	case h.outbound <- d:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) changeSubscription(s subscription) error {
	s.result = make(chan error, 1)
	select {
	case h.subscribe <- s:
	case <-h.ctx.Done():
		return ErrHubClosed
	}
	select {
	case err := <-s.result:
		return err
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

// Register hands a client to the hub, which starts its pumps.
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	}
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ClientCount reports the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// RoomSize reports how many clients are subscribed to room.
func (h *Hub) RoomSize(room string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.rooms[room])
}

// Run starts the hub's main event loop. It returns after Shutdown is called.
func (h *Hub) Run() {
	h.started.Store(true)
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.unregister:
			h.handleUnregister(client)

		case sub := <-h.subscribe:
			sub.result <- h.handleSubscription(sub)

		case d := <-h.outbound:
			h.handleDelivery(d)
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	if client == nil {
		h.logger.Warn("received nil client registration; skipping")
		return
	}

	h.mutex.Lock()
	client.closed = false
	h.clients[client.id] = client
	clientCount := len(h.clients)
	h.mutex.Unlock()
	client.logger.Info("client registered", zap.Int("clients", clientCount))

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		client.writePump()
	}()
	go func() {
		defer h.wg.Done()
		client.readPump()
	}()
}

func (h *Hub) handleUnregister(client *Client) {
	h.mutex.Lock()
	current, ok := h.clients[client.id]
	if !ok || current != client {
		h.mutex.Unlock()
		return
	}
	h.detach(client)
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	client.logger.Info("client unregistered", zap.Int("clients", clientCount))
}

// detach removes client from the registry and every room. Caller holds
// the write lock.
func (h *Hub) detach(client *Client) {
	delete(h.clients, client.id)
	for room := range client.rooms {
		h.removeFromRoom(client.id, room)
	}
	client.rooms = nil
	client.closed = true
}

func (h *Hub) removeFromRoom(id chat.ConnID, room string) {
	members := h.rooms[room]
	delete(members, id)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) handleSubscription(sub subscription) error {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	client, ok := h.clients[sub.id]
	if !ok {
		return ErrUnknownClient
	}

	if sub.leave {
		delete(client.rooms, sub.room)
		h.removeFromRoom(sub.id, sub.room)
		return nil
	}

	members, ok := h.rooms[sub.room]
	if !ok {
		members = make(map[chat.ConnID]*Client)
		h.rooms[sub.room] = members
	}
	members[sub.id] = client
	if client.rooms == nil {
		client.rooms = make(map[string]struct{})
	}
	client.rooms[sub.room] = struct{}{}
	return nil
}

// handleDelivery routes one frame and drops clients whose buffer is full.
func (h *Hub) handleDelivery(d delivery) {
	targets := h.targets(d)
	var clientsToRemove []*Client
	for _, client := range targets {
		if !h.safeSend(client, d.payload) {
			clientsToRemove = append(clientsToRemove, client)
		}
	}
	h.removeFailedClients(clientsToRemove)
}

func (h *Hub) targets(d delivery) []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	if d.target != "" {
		if client, ok := h.clients[d.target]; ok {
			return []*Client{client}
		}
		return nil
	}

	members := h.rooms[d.room]
	clients := make([]*Client, 0, len(members))
	for _, client := range members {
		clients = append(clients, client)
	}
	return clients
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	if client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// removeFailedClients removes clients that failed to receive messages and closes their channels
func (h *Hub) removeFailedClients(clientsToRemove []*Client) {
	if len(clientsToRemove) == 0 {
		return
	}

	h.mutex.Lock()
	var channelsToClose []chan []byte
	for _, client := range clientsToRemove {
		if current, exists := h.clients[client.id]; exists && current == client {
			h.detach(client)
			channelsToClose = append(channelsToClose, client.send)
			client.logger.Warn("client removed due to full send buffer")
		}
	}
	h.mutex.Unlock()

	// Close channels after releasing the lock
	for _, ch := range channelsToClose {
		close(ch)
	}
}

// shutdownClients closes every live connection; the pumps then exit.
func (h *Hub) shutdownClients() {
	h.logger.Info("shutting down all client connections")

	h.mutex.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for _, client := range h.clients {
		clients = append(clients, client)
	}
	h.mutex.Unlock()

	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				client.logger.Warn("error closing client connection", zap.Error(err))
			}
		}
	}

	h.logger.Info("closed client connections", zap.Int("count", len(clients)))
}

// Shutdown stops the hub and waits for all client goroutines to finish, or
// returns context.DeadlineExceeded once timeout passes.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.logger.Info("initiating hub shutdown")

	h.cancel()
	if !h.started.Load() {
		h.logger.Info("hub was never started; nothing to drain")
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	done := make(chan struct{})
	go func() {
		<-h.done
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.logger.Info("hub shutdown completed")
		return nil
	case <-timer.C:
		h.logger.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
