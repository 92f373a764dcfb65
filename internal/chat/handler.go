package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Tyrowin/roomchat/internal/protocol"
	"go.uber.org/zap"
)

// Kinds of chat payload carried in the first slot of a chat tuple.
const (
	KindText = 0
	KindData = 1
)

// Handler binds connection lifecycle and inbound events to the core
// components. One Handler serves every connection of a server.
type Handler struct {
	store   *SessionStore
	limiter *DataLimiter
	router  *Router
	arbiter *Arbiter
	logger  *zap.Logger
	now     func() time.Time
}

type handlerOptions struct {
	index    RoomIndex
	cooldown time.Duration
	now      func() time.Time
}

// HandlerOption customises a Handler.
type HandlerOption func(*handlerOptions)

// WithRoomIndex replaces the session-derived room index.
func WithRoomIndex(index RoomIndex) HandlerOption {
	return func(o *handlerOptions) { o.index = index }
}

// WithDataCooldown overrides DefaultDataCooldown.
func WithDataCooldown(d time.Duration) HandlerOption {
	return func(o *handlerOptions) { o.cooldown = d }
}

// WithClock sets the time source used by the data cooldown.
func WithClock(now func() time.Time) HandlerOption {
	return func(o *handlerOptions) { o.now = now }
}

// NewHandler builds a Handler emitting through transport. Without
// WithRoomIndex, membership is read from the handler's own session store.
func NewHandler(transport Transport, logger *zap.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := handlerOptions{cooldown: DefaultDataCooldown, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	store := NewSessionStore()
	if o.index == nil {
		o.index = NewStoreIndex(store)
	}
	router := NewRouter(transport)

	return &Handler{
		store:   store,
		limiter: NewDataLimiter(o.cooldown),
		router:  router,
		arbiter: NewArbiter(store, o.index, router, logger),
		logger:  logger,
		now:     o.now,
	}
}

// Sessions exposes the session store for inspection.
func (h *Handler) Sessions() *SessionStore {
	return h.store
}

// Connect registers a freshly accepted connection.
func (h *Handler) Connect(id ConnID) error {
	if err := h.store.Create(id); err != nil {
		h.logger.DPanic("duplicate connection", zap.String("conn_id", string(id)), zap.Error(err))
		return err
	}
	return nil
}

// Disconnect announces the departure of a joined session to its room and
// forgets every piece of state held for id. Unjoined sessions leave quietly.
func (h *Handler) Disconnect(id ConnID) {
	sess, err := h.store.Get(id)
	if err != nil {
		h.logger.Debug("disconnect for unknown session", zap.String("conn_id", string(id)))
		h.limiter.Forget(id)
		return
	}

	if sess.Joined {
		if err := h.router.BroadcastToRoom(sess.Room, protocol.EventGoneUser, sess.Nickname); err != nil {
			h.logger.Warn("broadcast goneUser failed", zap.String("conn_id", string(id)), zap.Error(err))
		}
		h.logger.Info("left room", zap.String("conn_id", string(id)), zap.String("nickname", sess.Nickname))
	}

	h.store.Remove(id)
	h.limiter.Forget(id)
}

// Handle dispatches one inbound frame. Errors describe frames that were
// dropped; the connection remains usable either way.
func (h *Handler) Handle(ctx context.Context, id ConnID, f protocol.Frame) error {
	switch f.Event {
	case protocol.EventJoinReq:
		return h.join(ctx, id, f)
	case protocol.EventTyping:
		return h.typing(id, f)
	case protocol.EventTextSend:
		return h.chat(id, KindText, f)
	case protocol.EventUnRateLimit:
		return h.unRateLimit(id)
	case protocol.EventDataSend:
		return h.dataSend(id, f)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, f.Event)
	}
}

func (h *Handler) join(ctx context.Context, id ConnID, f protocol.Frame) error {
	name, err := f.String(0)
	if err != nil {
		return err
	}
	roomName, err := f.String(1)
	if err != nil {
		return err
	}
	password, err := f.String(2)
	if err != nil {
		return err
	}

	err = h.arbiter.RequestJoin(ctx, id, name, roomName, password)
	var rejected *JoinRejectedError
	if errors.As(err, &rejected) {
		return nil
	}
	return err
}

func (h *Handler) typing(id ConnID, f protocol.Frame) error {
	sess, err := h.joined(id)
	if err != nil {
		return err
	}
	flag, err := f.Bool(0)
	if err != nil {
		return err
	}
	return h.router.BroadcastToRoom(sess.Room, protocol.EventTyping, []any{flag, sess.Nickname})
}

func (h *Handler) chat(id ConnID, kind int, f protocol.Frame) error {
	sess, err := h.joined(id)
	if err != nil {
		return err
	}
	return h.router.BroadcastToRoom(sess.Room, protocol.EventChat, []any{kind, sess.Nickname, f.Raw(0)})
}

func (h *Handler) unRateLimit(id ConnID) error {
	if _, err := h.store.Get(id); err != nil {
		return err
	}
	h.limiter.SetBypass(id)
	h.logger.Info("data cooldown bypass enabled", zap.String("conn_id", string(id)))
	return nil
}

func (h *Handler) dataSend(id ConnID, f protocol.Frame) error {
	if _, err := h.joined(id); err != nil {
		return err
	}
	if !h.limiter.TryConsume(id, h.now()) {
		return h.router.SendTo(id, protocol.EventRateLimit)
	}
	return h.chat(id, KindData, f)
}

func (h *Handler) joined(id ConnID) (Session, error) {
	sess, err := h.store.Get(id)
	if err != nil {
		return Session{}, err
	}
	if !sess.Joined {
		return Session{}, ErrNotJoined
	}
	return sess, nil
}
