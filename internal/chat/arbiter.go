package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tyrowin/roomchat/internal/protocol"
	"go.uber.org/zap"
)

// Arbiter decides join requests and emits the join event sequence.
type Arbiter struct {
	store  *SessionStore
	index  RoomIndex
	router *Router
	logger *zap.Logger
}

// NewArbiter wires an arbiter to its session store, membership index and
// outbound router.
func NewArbiter(store *SessionStore, index RoomIndex, router *Router, logger *zap.Logger) *Arbiter {
	return &Arbiter{store: store, index: index, router: router, logger: logger}
}

// RequestJoin admits id into the room addressed by roomName+password under
// displayName, or rejects it when the sanitized name is already in use
// there. On admission the joiner receives joinConfirm, the room receives
// newUser (joiner included) and the joiner receives userList. On rejection
// only joinFail is sent and a *JoinRejectedError is returned.
//
// A failed membership query aborts the join; nothing is committed. The
// identity is committed before the connection subscribes to the room, so a
// connection that loses a nickname race never joins the room's traffic.
func (a *Arbiter) RequestJoin(ctx context.Context, id ConnID, displayName, roomName, password string) error {
	room := RoomID(roomName, password)
	log := a.logger.With(zap.String("conn_id", string(id)), zap.String("nickname", displayName))

	sess, err := a.store.Get(id)
	if err != nil {
		return err
	}
	if sess.Joined {
		return ErrAlreadyJoined
	}

	members, err := a.index.MembersOf(ctx, room)
	if err != nil {
		a.reject(id, ReasonUnavailable)
		return fmt.Errorf("chat: list room members: %w", err)
	}

	wanted := SanitizeNickname(displayName)
	for _, m := range members {
		if SanitizeNickname(m.Nickname) == wanted {
			log.Info("join rejected, nickname in use")
			return a.reject(id, ReasonNicknameTaken)
		}
	}

	if err := a.store.SetIdentity(id, displayName, room); err != nil {
		if errors.Is(err, ErrNicknameTaken) {
			log.Info("join rejected, lost race for nickname")
			return a.reject(id, ReasonNicknameTaken)
		}
		return err
	}
	if err := a.router.Subscribe(id, room); err != nil {
		a.store.ClearIdentity(id)
		return fmt.Errorf("chat: subscribe: %w", err)
	}

	names := make([]string, 0, len(members)+1)
	for _, m := range members {
		names = append(names, m.Nickname)
	}
	names = append(names, displayName)

	if err := a.router.SendTo(id, protocol.EventJoinConfirm); err != nil {
		log.Warn("send joinConfirm failed", zap.Error(err))
	}
	if err := a.router.BroadcastToRoom(room, protocol.EventNewUser, displayName); err != nil {
		log.Warn("broadcast newUser failed", zap.Error(err))
	}
	if err := a.router.SendTo(id, protocol.EventUserList, names); err != nil {
		log.Warn("send userList failed", zap.Error(err))
	}

	log.Info("joined room", zap.Int("members", len(names)))
	return nil
}

func (a *Arbiter) reject(id ConnID, reason string) error {
	if err := a.router.SendTo(id, protocol.EventJoinFail, reason); err != nil {
		a.logger.Warn("send joinFail failed", zap.String("conn_id", string(id)), zap.Error(err))
	}
	rejected := &JoinRejectedError{Reason: reason}
	if reason == ReasonNicknameTaken {
		rejected.Err = ErrNicknameTaken
	}
	return rejected
}
