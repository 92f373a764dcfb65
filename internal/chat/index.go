package chat

import "context"

// Member is a read-only view of one joined connection.
type Member struct {
	ID       ConnID
	Nickname string
}

// RoomIndex answers which connections currently belong to a room. The
// result is a snapshot. Implementations may reach across a network, hence
// the context and the error.
type RoomIndex interface {
	MembersOf(ctx context.Context, room string) ([]Member, error)
}

// StoreIndex derives membership from a SessionStore on every call, so it
// can never drift from session state.
type StoreIndex struct {
	store *SessionStore
}

// NewStoreIndex returns a RoomIndex backed by store.
func NewStoreIndex(store *SessionStore) *StoreIndex {
	return &StoreIndex{store: store}
}

// MembersOf lists the joined members of room in join order.
func (i *StoreIndex) MembersOf(ctx context.Context, room string) ([]Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sessions := i.store.MembersOf(room)
	members := make([]Member, 0, len(sessions))
	for _, sess := range sessions {
		members = append(members, Member{ID: sess.ID, Nickname: sess.Nickname})
	}
	return members, nil
}
