package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	id := NewConnID()

	require.NoError(t, store.Create(id))
	assert.ErrorIs(t, store.Create(id), ErrSessionExists)

	sess, err := store.Get(id)
	require.NoError(t, err)
	assert.False(t, sess.Joined)
	assert.Empty(t, sess.Nickname)
	assert.Empty(t, sess.Room)

	require.NoError(t, store.SetIdentity(id, "Alice", "lobbypw"))
	sess, err = store.Get(id)
	require.NoError(t, err)
	assert.True(t, sess.Joined)
	assert.Equal(t, "Alice", sess.Nickname)
	assert.Equal(t, "lobbypw", sess.Room)

	assert.ErrorIs(t, store.SetIdentity(id, "Other", "elsewhere"), ErrAlreadyJoined)

	assert.True(t, store.Remove(id))
	assert.False(t, store.Remove(id))

	_, err = store.Get(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, store.SetIdentity(id, "Alice", "lobbypw"), ErrSessionNotFound)
}

func TestSetIdentityRejectsSanitizedCollision(t *testing.T) {
	store := NewSessionStore()
	a, b, c := NewConnID(), NewConnID(), NewConnID()
	for _, id := range []ConnID{a, b, c} {
		require.NoError(t, store.Create(id))
	}

	require.NoError(t, store.SetIdentity(a, "al.ice!", "r"))
	assert.ErrorIs(t, store.SetIdentity(b, "alice", "r"), ErrNicknameTaken)

	// Same name in another partition is fine.
	require.NoError(t, store.SetIdentity(c, "alice", "r2"))

	sess, err := store.Get(b)
	require.NoError(t, err)
	assert.False(t, sess.Joined)
}

func TestMembersOfKeepsJoinOrder(t *testing.T) {
	store := NewSessionStore()
	names := []string{"zed", "amy", "mo", "bea"}
	for _, name := range names {
		id := NewConnID()
		require.NoError(t, store.Create(id))
		require.NoError(t, store.SetIdentity(id, name, "room"))
	}
	unjoined := NewConnID()
	require.NoError(t, store.Create(unjoined))

	members, err := NewStoreIndex(store).MembersOf(context.Background(), "room")
	require.NoError(t, err)

	got := make([]string, 0, len(members))
	for _, m := range members {
		got = append(got, m.Nickname)
	}
	assert.Equal(t, names, got)
	assert.Equal(t, 5, store.Len())
}

func TestStoreIndexHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewStoreIndex(NewSessionStore()).MembersOf(ctx, "room")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSanitizeNickname(t *testing.T) {
	cases := map[string]string{
		"Alice":        "Alice",
		"A l-i.c_e!":   "Alic_e",
		"":             "",
		"!!! ???":      "",
		"bob_42":       "bob_42",
		"héllo":        "hllo",
		"<b>x</b>":     "bxb",
		"tab\tsep\nnl": "tabsepnl",
	}
	for in, want := range cases {
		assert.Equal(t, want, SanitizeNickname(in), "input %q", in)
	}
}

func TestRoomIDConcatenatesWithoutSeparator(t *testing.T) {
	assert.Equal(t, "lobbypw", RoomID("lobby", "pw"))
	assert.Equal(t, RoomID("lobby", "pw"), RoomID("lob", "bypw"))
	assert.NotEqual(t, RoomID("lobby", "pw"), RoomID("lobby", "other"))
}

func TestSessionStoreClearIdentity(t *testing.T) {
	store := NewSessionStore()
	a, b := NewConnID(), NewConnID()
	require.NoError(t, store.Create(a))
	require.NoError(t, store.Create(b))

	require.NoError(t, store.SetIdentity(a, "Alice", "lobbypw"))
	assert.ErrorIs(t, store.SetIdentity(b, "Alice", "lobbypw"), ErrNicknameTaken)

	store.ClearIdentity(a)
	sess, err := store.Get(a)
	require.NoError(t, err)
	assert.Equal(t, Session{ID: a}, sess)
	assert.Empty(t, store.MembersOf("lobbypw"))

	require.NoError(t, store.SetIdentity(b, "Alice", "lobbypw"))
	store.ClearIdentity(NewConnID())
	assert.Equal(t, 2, store.Len())
}
