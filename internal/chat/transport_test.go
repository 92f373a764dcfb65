package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/Tyrowin/roomchat/internal/protocol"
	"github.com/stretchr/testify/require"
)

// recordingTransport keeps room subscriptions and records every frame each
// connection would have received.
type recordingTransport struct {
	mu    sync.Mutex
	rooms map[string]map[ConnID]bool
	inbox map[ConnID][]protocol.Frame
	calls map[ConnID]int
	fail  error
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{
		rooms: make(map[string]map[ConnID]bool),
		inbox: make(map[ConnID][]protocol.Frame),
		calls: make(map[ConnID]int),
	}
}

func (tr *recordingTransport) Send(id ConnID, frame []byte) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.fail != nil {
		return tr.fail
	}
	return tr.deliver(id, frame)
}

func (tr *recordingTransport) Broadcast(room string, frame []byte) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.fail != nil {
		return tr.fail
	}
	for id := range tr.rooms[room] {
		if err := tr.deliver(id, frame); err != nil {
			return err
		}
	}
	return nil
}

func (tr *recordingTransport) Subscribe(id ConnID, room string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls[id]++
	if tr.fail != nil {
		return tr.fail
	}
	if tr.rooms[room] == nil {
		tr.rooms[room] = make(map[ConnID]bool)
	}
	tr.rooms[room][id] = true
	return nil
}

func (tr *recordingTransport) Unsubscribe(id ConnID, room string) error {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.rooms[room], id)
	return nil
}

// drop simulates the socket going away: it leaves every room first.
func (tr *recordingTransport) drop(id ConnID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	for _, members := range tr.rooms {
		delete(members, id)
	}
}

func (tr *recordingTransport) deliver(id ConnID, frame []byte) error {
	f, err := protocol.Decode(frame)
	if err != nil {
		return err
	}
	tr.inbox[id] = append(tr.inbox[id], f)
	return nil
}

func (tr *recordingTransport) frames(id ConnID) []protocol.Frame {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]protocol.Frame(nil), tr.inbox[id]...)
}

func (tr *recordingTransport) reset(id ConnID) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	delete(tr.inbox, id)
}

func (tr *recordingTransport) subscribers(room string) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return len(tr.rooms[room])
}

// subscribeCalls counts every Subscribe attempt for id, failed ones included.
func (tr *recordingTransport) subscribeCalls(id ConnID) int {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return tr.calls[id]
}

func events(frames []protocol.Frame) []string {
	names := make([]string, 0, len(frames))
	for _, f := range frames {
		names = append(names, f.Event)
	}
	return names
}

// lastOf returns the most recent frame named event.
func lastOf(t *testing.T, frames []protocol.Frame, event string) protocol.Frame {
	t.Helper()
	for i := len(frames) - 1; i >= 0; i-- {
		if frames[i].Event == event {
			return frames[i]
		}
	}
	t.Fatalf("no %s frame among %v", event, events(frames))
	return protocol.Frame{}
}

func decodeArg(t *testing.T, f protocol.Frame, i int, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(f.Raw(i), v))
}

var errTransportDown = errors.New("transport down")
