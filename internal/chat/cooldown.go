package chat

import (
	"sync"
	"time"
)

// DefaultDataCooldown is the minimum spacing between two data sends from
// the same connection.
const DefaultDataCooldown = 5 * time.Second

type cooldownState struct {
	lastSend time.Time
	bypass   bool
}

// DataLimiter gates data payload sends per connection. A send is allowed
// once at least the cooldown has elapsed since the last allowed send; the
// boundary itself is allowed. Denied attempts leave the window untouched.
type DataLimiter struct {
	mu       sync.Mutex
	cooldown time.Duration
	states   map[ConnID]*cooldownState
}

// NewDataLimiter returns a limiter allowing one data frame per cooldown.
func NewDataLimiter(cooldown time.Duration) *DataLimiter {
	if cooldown < 0 {
		cooldown = DefaultDataCooldown
	}
	return &DataLimiter{
		cooldown: cooldown,
		states:   make(map[ConnID]*cooldownState),
	}
}

// TryConsume reports whether id may send at now, recording now on success.
func (l *DataLimiter) TryConsume(id ConnID, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := l.state(id)
	if st.bypass {
		st.lastSend = now
		return true
	}
	if !st.lastSend.IsZero() && now.Sub(st.lastSend) < l.cooldown {
		return false
	}
	st.lastSend = now
	return true
}

// SetBypass disables the cooldown for id until Forget. There is no way to
// turn it back on.
func (l *DataLimiter) SetBypass(id ConnID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state(id).bypass = true
}

// Forget drops all state for id.
func (l *DataLimiter) Forget(id ConnID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, id)
}

func (l *DataLimiter) state(id ConnID) *cooldownState {
	st, ok := l.states[id]
	if !ok {
		st = &cooldownState{}
		l.states[id] = st
	}
	return st
}
