package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Registry tracks which users are currently online. Game invites only go to
// users with a live session, so connections carry an explicit lifecycle:
// Connect on session start, Heartbeat to stay alive, Disconnect on close.
// Sessions that miss heartbeats past the TTL are swept out.
type Registry struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]time.Time
	ttl      time.Duration
	now      func() time.Time
}

// NewRegistry creates a presence registry with the given heartbeat TTL.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]time.Time),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Connect marks the user online.
func (r *Registry) Connect(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = r.now()
}

// Heartbeat refreshes the user's session. A heartbeat from an unknown user
// (server restart, swept session) re-registers them.
func (r *Registry) Heartbeat(userID uuid.UUID) {
	r.Connect(userID)
}

// Disconnect removes the user's session.
func (r *Registry) Disconnect(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// IsOnline reports whether the user has a live, unexpired session.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen, ok := r.sessions[userID]
	return ok && r.now().Sub(seen) <= r.ttl
}

// Online returns a snapshot of all users with unexpired sessions and sweeps
// out the expired ones.
func (r *Registry) Online() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	out := make([]uuid.UUID, 0, len(r.sessions))
	for id, seen := range r.sessions {
		if now.Sub(seen) > r.ttl {
			delete(r.sessions, id)
			continue
		}
		out = append(out, id)
	}
	return out
}
