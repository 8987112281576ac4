// Package secrets persists per-user passkeys in sealed slots and maintains
// the ephemeral session passkey cache.
package secrets

import "sync"

// A Store persists per-user passkeys in a secure slot.
type Store interface {
	// SetPasskey persists the passkey, overwriting any existing value.
	SetPasskey(userID, passkey string) error
	// Passkey reads the slot. The boolean is false when never set.
	Passkey(userID string) (string, bool, error)
	// PasskeyExists returns true when a passkey is persisted for the user.
	PasskeyExists(userID string) (bool, error)
	// ClearPasskey removes the passkey from the store. Idempotent.
	ClearPasskey(userID string) error
	// Close the store.
	Close() error
}

// An AppState mirrors the host application lifecycle.
type AppState string

const (
	// StateActive means the app is foregrounded.
	StateActive AppState = "active"
	// StateInactive means the app is transitioning away from foreground.
	StateInactive AppState = "inactive"
	// StateBackground means the app is backgrounded.
	StateBackground AppState = "background"
)

// A Session holds a process-lifetime copy of the current passkey, live only
// while the app is foregrounded. It is never persisted.
type Session struct {
	mu      sync.Mutex
	passkey string
	set     bool
}

// Activate caches the passkey for the current foreground session.
func (s *Session) Activate(passkey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passkey = passkey
	s.set = true
}

// Clear drops the cached passkey.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passkey = ""
	s.set = false
}

// Passkey returns the cached passkey if any.
func (s *Session) Passkey() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.passkey, s.set
}

// HandleAppState clears the cache on any transition away from the active
// state. Limiting the in-memory secret lifetime is a deliberate control:
// the cache is cleared unconditionally, even if the passkey was activated
// moments before.
func (s *Session) HandleAppState(state AppState) {
	if state != StateActive {
		s.Clear()
	}
}

// A Resolver computes the effective passkey for an operation:
// explicit argument > session cache > persisted store > none.
type Resolver struct {
	Session *Session
	Store   Store
}

// Effective resolves the passkey for the given user. The boolean is false
// when no passkey is resolvable. Store read failures resolve to none: the
// operation that needed the passkey reports it as missing.
func (r *Resolver) Effective(userID, explicit string) (string, bool) {
	if explicit != "" {
		return explicit, true
	}

	if r.Session != nil {
		if passkey, ok := r.Session.Passkey(); ok {
			return passkey, true
		}
	}

	if r.Store != nil {
		if passkey, ok, err := r.Store.Passkey(userID); err == nil && ok {
			return passkey, true
		}
	}

	return "", false
}
