package session

import (
	"fmt"
	"log"
	"sync"

	"storefront/models"
	"storefront/utils"
)

type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "anonymous"
	}
}

// Backend is the slice of the user store the session manager needs.
// IsAdmin is the authoritative privilege check; a role claim cached
// in a token or profile row is never trusted over it.
type Backend interface {
	FetchProfile(userID string) (*models.Profile, error)
	IsAdmin(userID string) (bool, error)
	SignOut(token string) error
}

// FlagStore persists one-shot flags, here the "already warned about
// degraded profile" marker, so the warning fires once per user across
// sessions.
type FlagStore interface {
	Seen(key string) bool
	MarkSeen(key string)
}

type MemoryFlagStore struct {
	mu sync.Mutex
	m  map[string]struct{}
}

func NewMemoryFlagStore() *MemoryFlagStore {
	return &MemoryFlagStore{m: make(map[string]struct{})}
}

func (s *MemoryFlagStore) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.m[key]
	return ok
}

func (s *MemoryFlagStore) MarkSeen(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = struct{}{}
}

// ProfileResult is a tagged profile: either full, or degraded with a
// reason when the profile fetch failed and the manager fell back to
// token claims. Callers must branch on Degraded rather than quietly
// using partial data.
type ProfileResult struct {
	Profile  models.Profile
	Degraded bool
	Reason   string
}

// Manager reconciles backend session changes with the profile store
// and the authoritative admin check. State is kept per user id so
// concurrent sessions never observe each other. Each session-change
// event gets a monotonic per-user sequence number; a fetch result is
// stored only if its sequence is still the latest for that user, so a
// slow fetch for an old event can never overwrite state set by a
// newer one.
type Manager struct {
	backend Backend
	flags   FlagStore
	warnf   func(format string, args ...any)

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	seq     uint64
	state   State
	current *ProfileResult
	isAdmin bool
}

func NewManager(backend Backend, flags FlagStore) *Manager {
	return &Manager{
		backend:  backend,
		flags:    flags,
		warnf:    log.Printf,
		sessions: make(map[string]*sessionState),
	}
}

// WithWarnFunc overrides the degraded-mode warning sink.
func (m *Manager) WithWarnFunc(f func(format string, args ...any)) *Manager {
	m.warnf = f
	return m
}

// HandleSessionChange processes one backend session-change event: it
// re-derives admin status, fetches the profile, and stores the result
// for that user only if no newer event for the same user arrived
// meanwhile. The event's own outcome is always returned, so callers
// serving a request answer with the data they resolved, never with
// another user's stored state. Safe to call concurrently; per user,
// the last event wins.
func (m *Manager) HandleSessionChange(claims utils.TokenClaims) (ProfileResult, bool) {
	m.mu.Lock()
	sess := m.session(claims.UserID)
	sess.seq++
	seq := sess.seq
	sess.state = Authenticating
	m.mu.Unlock()

	isAdmin, err := m.backend.IsAdmin(claims.UserID)
	if err != nil {
		log.Printf("admin check failed for %s, denying admin: %v", claims.UserID, err)
		isAdmin = false
	}

	result := m.resolveProfile(claims, isAdmin)
	m.apply(claims.UserID, seq, result, isAdmin)
	return result, isAdmin
}

// session returns the state entry for a user, creating it if needed.
// Callers must hold m.mu.
func (m *Manager) session(userID string) *sessionState {
	sess, ok := m.sessions[userID]
	if !ok {
		sess = &sessionState{}
		m.sessions[userID] = sess
	}
	return sess
}

func (m *Manager) resolveProfile(claims utils.TokenClaims, isAdmin bool) ProfileResult {
	profile, err := m.backend.FetchProfile(claims.UserID)
	if err != nil {
		m.warnDegraded(claims.UserID, err)
		return ProfileResult{
			Profile: models.Profile{
				UserID:   claims.UserID,
				Email:    claims.Email,
				FullName: claims.FullName,
				Role:     authoritativeRole(isAdmin),
			},
			Degraded: true,
			Reason:   fmt.Sprintf("profile fetch failed: %v", err),
		}
	}

	p := *profile
	// The stored role may be stale; the privilege check wins.
	if want := authoritativeRole(isAdmin); p.Role != want {
		p.Role = want
	}
	return ProfileResult{Profile: p}
}

func (m *Manager) warnDegraded(userID string, err error) {
	key := "degraded_profile_warned:" + userID
	if m.flags.Seen(key) {
		return
	}
	m.flags.MarkSeen(key)
	m.warnf("profile unavailable for %s, running with reduced account details: %v", userID, err)
}

func (m *Manager) apply(userID string, seq uint64, result ProfileResult, isAdmin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess := m.session(userID)
	if seq != sess.seq {
		// A newer session change for this user superseded this fetch.
		return
	}
	sess.state = Authenticated
	sess.current = &result
	sess.isAdmin = isAdmin
}

// SignOut clears the user's local session state unconditionally. The
// backend call may fail; local state is gone either way and the error
// is only reported.
func (m *Manager) SignOut(userID, token string) error {
	m.mu.Lock()
	sess := m.session(userID)
	sess.seq++ // invalidates any in-flight profile fetch
	sess.state = Anonymous
	sess.current = nil
	sess.isAdmin = false
	m.mu.Unlock()

	if err := m.backend.SignOut(token); err != nil {
		log.Printf("backend sign-out failed (local state already cleared): %v", err)
		return err
	}
	return nil
}

func (m *Manager) State(userID string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return Anonymous
	}
	return sess.state
}

// Current returns the user's active profile result, if authenticated.
func (m *Manager) Current(userID string) (ProfileResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok || sess.current == nil {
		return ProfileResult{}, false
	}
	return *sess.current, true
}

func (m *Manager) IsAdmin(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[userID]
	if !ok {
		return false
	}
	return sess.isAdmin
}

func authoritativeRole(isAdmin bool) models.Role {
	if isAdmin {
		return models.RoleAdmin
	}
	return models.RoleCustomer
}
