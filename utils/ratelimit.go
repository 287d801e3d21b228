package utils

import (
	"sync"
	"time"
)

// RateLimitEntry is one fixed-window counter. Entries are ephemeral:
// a process restart resets every counter.
type RateLimitEntry struct {
	Count       int
	WindowStart time.Time
	LastSeen    time.Time
}

// RateLimitStore holds counters keyed by caller-chosen strings such
// as "login:<email>". The in-memory implementation below is the
// default; multi-instance deployments can back this with an external
// cache.
type RateLimitStore interface {
	Get(key string) (RateLimitEntry, bool)
	Put(key string, e RateLimitEntry)
	Delete(key string)
	Keys() []string
}

type MemoryRateLimitStore struct {
	mu sync.Mutex
	m  map[string]RateLimitEntry
}

func NewMemoryRateLimitStore() *MemoryRateLimitStore {
	return &MemoryRateLimitStore{m: make(map[string]RateLimitEntry)}
}

func (s *MemoryRateLimitStore) Get(key string) (RateLimitEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.m[key]
	return e, ok
}

func (s *MemoryRateLimitStore) Put(key string, e RateLimitEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = e
}

func (s *MemoryRateLimitStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

func (s *MemoryRateLimitStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}

const sweepIdleAfter = time.Hour

// RateLimiter is a fixed-window counter: up to max attempts per key
// per window. Windows reset lazily on the next access after they
// elapse; Sweep purges keys idle for over an hour regardless of
// window state.
type RateLimiter struct {
	mu     sync.Mutex
	store  RateLimitStore
	max    int
	window time.Duration
	now    func() time.Time
}

func NewRateLimiter(store RateLimitStore, max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  store,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// WithClock replaces the limiter's time source. Tests use this to
// advance windows without real timers.
func (l *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	l.now = now
	return l
}

func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.store.Get(key)
	if !ok || now.Sub(e.WindowStart) >= l.window {
		l.store.Put(key, RateLimitEntry{Count: 1, WindowStart: now, LastSeen: now})
		return true
	}
	if e.Count >= l.max {
		e.LastSeen = now
		l.store.Put(key, e)
		return false
	}
	e.Count++
	e.LastSeen = now
	l.store.Put(key, e)
	return true
}

// Reset clears the counter for a key, e.g. after a successful login.
func (l *RateLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.store.Delete(key)
}

// Sweep drops entries idle for longer than an hour.
func (l *RateLimiter) Sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for _, key := range l.store.Keys() {
		if e, ok := l.store.Get(key); ok && now.Sub(e.LastSeen) > sweepIdleAfter {
			l.store.Delete(key)
		}
	}
}

// StartSweeper runs Sweep on a ticker until stop is closed.
func (l *RateLimiter) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
