package google

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// stateTTL bounds how long a user may take at the consent screen.
const stateTTL = 10 * time.Minute

// DefaultCleanupInterval is how often expired states are purged.
const DefaultCleanupInterval = 5 * time.Minute

// oauthState ties a callback to the sign-in that started it.
type oauthState struct {
	Nonce     string
	ExpiresAt time.Time
}

// StateStore keeps pending OAuth states in memory. It only works with a
// single replica.
type StateStore struct {
	mu     sync.Mutex
	states map[string]oauthState
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewStateStore creates a state store and starts its cleanup loop.
// Call Close to stop the loop.
func NewStateStore(cleanupInterval time.Duration) *StateStore {
	s := &StateStore{
		states: make(map[string]oauthState),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go s.cleanup(cleanupInterval)
	return s
}

// Put records a new state.
func (s *StateStore) Put(state, nonce string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[state] = oauthState{Nonce: nonce, ExpiresAt: s.now().Add(stateTTL)}
}

// Take removes state and returns its nonce if it was present and unexpired.
// A state can be taken once.
func (s *StateStore) Take(state string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[state]
	if !ok {
		return "", false
	}
	delete(s.states, state)
	if s.now().After(st.ExpiresAt) {
		return "", false
	}
	return st.Nonce, true
}

// Len reports the number of pending states.
func (s *StateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.states)
}

// Close stops the cleanup loop.
func (s *StateStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *StateStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.purge()
		}
	}
}

func (s *StateStore) purge() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, st := range s.states {
		if now.After(st.ExpiresAt) {
			delete(s.states, key)
		}
	}
}

// generateRandomString generates a cryptographically secure random string.
func generateRandomString(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
