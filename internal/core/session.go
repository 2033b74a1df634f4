package core

import (
	"sync"
	"time"

	"farmsense-backend-go/internal/models"
)

// State is the authentication state of a Session.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticating
	StateAuthenticated
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Observer receives every identity published by a Session; nil means the
// session was cleared.
type Observer func(user *models.User)

// Session is the per-request authentication context. It is created by
// NewSession, populated on an auth event, cleared on logout or token
// invalidation and closed when the request ends. All methods are safe for
// concurrent use.
type Session struct {
	mu        sync.Mutex
	state     State
	prev      State
	token     string
	expiresAt time.Time
	remember  bool
	user      *models.User
	demo      bool
	closed    bool
	nextID    int
	observers map[int]Observer
}

// SessionSnapshot is a copy of a Session's state at one point in time.
type SessionSnapshot struct {
	State     State
	User      *models.User
	Demo      bool
	Remember  bool
	ExpiresAt time.Time
}

// NewSession returns an unauthenticated session.
func NewSession() *Session {
	return &Session{observers: make(map[int]Observer)}
}

// Begin moves the session to Authenticating. It fails while another
// authentication is still in flight.
func (s *Session) Begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.state == StateAuthenticating {
		return ErrAuthInProgress
	}
	s.prev = s.state
	s.state = StateAuthenticating
	return nil
}

// Abort ends a failed authentication and restores the state held before
// Begin.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateAuthenticating {
		s.state = s.prev
	}
}

// Populate completes an authentication and publishes user.
func (s *Session) Populate(user *models.User, token string, expiresAt time.Time) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateAuthenticated
	s.user = user
	s.token = token
	s.expiresAt = expiresAt
	s.demo = false
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, user)
}

// EnterDemo populates the session with user without a token.
func (s *Session) EnterDemo(user *models.User) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateAuthenticated
	s.user = user
	s.token = ""
	s.expiresAt = time.Time{}
	s.demo = true
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, user)
}

// Clear drops the identity and publishes nil.
func (s *Session) Clear() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateUnauthenticated
	s.user = nil
	s.token = ""
	s.expiresAt = time.Time{}
	s.remember = false
	s.demo = false
	observers := s.snapshotObservers()
	s.mu.Unlock()

	notify(observers, nil)
}

// Close tears the session down. Later transitions are ignored and observers
// are released.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.observers = nil
}

// Subscribe registers fn and returns a function that removes it.
func (s *Session) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return func() {}
	}
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

// SetRemember records the remember-me flag.
func (s *Session) SetRemember(remember bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.remember = remember
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) User() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) IsDemo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.demo
}

func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		State:     s.state,
		User:      s.user,
		Demo:      s.demo,
		Remember:  s.remember,
		ExpiresAt: s.expiresAt,
	}
}

func (s *Session) snapshotObservers() []Observer {
	out := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(observers []Observer, user *models.User) {
	for _, fn := range observers {
		fn(user)
	}
}
