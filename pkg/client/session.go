package client

import "sync"

// Session holds the access token shared by every request of a Client.
type Session struct {
	mu           sync.Mutex
	token        string
	onInvalidate func()
}

func NewSession(token string) *Session {
	return &Session{token: token}
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// Clear forgets the token.
func (s *Session) Clear() {
	s.SetToken("")
}

// OnInvalidate registers f to run after the server rejects the token.
// It replaces any earlier hook.
func (s *Session) OnInvalidate(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onInvalidate = f
}

// invalidate clears the token and fires the hook outside the lock.
func (s *Session) invalidate() {
	s.mu.Lock()
	s.token = ""
	hook := s.onInvalidate
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}
