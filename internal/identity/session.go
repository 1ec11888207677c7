package identity

import (
	"sync"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sirupsen/logrus"
)

// Listener receives the new identity after every change.
type Listener func(domain.Identity)

// Session holds the identity the storefront is currently acting for.
// Changes reach listeners in the order they were made; a listener must not
// call Login or Logout.
type Session struct {
	// delivery is held across a change and its notification.
	delivery sync.Mutex

	mu        sync.Mutex
	current   domain.Identity
	listeners []Listener
	log       logrus.FieldLogger
}

func NewSession(log logrus.FieldLogger) *Session {
	return &Session{current: domain.Anonymous, log: log.WithField("component", "identity")}
}

func (s *Session) Identity() domain.Identity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Subscribe registers fn for future changes. It is not called for the
// current identity.
func (s *Session) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Login switches to principal. Logging in as the anonymous principal is a
// logout.
func (s *Session) Login(principal string) {
	s.set(domain.NewIdentity(principal))
}

func (s *Session) Logout() {
	s.set(domain.Anonymous)
}

func (s *Session) set(id domain.Identity) {
	s.delivery.Lock()
	defer s.delivery.Unlock()

	s.mu.Lock()
	if s.current == id {
		s.mu.Unlock()
		return
	}
	prev := s.current
	s.current = id
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{
		"from": prev.String(),
		"to":   id.String(),
	}).Info("identity changed")

	for _, fn := range listeners {
		fn(id)
	}
}
