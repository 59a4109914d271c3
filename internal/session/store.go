// Package session maps browser sessions to their own dashboard instance:
// one request controller and one disclosure state per session.
package session

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/brightshare/internal/controller"
	"github.com/ZanzyTHEbar/brightshare/internal/dashboard"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// CookieName carries the session ID
	CookieName = "bs_session"

	contextKey = "session"
)

// Session is one dashboard instance
type Session struct {
	ID         string
	Controller *controller.Controller

	mu         sync.Mutex
	disclosure dashboard.DisclosureState
	flash      string
	lastSeen   time.Time
}

// Flash queues a one-shot message for the next page view
func (s *Session) Flash(message string) {
	s.mu.Lock()
	s.flash = message
	s.mu.Unlock()
}

// TakeNotice returns and clears the pending message
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	notice := s.flash
	s.flash = ""
	return notice
}

// Toggle flips one disclosure panel and returns the new state
func (s *Session) Toggle(id dashboard.NodeID) dashboard.DisclosureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disclosure.Toggle(id)
	return s.disclosure
}

// Disclosure returns a copy of the disclosure state
func (s *Session) Disclosure() dashboard.DisclosureState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disclosure
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen) > ttl
}

// ControllerFactory builds the controller for a new session; the controller
// should report its notifications to notifier
type ControllerFactory func(sessionID string, notifier controller.Notifier) *controller.Controller

// Store provides thread-safe session storage with idle expiry
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration
	factory  ControllerFactory
	now      func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// NewStore creates a store whose sessions expire after ttl without a request
func NewStore(ttl time.Duration, factory ControllerFactory) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	go s.janitor(janitorInterval(ttl))

	return s
}

func janitorInterval(ttl time.Duration) time.Duration {
	interval := ttl / 2
	if interval > 5*time.Minute {
		interval = 5 * time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func (s *Store) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if removed := s.Sweep(); removed > 0 {
				slog.Debug("Expired sessions removed", "count", removed)
			}
		case <-s.stop:
			return
		}
	}
}

// Sweep removes expired sessions that have no submission in flight
func (s *Store) Sweep() int {
	now := s.now()
	removed := 0

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, sess := range s.sessions {
		if sess.expired(now, s.ttl) && !sess.Controller.InFlight() {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Get returns a live session and marks it as used
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()

	now := s.now()
	if !ok || sess.expired(now, s.ttl) {
		return nil, false
	}
	sess.touch(now)
	return sess, true
}

// Create starts a new session with a fresh controller
func (s *Store) Create() *Session {
	id := uuid.NewString()
	sess := &Session{
		ID:       id,
		lastSeen: s.now(),
	}
	// controller notifications become the session's one-shot notice
	sess.Controller = s.factory(id, controller.NotifierFunc(sess.Flash))

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	return sess
}

// GetOrCreate returns the session for id, creating one when id is unknown or expired
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	if id != "" {
		if sess, ok := s.Get(id); ok {
			return sess, false
		}
	}
	return s.Create(), true
}

// Size returns the number of stored sessions
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats returns store statistics
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inFlight := 0
	for _, sess := range s.sessions {
		if sess.Controller.InFlight() {
			inFlight++
		}
	}

	return map[string]interface{}{
		"sessions":    len(s.sessions),
		"in_flight":   inFlight,
		"ttl_seconds": s.ttl.Seconds(),
	}
}

// Close stops the janitor
func (s *Store) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// Middleware attaches the caller's session to the request, issuing a cookie for new ones
func (s *Store) Middleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(CookieName)
		if _, err := uuid.Parse(id); err != nil {
			id = ""
		}

		sess, created := s.GetOrCreate(id)
		if created {
			// browser-session cookie; idle expiry is tracked by the store
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(CookieName, sess.ID, 0, "/", "", secure, true)
		}

		c.Set(contextKey, sess)
		c.Next()
	}
}

// FromContext returns the session attached by Middleware
func FromContext(c *gin.Context) (*Session, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return nil, false
	}
	sess, ok := v.(*Session)
	return sess, ok
}
