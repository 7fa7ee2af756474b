// Package session keeps per-browser dashboard state: one layer cache and
// the last selected category.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/layers"
	"github.com/manuel-moraleschaves/PF3311-proyecto/internal/metrics"
)

// CookieName is the session cookie.
const CookieName = "redvial_session"

// ErrSessionRequired is returned when a request carries no session.
var ErrSessionRequired = errors.New("session: no session in request context")

// Session is the state of one browser.
type Session struct {
	ID     string
	Layers *layers.Cache

	mu       sync.Mutex
	category string
	lastSeen time.Time
}

// Category returns the last selected category.
func (s *Session) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.category
}

// SetCategory records the selected category.
func (s *Session) SetCategory(c string) {
	s.mu.Lock()
	s.category = c
	s.mu.Unlock()
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// CacheFactory builds the layer cache of a new session.
type CacheFactory func() *layers.Cache

// EvictFunc is called with every evicted session.
type EvictFunc func(*Session)

// Store holds the live sessions.
type Store struct {
	ttl      time.Duration
	newCache CacheFactory
	onEvict  EvictFunc
	log      logrus.FieldLogger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewStore creates a store whose sessions expire after ttl of inactivity.
func NewStore(ttl time.Duration, newCache CacheFactory, onEvict EvictFunc, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		ttl:      ttl,
		newCache: newCache,
		onEvict:  onEvict,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Get returns the session id, creating it when unknown or expired.
func (st *Store) Get(id string) (*Session, bool) {
	now := st.now()
	st.mu.Lock()
	evicted := st.sweepLocked(now)
	s, ok := st.sessions[id]
	created := false
	if !ok {
		s = &Session{ID: uuid.NewString(), Layers: st.newCache(), lastSeen: now}
		st.sessions[s.ID] = s
		created = true
	}
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	st.mu.Unlock()

	s.touch(now)
	st.evict(evicted)
	if created {
		st.log.WithField("session", s.ID).Debug("session created")
	}
	return s, created
}

// Len returns the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep evicts expired sessions.
func (st *Store) Sweep() {
	st.mu.Lock()
	evicted := st.sweepLocked(st.now())
	metrics.ActiveSessions.Set(float64(len(st.sessions)))
	st.mu.Unlock()
	st.evict(evicted)
}

func (st *Store) sweepLocked(now time.Time) []*Session {
	if st.ttl <= 0 {
		return nil
	}
	var evicted []*Session
	for id, s := range st.sessions {
		if s.idleSince(now) > st.ttl {
			delete(st.sessions, id)
			evicted = append(evicted, s)
		}
	}
	return evicted
}

func (st *Store) evict(sessions []*Session) {
	for _, s := range sessions {
		st.log.WithField("session", s.ID).Debug("session expired")
		if st.onEvict != nil {
			st.onEvict(s)
		}
	}
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored by Middleware.
func FromContext(ctx context.Context) (*Session, error) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	if !ok || s == nil {
		return nil, ErrSessionRequired
	}
	return s, nil
}

// Middleware attaches the cookie's session to every request and sets the
// cookie when a new session is created.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(CookieName); err == nil {
			id = c.Value
		}
		s, created := st.Get(id)
		if created {
			http.SetCookie(w, &http.Cookie{
				Name:     CookieName,
				Value:    s.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), s)))
	})
}
