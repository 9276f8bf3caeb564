package web

import (
	"context"
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/starford/mynotes/internal/notebook"
)

// CookieName is the session cookie set on sign-in.
const CookieName = "mynotes_session"

// maxViews bounds the collection views held in memory at once.
const maxViews = 1024

const sidKey = "sid"

// SignOutFunc is invoked after a session ends.
type SignOutFunc func(sessionID string)

// Session is one signed-in browser with its own note collection view.
type Session struct {
	ID   string
	View *notebook.View
}

// Sessions tracks browser sessions with scs and keeps one collection view
// per live session. Views expire with their session; an evicted view is
// rebuilt on the next request.
type Sessions struct {
	manager   *scs.SessionManager
	views     *expirable.LRU[string, *notebook.View]
	newView   func() *notebook.View
	onSignOut SignOutFunc
}

// NewSessions creates a session table. newView builds the collection view
// for each new session.
func NewSessions(newView func() *notebook.View, ttl time.Duration, onSignOut SignOutFunc) *Sessions {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	manager := scs.New()
	manager.Lifetime = ttl
	manager.Cookie.Name = CookieName
	manager.Cookie.HttpOnly = true
	manager.Cookie.SameSite = http.SameSiteLaxMode

	return &Sessions{
		manager:   manager,
		views:     expirable.NewLRU[string, *notebook.View](maxViews, nil, ttl),
		newView:   newView,
		onSignOut: onSignOut,
	}
}

// LoadAndSave loads the request's session into its context and writes the
// cookie back when the session changes.
func (s *Sessions) LoadAndSave(next http.Handler) http.Handler {
	return s.manager.LoadAndSave(next)
}

// Start begins a new session under a fresh token. ctx must come from a
// request served through LoadAndSave.
func (s *Sessions) Start(ctx context.Context) (*Session, error) {
	if err := s.manager.RenewToken(ctx); err != nil {
		return nil, err
	}
	sid := uuid.NewString()
	s.manager.Put(ctx, sidKey, sid)
	return &Session{ID: sid, View: s.view(sid)}, nil
}

// Current returns the session loaded into ctx, if one was started.
func (s *Sessions) Current(ctx context.Context) (*Session, bool) {
	sid := s.manager.GetString(ctx, sidKey)
	if sid == "" {
		return nil, false
	}
	return &Session{ID: sid, View: s.view(sid)}, true
}

// Authenticated reports whether r carries a live session cookie. It loads
// the session itself, so it works outside LoadAndSave.
func (s *Sessions) Authenticated(r *http.Request) bool {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return false
	}
	ctx, err := s.manager.Load(r.Context(), c.Value)
	if err != nil {
		return false
	}
	return s.manager.GetString(ctx, sidKey) != ""
}

// End destroys the session in ctx, drops its view, and calls the sign-out
// callback. Notes are not touched.
func (s *Sessions) End(ctx context.Context) error {
	sid := s.manager.GetString(ctx, sidKey)
	if err := s.manager.Destroy(ctx); err != nil {
		return err
	}
	if sid == "" {
		return nil
	}
	s.views.Remove(sid)
	if s.onSignOut != nil {
		s.onSignOut(sid)
	}
	return nil
}

// Len returns the number of collection views held.
func (s *Sessions) Len() int {
	return s.views.Len()
}

func (s *Sessions) view(sid string) *notebook.View {
	if v, ok := s.views.Get(sid); ok {
		return v
	}
	v := s.newView()
	s.views.Add(sid, v)
	return v
}
