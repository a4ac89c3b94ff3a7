package daemon

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jmaddaus/issuetrack/internal/bulk"
	"github.com/jmaddaus/issuetrack/internal/selection"
)

const sessionCookie = "issuetrack_session"

// session is the per-browser state behind the list page: the checked rows,
// the bulk client whose in-flight payloads are overlaid on the table, and a
// one-shot flash message.
type session struct {
	id     string
	client *bulk.Client

	mu       sync.Mutex
	sel      *selection.Set
	flash    string
	lastSeen time.Time
}

// selection returns a snapshot of the selected ids.
func (s *session) selection() *selection.Set {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel.Clone()
}

func (s *session) updateSelection(fn func(*selection.Set)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.sel)
}

func (s *session) setFlash(msg string) {
	s.mu.Lock()
	s.flash = msg
	s.mu.Unlock()
}

func (s *session) takeFlash() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg := s.flash
	s.flash = ""
	return msg
}

type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session
	sender   bulk.Sender
	idle     time.Duration
	now      func() time.Time
}

func newSessionStore(sender bulk.Sender, idle time.Duration) *sessionStore {
	return &sessionStore{
		sessions: make(map[string]*session),
		sender:   sender,
		idle:     idle,
		now:      time.Now,
	}
}

// get returns the caller's session, starting a new one (and setting the
// cookie) when the request carries no known session id.
func (ss *sessionStore) get(w http.ResponseWriter, r *http.Request) *session {
	now := ss.now()

	ss.mu.Lock()
	defer ss.mu.Unlock()

	if c, err := r.Cookie(sessionCookie); err == nil {
		if s, ok := ss.sessions[c.Value]; ok {
			s.mu.Lock()
			s.lastSeen = now
			s.mu.Unlock()
			return s
		}
	}

	s := &session{
		id:       uuid.NewString(),
		client:   bulk.NewClient(ss.sender),
		sel:      selection.New(),
		lastSeen: now,
	}
	ss.sessions[s.id] = s
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return s
}

func (ss *sessionStore) len() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	return len(ss.sessions)
}

// reap drops sessions idle for longer than the idle limit. A session with
// a bulk submission still in flight is kept until it settles.
func (ss *sessionStore) reap() int {
	cutoff := ss.now().Add(-ss.idle)

	ss.mu.Lock()
	var expired []*session
	for id, s := range ss.sessions {
		s.mu.Lock()
		stale := s.lastSeen.Before(cutoff)
		s.mu.Unlock()
		if stale && s.client.Overlay().Empty() {
			delete(ss.sessions, id)
			expired = append(expired, s)
		}
	}
	ss.mu.Unlock()

	for _, s := range expired {
		s.client.Wait()
	}
	return len(expired)
}

// close waits for every session's outstanding submissions.
func (ss *sessionStore) close() {
	ss.mu.Lock()
	clients := make([]*bulk.Client, 0, len(ss.sessions))
	for _, s := range ss.sessions {
		clients = append(clients, s.client)
	}
	ss.mu.Unlock()

	for _, c := range clients {
		c.Wait()
	}
}
