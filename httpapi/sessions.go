package httpapi

import (
	"sync"
	"time"

	"pkt.systems/osiris/schema"
	"pkt.systems/osiris/shell"
	"pkt.systems/pslog"
)

// clientSession is the sign-in state shared by every terminal and notes
// request carrying the same client cookie.
type clientSession struct {
	backend  shell.Backend
	lastSeen time.Time
}

type clientSessions struct {
	mu    sync.Mutex
	ttl   time.Duration
	open  func(log pslog.Logger) shell.Backend
	items map[schema.ClientID]*clientSession
	now   func() time.Time
}

func newClientSessions(ttl time.Duration, open func(log pslog.Logger) shell.Backend) *clientSessions {
	return &clientSessions{
		ttl:   ttl,
		open:  open,
		items: make(map[schema.ClientID]*clientSession),
		now:   time.Now,
	}
}

// backend returns the client's backend, opening one on first use. Sessions
// idle for longer than the ttl are dropped, which signs them out.
func (s *clientSessions) backend(client schema.ClientID, log pslog.Logger) shell.Backend {
	if s == nil || s.open == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.pruneLocked(now, log)
	entry, ok := s.items[client]
	if !ok {
		entry = &clientSession{backend: s.open(log.With("client", client))}
		s.items[client] = entry
		log.Debug("http client session opened", "client", client)
	}
	entry.lastSeen = now
	return entry.backend
}

func (s *clientSessions) pruneLocked(now time.Time, log pslog.Logger) {
	if s.ttl <= 0 {
		return
	}
	for client, entry := range s.items {
		if now.Sub(entry.lastSeen) > s.ttl {
			delete(s.items, client)
			log.Debug("http client session expired", "client", client)
		}
	}
}

func (s *clientSessions) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
