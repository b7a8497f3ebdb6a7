package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"medinsight/internal/model"
)

const defaultMaxSessions = 1000

// MemorySessionStore is a bounded, expiring in-process session store. The
// least recently used session is dropped once maxSessions is reached.
type MemorySessionStore struct {
	lru    *expirable.LRU[string, model.Session]
	onSize func(n int)
}

func NewMemorySessionStore(maxSessions int, ttl time.Duration) *MemorySessionStore {
	if maxSessions <= 0 {
		maxSessions = defaultMaxSessions
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &MemorySessionStore{
		lru: expirable.NewLRU[string, model.Session](maxSessions, nil, ttl),
	}
}

// OnSizeChange registers fn to receive the session count after every write.
func (s *MemorySessionStore) OnSizeChange(fn func(n int)) {
	s.onSize = fn
}

func (s *MemorySessionStore) Get(_ context.Context, id string) (*model.Session, bool, error) {
	session, ok := s.lru.Get(id)
	if !ok {
		return nil, false, nil
	}
	session.Messages = session.History()
	return &session, true, nil
}

func (s *MemorySessionStore) Save(_ context.Context, session *model.Session) error {
	stored := *session
	stored.Messages = session.History()
	s.lru.Add(session.ID, stored)
	s.reportSize()
	return nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.lru.Remove(id)
	s.reportSize()
	return nil
}

func (s *MemorySessionStore) Len() int {
	return s.lru.Len()
}

func (s *MemorySessionStore) reportSize() {
	if s.onSize != nil {
		s.onSize(s.lru.Len())
	}
}
