// Package sessions keeps mounted views between the page request that mounts
// them and the fragment request that renders their settled state.
package sessions

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/stockcharts/collageview/internal/boundaries/out"
	"github.com/stockcharts/collageview/internal/domain"
)

// Ensure MemoryStore implements out.SessionStore.
var _ out.SessionStore = (*MemoryStore)(nil)

type entry struct {
	view  out.MountedView
	taken bool
}

// MemoryStore is an in-memory session store with per-session TTL.
// Sessions that expire before being taken are unmounted by the cache janitor.
type MemoryStore struct {
	cache *cache.Cache
	mu    sync.Mutex
}

// NewMemoryStore creates a store whose sessions live for ttl.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 2
	if cleanup < time.Second {
		cleanup = time.Second
	}

	s := &MemoryStore{
		cache: cache.New(ttl, cleanup),
	}
	s.cache.OnEvicted(s.evicted)

	return s
}

// evicted runs for janitor expiry and explicit deletes.
func (s *MemoryStore) evicted(_ string, v interface{}) {
	e, ok := v.(*entry)
	if !ok {
		return
	}

	s.mu.Lock()
	taken := e.taken
	s.mu.Unlock()

	if !taken {
		e.view.Unmount()
	}
}

// Add stores view under a new random ID.
func (s *MemoryStore) Add(view out.MountedView) (string, error) {
	id := uuid.NewString()
	if err := s.cache.Add(id, &entry{view: view}, cache.DefaultExpiration); err != nil {
		return "", err
	}
	return id, nil
}

// Take removes and returns the view for id. Ownership passes to the caller,
// which becomes responsible for unmounting it.
func (s *MemoryStore) Take(id string) (out.MountedView, error) {
	s.mu.Lock()
	v, found := s.cache.Get(id)
	if !found {
		s.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	e := v.(*entry)
	if e.taken {
		s.mu.Unlock()
		return nil, domain.ErrSessionNotFound
	}
	e.taken = true
	s.mu.Unlock()

	s.cache.Delete(id)
	return e.view, nil
}

// Count returns the number of stored sessions, including expired ones the
// janitor has not collected yet.
func (s *MemoryStore) Count() int {
	return s.cache.ItemCount()
}

// Close unmounts every stored view and empties the store.
func (s *MemoryStore) Close() {
	items := s.cache.Items()
	s.cache.Flush()

	for _, item := range items {
		if e, ok := item.Object.(*entry); ok {
			s.mu.Lock()
			taken := e.taken
			e.taken = true
			s.mu.Unlock()
			if !taken {
				e.view.Unmount()
			}
		}
	}
}
