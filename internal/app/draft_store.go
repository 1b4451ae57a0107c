package app

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"inventory-console/internal/core"
)

// draftStore keeps in-progress drafts in memory, keyed by a random id.
// Every access renews the entry's TTL. Callers receive copies; changes go
// through update, which applies them atomically. A draft claimed for
// submission rejects further claims and edits until it is released.
type draftStore struct {
	c   *cache.Cache
	ttl time.Duration

	mu         sync.Mutex
	submitting map[string]bool
}

func newDraftStore(ttl time.Duration) *draftStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &draftStore{c: cache.New(ttl, ttl/2), ttl: ttl, submitting: make(map[string]bool)}
}

func (s *draftStore) create(kind core.DocumentKind, header core.DraftHeader) (string, *core.Draft) {
	id := uuid.NewString()
	d := core.NewDraft(kind)
	d.Header = header
	s.c.Set(id, d.Clone(), s.ttl)
	return id, d
}

func (s *draftStore) get(id string) (*core.Draft, bool) {
	v, ok := s.c.Get(id)
	if !ok {
		return nil, false
	}
	d := v.(*core.Draft)
	s.c.Set(id, d, s.ttl)
	return d.Clone(), true
}

// update applies fn to a copy of the draft and stores the copy only if fn
// succeeds.
func (s *draftStore) update(id string, fn func(*core.Draft) error) (*core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting[id] {
		return nil, ErrDraftSubmitting
	}
	d, ok := s.get(id)
	if !ok {
		return nil, ErrDraftNotFound
	}
	if err := fn(d); err != nil {
		return nil, err
	}
	s.c.Set(id, d.Clone(), s.ttl)
	return d, nil
}

// claim marks the draft as being submitted and returns a copy of it.
// Exactly one caller wins; the winner must call finish.
func (s *draftStore) claim(id string) (*core.Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting[id] {
		return nil, ErrDraftSubmitting
	}
	d, ok := s.get(id)
	if !ok {
		return nil, ErrDraftNotFound
	}
	s.submitting[id] = true
	return d, nil
}

// finish releases a claim. A stored draft is removed; otherwise it stays
// as it was before the claim.
func (s *draftStore) finish(id string, stored bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.submitting, id)
	if stored {
		s.c.Delete(id)
	}
}

func (s *draftStore) delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.submitting[id] {
		return ErrDraftSubmitting
	}
	if _, ok := s.c.Get(id); !ok {
		return ErrDraftNotFound
	}
	s.c.Delete(id)
	return nil
}
