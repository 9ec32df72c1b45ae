package session

import (
	"cmp"
	"slices"
	"sync"
)

// entry guards one session. The store map lock is only held long enough to
// find the entry, so mutations on different sessions never block each other.
type entry[P Payload[P]] struct {
	mu      sync.Mutex
	sess    *Session[P]
	deleted bool
}

// Store keeps the live sessions of one kind.
type Store[P Payload[P]] struct {
	kind Kind

	mu       sync.RWMutex
	sessions map[string]*entry[P]

	// idFunc is replaced in tests to force collisions.
	idFunc func(prefix string) string
}

// NewStore creates an empty store for kind.
func NewStore[P Payload[P]](kind Kind) *Store[P] {
	return &Store[P]{
		kind:     kind,
		sessions: make(map[string]*entry[P]),
		idFunc:   newID,
	}
}

// Kind returns the kind of the sessions held by this store.
func (s *Store[P]) Kind() Kind { return s.kind }

// Create inserts a new session in phase with payload and returns a snapshot.
// The history starts with a single "initialize" entry.
func (s *Store[P]) Create(phase Phase, payload P, summary string) *Session[P] {
	now := timeNow().UTC()
	sess := &Session[P]{
		Kind:      s.kind,
		Phase:     phase,
		CreatedAt: now,
		UpdatedAt: now,
		Payload:   payload,
	}
	sess.Record("initialize", summary, phase)

	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.idFunc(s.kind.IDPrefix())
	for {
		if _, taken := s.sessions[id]; !taken {
			break
		}
		id = s.idFunc(s.kind.IDPrefix())
	}
	sess.ID = id
	s.sessions[id] = &entry[P]{sess: sess}
	return sess.clone()
}

func (s *Store[P]) lookup(id string) (*entry[P], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

// Get returns a deep snapshot of the session.
func (s *Store[P]) Get(id string) (*Session[P], error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, NotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, NotFound(id)
	}
	return e.sess.clone(), nil
}

// Update runs fn on a working copy of the session while holding the
// session's lock. The copy replaces the stored session only when fn returns
// nil, so a failed call leaves the session untouched. The returned snapshot
// reflects the committed state.
func (s *Store[P]) Update(id string, fn func(*Session[P]) error) (*Session[P], error) {
	e, ok := s.lookup(id)
	if !ok {
		return nil, NotFound(id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.deleted {
		return nil, NotFound(id)
	}

	work := e.sess.clone()
	if err := fn(work); err != nil {
		return nil, err
	}
	e.sess = work
	return work.clone(), nil
}

// Sessions returns snapshots of every session ordered by creation time.
func (s *Store[P]) Sessions() []*Session[P] {
	s.mu.RLock()
	entries := make([]*entry[P], 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*Session[P], 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		if !e.deleted {
			out = append(out, e.sess.clone())
		}
		e.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b *Session[P]) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// List returns the summaries of every session ordered by creation time.
func (s *Store[P]) List() []Summary {
	sessions := s.Sessions()
	out := make([]Summary, len(sessions))
	for i, sess := range sessions {
		out[i] = sess.Summary()
	}
	return out
}

// Delete removes the session. It reports false when the id was absent.
func (s *Store[P]) Delete(id string) bool {
	s.mu.Lock()
	e, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	e.mu.Lock()
	e.deleted = true
	e.mu.Unlock()
	return true
}

// Len returns the number of live sessions.
func (s *Store[P]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
