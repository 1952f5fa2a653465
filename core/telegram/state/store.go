package state

import "sync"

// Store maps Telegram user ids to conversation records of type T.
// The zero value is not usable; call NewStore.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[int64]*entry[T]
}

// refs and present are guarded by Store.mu, value by entry.mu.
type entry[T any] struct {
	mu      sync.Mutex
	refs    int
	present bool
	value   T
}

// NewStore constructs an empty in-memory Store.
func NewStore[T any]() *Store[T] {
	return &Store[T]{entries: make(map[int64]*entry[T])}
}

// Slot is exclusive access to one user's record. It must be released exactly once.
type Slot[T any] struct {
	store    *Store[T]
	userID   int64
	e        *entry[T]
	released bool
}

// Acquire blocks until the caller owns the record of userID.
func (s *Store[T]) Acquire(userID int64) *Slot[T] {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok {
		e = &entry[T]{}
		s.entries[userID] = e
	}
	e.refs++
	s.mu.Unlock()

	e.mu.Lock()
	return &Slot[T]{store: s, userID: userID, e: e}
}

// UserID returns the owner of the slot.
func (sl *Slot[T]) UserID() int64 { return sl.userID }

// Get returns the stored record and whether one exists.
func (sl *Slot[T]) Get() (T, bool) {
	return sl.e.value, sl.store.present(sl.e)
}

// Set replaces the stored record.
func (sl *Slot[T]) Set(v T) {
	sl.e.value = v
	sl.store.setPresent(sl.e, true)
}

// Delete discards the stored record.
func (sl *Slot[T]) Delete() {
	var zero T
	sl.e.value = zero
	sl.store.setPresent(sl.e, false)
}

func (s *Store[T]) present(e *entry[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.present
}

func (s *Store[T]) setPresent(e *entry[T], v bool) {
	s.mu.Lock()
	e.present = v
	s.mu.Unlock()
}

// Release gives up ownership. Entries without a record and without waiters are dropped.
func (sl *Slot[T]) Release() {
	if sl.released {
		return
	}
	sl.released = true

	s := sl.store
	s.mu.Lock()
	sl.e.refs--
	if sl.e.refs == 0 && !sl.e.present {
		delete(s.entries, sl.userID)
	}
	s.mu.Unlock()
	sl.e.mu.Unlock()
}

// Len reports how many users currently hold a record.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, e := range s.entries {
		if e.present {
			n++
		}
	}
	return n
}

// InProgress reports whether userID has a stored record. It does not wait for the slot.
func (s *Store[T]) InProgress(userID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[userID]
	return ok && e.present
}
