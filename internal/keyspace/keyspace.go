package keyspace

import (
	"time"
)

// Handle is a direct reference to the value slot of a matched key. It
// stays valid until the next mutation of that key through the store;
// holding one across commands is a caller bug.
type Handle struct {
	key   string
	value *Value
}

// Key returns the key the handle refers to.
func (h Handle) Key() string { return h.key }

// Value returns the referenced value slot for in-place mutation.
func (h Handle) Value() *Value { return h.value }

// Store is the committed state of the database: the keyed values plus a
// disjoint TTL sidecar. Expiration is lazy: the only expiration paths
// are Find and snapshot traversal. The store is not safe for concurrent
// use; all access runs on the processor strand.
type Store struct {
	keys map[string]*Value
	ttl  map[string]time.Time
	now  func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		keys: make(map[string]*Value),
		ttl:  make(map[string]time.Time),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of live keys, counting not-yet-collected
// expired entries.
func (s *Store) Len() int {
	return len(s.keys)
}

// Find looks up a key, expiring it on the way: a present key whose
// deadline has passed is removed together with its TTL entry and
// reported as absent.
func (s *Store) Find(key string) (Handle, bool) {
	value, ok := s.keys[key]
	if !ok {
		return Handle{}, false
	}
	deadline, ok := s.ttl[key]
	if ok && !s.now().Before(deadline) {
		delete(s.ttl, key)
		delete(s.keys, key)
		return Handle{}, false
	}
	return Handle{key: key, value: value}, true
}

// Insert unconditionally overwrites the value for key and returns a
// handle to the new slot. Any existing TTL is left in place; the caller
// decides whether to keep or clear it.
func (s *Store) Insert(key string, value *Value) Handle {
	s.keys[key] = value
	return Handle{key: key, value: value}
}

// Erase removes the key and any TTL.
func (s *Store) Erase(h Handle) {
	delete(s.ttl, h.key)
	delete(s.keys, h.key)
}

// ExpireAfter sets the TTL to fire after d from now.
func (s *Store) ExpireAfter(h Handle, d time.Duration) {
	s.ttl[h.key] = s.now().Add(d)
}

// ExpireAt sets the TTL to fire at the absolute instant t.
func (s *Store) ExpireAt(h Handle, t time.Time) {
	s.ttl[h.key] = t
}

// TTL returns the remaining time to live. ok is false when the key has
// no TTL. The remaining time may be non-positive; the caller treats that
// as expired.
func (s *Store) TTL(h Handle) (time.Duration, bool) {
	deadline, ok := s.ttl[h.key]
	if !ok {
		return 0, false
	}
	return deadline.Sub(s.now()), true
}

// ClearExpires removes any TTL without touching the value.
func (s *Store) ClearExpires(h Handle) {
	delete(s.ttl, h.key)
}

// Entry is one key's snapshot record.
type Entry struct {
	Key       string
	Value     *Value
	HasExpire bool
	ExpireAt  time.Time
}

// Snapshot is a point-in-time copy of the keyspace, free of expired
// entries at creation time.
type Snapshot struct {
	Entries []Entry
}

// CreateSnapshot deep-copies the live keyspace. Entries already past
// their deadline are dropped from the snapshot and collected from the
// store, normalising the TTL sidecar.
func (s *Store) CreateSnapshot() *Snapshot {
	now := s.now()

	var dead []string
	snap := &Snapshot{Entries: make([]Entry, 0, len(s.keys))}
	for key, value := range s.keys {
		entry := Entry{Key: key, Value: value.Clone()}
		if deadline, ok := s.ttl[key]; ok {
			if !now.Before(deadline) {
				dead = append(dead, key)
				continue
			}
			entry.HasExpire = true
			entry.ExpireAt = deadline
		}
		snap.Entries = append(snap.Entries, entry)
	}

	for _, key := range dead {
		delete(s.ttl, key)
		delete(s.keys, key)
	}
	return snap
}

// ReplaceWithSnapshot discards the current contents and installs the
// snapshot's entries. The snapshot's values are taken over as-is; the
// caller must not reuse snap afterwards.
func (s *Store) ReplaceWithSnapshot(snap *Snapshot) {
	s.keys = make(map[string]*Value, len(snap.Entries))
	s.ttl = make(map[string]time.Time)
	for _, entry := range snap.Entries {
		s.keys[entry.Key] = entry.Value
		if entry.HasExpire {
			s.ttl[entry.Key] = entry.ExpireAt
		}
	}
}
