// Package store implements the chat-scoped session store: named slots
// per chat, global slots, TTL-bounded temporary entries and multi-step
// command sessions, mirrored to durable storage.
package store

import (
	"sync"
	"time"
)

// entry is a single named slot. A zero expireAt means the entry never
// expires. gen guards against stale expiry timers firing after the
// slot was overwritten or deleted.
type entry struct {
	value    any
	expireAt time.Time
	timer    *time.Timer
	gen      uint64
}

// Store holds chat-scoped and global key/value slots. Chats are
// created lazily on first write and never explicitly destroyed; slots
// disappear through Delete or TTL expiry.
type Store struct {
	mu     sync.Mutex
	chats  map[string]map[string]*entry
	global map[string]*entry
	gen    uint64

	now func() time.Time

	// dispatch routes eager expiry callbacks through the runtime's
	// per-chat serialization. Global slots use an empty chat ID.
	dispatch func(chatID string, fn func())
}

// New creates an empty store.
func New() *Store {
	s := &Store{
		chats:  make(map[string]map[string]*entry),
		global: make(map[string]*entry),
		now:    time.Now,
	}
	s.dispatch = func(_ string, fn func()) { fn() }
	return s
}

// SetDispatch routes scheduled expiry deletions through fn, so that
// they observe the same serialization as inbound events.
func (s *Store) SetDispatch(fn func(chatID string, fn func())) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = fn
}

// Get returns the value stored under (chatID, key). Expired temporary
// entries are treated as absent even if their eager deletion has not
// fired yet.
func (s *Store) Get(chatID, key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(s.chats[chatID], key)
}

// Set stores value under (chatID, key) with no expiry.
func (s *Store) Set(chatID, key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(s.slotsLocked(chatID), key, value, time.Time{}, chatID)
}

// Delete removes (chatID, key), cancelling any pending expiry timer.
func (s *Store) Delete(chatID, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(s.chats[chatID], key)
}

// SetTemporary stores value under (chatID, key) with a TTL. The entry
// is invalid once now >= expiry: reads check lazily, and a scheduled
// deletion reclaims the slot eagerly. A read after expiry never
// returns the stale value.
func (s *Store) SetTemporary(chatID, key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(s.slotsLocked(chatID), key, value, s.now().Add(ttl), chatID)
}

// GetGlobal returns the value stored under a global key.
func (s *Store) GetGlobal(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(s.global, key)
}

// SetGlobal stores value under a global key with no expiry.
func (s *Store) SetGlobal(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(s.global, key, value, time.Time{}, "")
}

// SetGlobalTemporary stores value under a global key with a TTL.
func (s *Store) SetGlobalTemporary(key string, value any, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(s.global, key, value, s.now().Add(ttl), "")
}

// DeleteGlobal removes a global key.
func (s *Store) DeleteGlobal(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(s.global, key)
}

// Keys returns the live slot keys of a chat.
func (s *Store) Keys(chatID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.chats[chatID]
	keys := make([]string, 0, len(slots))
	for k, e := range slots {
		if e.expireAt.IsZero() || s.now().Before(e.expireAt) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (s *Store) slotsLocked(chatID string) map[string]*entry {
	slots, ok := s.chats[chatID]
	if !ok {
		slots = make(map[string]*entry)
		s.chats[chatID] = slots
	}
	return slots
}

func (s *Store) getLocked(slots map[string]*entry, key string) (any, bool) {
	e, ok := slots[key]
	if !ok {
		return nil, false
	}
	if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
		// Expired but the eager deletion has not fired yet.
		return nil, false
	}
	return e.value, true
}

func (s *Store) setLocked(slots map[string]*entry, key string, value any, expireAt time.Time, chatID string) {
	if old, ok := slots[key]; ok && old.timer != nil {
		old.timer.Stop()
	}
	s.gen++
	e := &entry{value: value, expireAt: expireAt, gen: s.gen}
	slots[key] = e
	if !expireAt.IsZero() {
		gen := e.gen
		e.timer = time.AfterFunc(expireAt.Sub(s.now()), func() {
			s.dispatch(chatID, func() { s.expire(chatID, key, gen) })
		})
	}
}

func (s *Store) deleteLocked(slots map[string]*entry, key string) {
	if e, ok := slots[key]; ok {
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(slots, key)
	}
}

// expire removes (chatID, key) if it still holds the generation the
// timer was armed for. A slot overwritten or deleted in the meantime
// is left alone.
func (s *Store) expire(chatID, key string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	slots := s.global
	if chatID != "" {
		slots = s.chats[chatID]
	}
	if e, ok := slots[key]; ok && e.gen == gen {
		delete(slots, key)
	}
}
