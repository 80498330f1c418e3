package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// snapshotKey is the persistence key the whole store mirrors under.
const snapshotKey = "snapshot"

// snapshotEntry is the serialized form of one slot.
type snapshotEntry struct {
	Value    json.RawMessage `json:"value"`
	ExpireAt time.Time       `json:"expire_at,omitempty"`
}

// storeSnapshot is the serialized form of the whole store.
type storeSnapshot struct {
	Global map[string]snapshotEntry            `json:"global,omitempty"`
	Chats  map[string]map[string]snapshotEntry `json:"chats,omitempty"`
}

// Mirror writes the current in-memory state to durable storage under
// the sessions namespace. Expired entries are skipped. Mirroring is
// at-least-once: a failure leaves memory untouched.
func (s *Store) Mirror(ctx context.Context, p Persistence) error {
	snap := s.snapshot()
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return p.Save(ctx, NamespaceSessions, snapshotKey, data)
}

// LoadFrom replaces in-memory state with the durable snapshot. A
// missing snapshot leaves the store empty. Temporary entries are
// re-armed with their remaining TTL; ones that expired while the
// process was down are dropped.
func (s *Store) LoadFrom(ctx context.Context, p Persistence) error {
	data, err := p.Load(ctx, NamespaceSessions, snapshotKey)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil
		}
		return err
	}
	var snap storeSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = make(map[string]*entry)
	s.chats = make(map[string]map[string]*entry)
	for key, se := range snap.Global {
		s.restoreLocked(s.global, "", key, se)
	}
	for chatID, slots := range snap.Chats {
		dst := s.slotsLocked(chatID)
		for key, se := range slots {
			s.restoreLocked(dst, chatID, key, se)
		}
	}
	return nil
}

func (s *Store) snapshot() storeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := storeSnapshot{
		Global: s.snapshotSlots(s.global),
		Chats:  make(map[string]map[string]snapshotEntry, len(s.chats)),
	}
	for chatID, slots := range s.chats {
		if out := s.snapshotSlots(slots); len(out) > 0 {
			snap.Chats[chatID] = out
		}
	}
	return snap
}

func (s *Store) snapshotSlots(slots map[string]*entry) map[string]snapshotEntry {
	out := make(map[string]snapshotEntry, len(slots))
	for key, e := range slots {
		if !e.expireAt.IsZero() && !s.now().Before(e.expireAt) {
			continue
		}
		value, err := json.Marshal(e.value)
		if err != nil {
			// Non-serializable values are process-local only.
			continue
		}
		out[key] = snapshotEntry{Value: value, ExpireAt: e.expireAt}
	}
	return out
}

func (s *Store) restoreLocked(slots map[string]*entry, chatID, key string, se snapshotEntry) {
	if !se.ExpireAt.IsZero() && !s.now().Before(se.ExpireAt) {
		return
	}
	value := decodeSnapshotValue(key, se.Value)
	s.setLocked(slots, key, value, se.ExpireAt, chatID)
}

// decodeSnapshotValue recovers typed values for reserved slot
// namespaces; everything else round-trips as generic JSON.
func decodeSnapshotValue(key string, raw json.RawMessage) any {
	if strings.HasPrefix(key, commandSessionPrefix) {
		var cs CommandSession
		if err := json.Unmarshal(raw, &cs); err == nil {
			return &cs
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}
