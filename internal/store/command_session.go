package store

import (
	"errors"
	"time"
)

// commandSessionPrefix is the reserved slot-key namespace for
// multi-step command sessions.
const commandSessionPrefix = "cmdsess:"

// ErrCommandSessionActive is returned when starting a command session
// while one is already active for the same (chat, command).
var ErrCommandSessionActive = errors.New("command session already active")

// ErrNoCommandSession is returned when advancing or ending a command
// session that does not exist.
var ErrNoCommandSession = errors.New("no active command session")

// CommandSession tracks a multi-step command workflow within a chat.
// At most one is active per (chat, command).
type CommandSession struct {
	Command   string         `json:"command"`
	Step      int            `json:"step"`
	Data      map[string]any `json:"data"`
	Active    bool           `json:"active"`
	StartedAt time.Time      `json:"started_at"`
}

// StartCommandSession begins a command session at step 0.
func (s *Store) StartCommandSession(chatID, command string, data map[string]any) (*CommandSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := commandSessionPrefix + command
	slots := s.slotsLocked(chatID)
	if v, ok := s.getLocked(slots, key); ok {
		if cs, ok := v.(*CommandSession); ok && cs.Active {
			return nil, ErrCommandSessionActive
		}
	}
	if data == nil {
		data = make(map[string]any)
	}
	cs := &CommandSession{
		Command:   command,
		Step:      0,
		Data:      data,
		Active:    true,
		StartedAt: s.now(),
	}
	s.setLocked(slots, key, cs, time.Time{}, chatID)
	return cs, nil
}

// GetCommandSession returns the active command session for
// (chat, command), or nil if none exists.
func (s *Store) GetCommandSession(chatID, command string) *CommandSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.getLocked(s.chats[chatID], commandSessionPrefix+command)
	if !ok {
		return nil
	}
	cs, ok := v.(*CommandSession)
	if !ok || !cs.Active {
		return nil
	}
	return cs
}

// NextStep advances the command session one step, merging extra into
// its accumulated data.
func (s *Store) NextStep(chatID, command string, extra map[string]any) (*CommandSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.getLocked(s.chats[chatID], commandSessionPrefix+command)
	if !ok {
		return nil, ErrNoCommandSession
	}
	cs, ok := v.(*CommandSession)
	if !ok || !cs.Active {
		return nil, ErrNoCommandSession
	}
	cs.Step++
	for k, val := range extra {
		cs.Data[k] = val
	}
	return cs, nil
}

// EndCommandSession removes the command session for (chat, command).
func (s *Store) EndCommandSession(chatID, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := commandSessionPrefix + command
	if _, ok := s.getLocked(s.chats[chatID], key); !ok {
		return ErrNoCommandSession
	}
	s.deleteLocked(s.chats[chatID], key)
	return nil
}
