package game

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/wardenbot/warden/internal/store"
)

const snapshotKey = "sessions"

// sessionSnapshot is the serialized form of one session. The board is
// kept as raw JSON and decoded per type on restore.
type sessionSnapshot struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	ChatID        string          `json:"chat_id"`
	Players       []string        `json:"players"`
	CurrentPlayer int             `json:"current_player"`
	Status        Status          `json:"status"`
	Board         json.RawMessage `json:"board,omitempty"`
	Score         map[string]int  `json:"score"`
	MoveLog       []MoveRecord    `json:"move_log,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	StartedAt     time.Time       `json:"started_at,omitempty"`
	EndedAt       time.Time       `json:"ended_at,omitempty"`
	Winner        string          `json:"winner,omitempty"`
	LastActivity  time.Time       `json:"last_activity"`
	Settings      Settings        `json:"settings"`
}

// Mirror writes all tracked sessions to durable storage under the
// games namespace.
func (e *Engine) Mirror(ctx context.Context, p store.Persistence) error {
	e.mu.Lock()
	snaps := make([]sessionSnapshot, 0, len(e.sessions))
	for _, s := range e.sessions {
		board, err := json.Marshal(s.Board)
		if err != nil {
			e.mu.Unlock()
			return err
		}
		snaps = append(snaps, sessionSnapshot{
			ID:            s.ID,
			Type:          s.Type,
			ChatID:        s.ChatID,
			Players:       s.Players,
			CurrentPlayer: s.CurrentPlayer,
			Status:        s.Status,
			Board:         board,
			Score:         s.Score,
			MoveLog:       s.MoveLog,
			CreatedAt:     s.CreatedAt,
			StartedAt:     s.StartedAt,
			EndedAt:       s.EndedAt,
			Winner:        s.Winner,
			LastActivity:  s.LastActivity,
			Settings:      s.Settings,
		})
	}
	e.mu.Unlock()

	data, err := json.Marshal(snaps)
	if err != nil {
		return err
	}
	return p.Save(ctx, store.NamespaceGames, snapshotKey, data)
}

// LoadFrom replaces tracked sessions with the durable snapshot. A
// missing snapshot leaves the engine empty.
func (e *Engine) LoadFrom(ctx context.Context, p store.Persistence) error {
	data, err := p.Load(ctx, store.NamespaceGames, snapshotKey)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil
		}
		return err
	}
	var snaps []sessionSnapshot
	if err := json.Unmarshal(data, &snaps); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = make(map[string]*Session, len(snaps))
	e.active = make(map[string]string)
	for _, snap := range snaps {
		board, err := e.decodeBoardLocked(snap.Type, snap.Board)
		if err != nil {
			return err
		}
		s := &Session{
			ID:            snap.ID,
			Type:          snap.Type,
			ChatID:        snap.ChatID,
			Players:       snap.Players,
			CurrentPlayer: snap.CurrentPlayer,
			Status:        snap.Status,
			Board:         board,
			Score:         snap.Score,
			MoveLog:       snap.MoveLog,
			CreatedAt:     snap.CreatedAt,
			StartedAt:     snap.StartedAt,
			EndedAt:       snap.EndedAt,
			Winner:        snap.Winner,
			LastActivity:  snap.LastActivity,
			Settings:      snap.Settings,
		}
		if s.Score == nil {
			s.Score = make(map[string]int)
		}
		e.sessions[s.ID] = s
		if s.Status != StatusEnded {
			e.active[s.ChatID] = s.ID
		}
	}
	return nil
}

func (e *Engine) decodeBoardLocked(typ Type, raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	strategy, ok := e.strategies[typ]
	if !ok {
		return nil, ErrUnknownGameType
	}
	board := strategy.NewBoard()
	if err := json.Unmarshal(raw, board); err != nil {
		return nil, err
	}
	return board, nil
}
