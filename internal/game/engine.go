package game

import (
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Engine owns every game session and its lifecycle. Control flow is
// type-agnostic; per-type behavior lives in the strategy table.
type Engine struct {
	mu         sync.Mutex
	strategies map[Type]Strategy
	sessions   map[string]*Session
	active     map[string]string // chatID -> session ID, non-ended only
	stats      Statistics
	log        *slog.Logger

	now func() time.Time
}

// NewEngine creates an engine with the built-in strategy table.
func NewEngine(stats Statistics, log *slog.Logger) *Engine {
	if stats == nil {
		stats = NopStatistics{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		strategies: defaultStrategies(),
		sessions:   make(map[string]*Session),
		active:     make(map[string]string),
		stats:      stats,
		log:        log,
		now:        time.Now,
	}
}

// Types returns the registered game types.
func (e *Engine) Types() []Type {
	e.mu.Lock()
	defer e.mu.Unlock()
	types := make([]Type, 0, len(e.strategies))
	for t := range e.strategies {
		types = append(types, t)
	}
	return types
}

// Create starts a new session in a chat with the initiator as first
// player. Fails with ErrGameActive while the chat hosts a non-ended
// session, and ErrUnknownGameType for unregistered types. Sessions
// whose minimum player count is already met start immediately.
func (e *Engine) Create(typ Type, chatID, initiator string, settings Settings) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, busy := e.active[chatID]; busy {
		return nil, ErrGameActive
	}
	strategy, ok := e.strategies[typ]
	if !ok {
		return nil, ErrUnknownGameType
	}

	now := e.now()
	s := &Session{
		ID:           ulid.Make().String(),
		Type:         typ,
		ChatID:       chatID,
		Players:      []string{initiator},
		Status:       StatusWaiting,
		Score:        make(map[string]int),
		CreatedAt:    now,
		LastActivity: now,
		Settings:     mergeSettings(settings, strategy.Defaults()),
	}
	e.sessions[s.ID] = s
	e.active[chatID] = s.ID
	e.log.Info("game created", "game", s.ID, "type", typ, "chat", chatID)

	if len(s.Players) >= s.Settings.MinPlayers {
		e.startLocked(s, strategy)
	}
	return s, nil
}

// Join adds a player to a waiting session. The session starts once
// the minimum player count is reached.
func (e *Engine) Join(gameID, player string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if s.Status != StatusWaiting {
		return nil, ErrGameNotJoinable
	}
	if len(s.Players) >= s.Settings.MaxPlayers {
		return nil, ErrGameFull
	}
	if s.HasPlayer(player) {
		return nil, ErrAlreadyJoined
	}
	s.Players = append(s.Players, player)
	s.LastActivity = e.now()

	if len(s.Players) >= s.Settings.MinPlayers {
		e.startLocked(s, e.strategies[s.Type])
	}
	return s, nil
}

// Start activates a waiting session regardless of player count.
func (e *Engine) Start(gameID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[gameID]
	if !ok {
		return ErrGameNotFound
	}
	if s.Status != StatusWaiting {
		return ErrGameNotJoinable
	}
	e.startLocked(s, e.strategies[s.Type])
	return nil
}

func (e *Engine) startLocked(s *Session, strategy Strategy) {
	strategy.Init(s)
	s.Status = StatusActive
	s.CurrentPlayer = 0
	s.Score = make(map[string]int)
	for _, p := range s.Players {
		s.Score[p] = 0
	}
	s.StartedAt = e.now()
	e.log.Info("game started", "game", s.ID, "type", s.Type, "players", len(s.Players))
}

// ProcessMove validates and applies one move. Rule violations return
// *MoveRejectedError without mutating the session; grammar mismatches
// return ErrInvalidMoveFormat, which the pipeline drops silently.
func (e *Engine) ProcessMove(gameID, player, rawMove string) (*MoveResult, error) {
	e.mu.Lock()

	s, ok := e.sessions[gameID]
	if !ok {
		e.mu.Unlock()
		return nil, ErrGameNotFound
	}
	if s.Status != StatusActive {
		e.mu.Unlock()
		return nil, ErrGameNotActive
	}
	if !s.HasPlayer(player) {
		e.mu.Unlock()
		return nil, ErrNotParticipant
	}
	strategy := e.strategies[s.Type]
	if strategy.TurnBased && player != s.Players[s.CurrentPlayer] {
		e.mu.Unlock()
		return nil, ErrNotYourTurn
	}

	move, err := strategy.ParseMove(rawMove)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	outcome, err := strategy.ApplyMove(s, player, move)
	if err != nil {
		e.mu.Unlock()
		return nil, err
	}

	now := e.now()
	s.MoveLog = append(s.MoveLog, MoveRecord{
		Player:    player,
		Move:      move,
		Timestamp: now,
		Outcome:   outcome,
	})
	s.LastActivity = now
	if strategy.TurnBased {
		s.CurrentPlayer = (s.CurrentPlayer + 1) % len(s.Players)
	}

	result := &MoveResult{Outcome: outcome}
	var summary *Summary
	if over, winner, endOutcome := strategy.CheckEnd(s); over {
		summary = e.endLocked(s, endOutcome, winner)
		result.Ended = true
		result.Winner = winner
		result.EndOutcome = endOutcome
	}
	e.mu.Unlock()

	if summary != nil {
		e.stats.GameEnded(*summary)
	}
	return result, nil
}

// End force-ends a session with the given outcome and winner. Ending
// an already-ended session is a no-op.
func (e *Engine) End(gameID string, outcome Outcome, winner string) error {
	e.mu.Lock()
	s, ok := e.sessions[gameID]
	if !ok {
		e.mu.Unlock()
		return ErrGameNotFound
	}
	if s.Status == StatusEnded {
		e.mu.Unlock()
		return nil
	}
	summary := e.endLocked(s, outcome, winner)
	e.mu.Unlock()

	e.stats.GameEnded(*summary)
	return nil
}

// endLocked finalizes a session, removes it from the active index
// (it stays in the session table for history until swept) and builds
// the statistics notification.
func (e *Engine) endLocked(s *Session, outcome Outcome, winner string) *Summary {
	s.Status = StatusEnded
	s.EndedAt = e.now()
	s.Winner = winner
	if e.active[s.ChatID] == s.ID {
		delete(e.active, s.ChatID)
	}
	e.log.Info("game ended", "game", s.ID, "type", s.Type, "outcome", outcome, "winner", winner)

	score := make(map[string]int, len(s.Score))
	for p, v := range s.Score {
		score[p] = v
	}
	players := make([]string, len(s.Players))
	copy(players, s.Players)
	return &Summary{Players: players, Type: s.Type, Winner: winner, Score: score}
}

// Get returns a session by ID.
func (e *Engine) Get(gameID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[gameID]
	return s, ok
}

// ActiveSession returns the chat's non-ended session, if any.
func (e *Engine) ActiveSession(chatID string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.active[chatID]
	if !ok {
		return nil, false
	}
	return e.sessions[id], true
}

// IsMoveInput reports whether text parses under the move grammar of
// the chat's active game. Used by the authorization gate.
func (e *Engine) IsMoveInput(chatID, text string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	id, ok := e.active[chatID]
	if !ok {
		return false
	}
	s := e.sessions[id]
	if s.Status != StatusActive {
		return false
	}
	_, err := e.strategies[s.Type].ParseMove(text)
	return err == nil
}
