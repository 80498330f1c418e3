// Package game implements the polymorphic game-session engine: a
// per-type strategy table drives session lifecycle, move grammars,
// move application and end conditions.
package game

import (
	"time"
)

// Type identifies a registered game type.
type Type string

const (
	TypeTicTacToe Type = "tictactoe"
	TypeWordChain Type = "wordchain"
	TypeHangman   Type = "hangman"
	TypeQuiz      Type = "quiz"
)

// Status is the lifecycle state of a game session.
type Status string

const (
	StatusWaiting Status = "waiting"
	StatusActive  Status = "active"
	StatusEnded   Status = "ended"
)

// Outcome is the reason a game session ended.
type Outcome string

const (
	OutcomeWin     Outcome = "win"
	OutcomeDraw    Outcome = "draw"
	OutcomeLoss    Outcome = "loss"
	OutcomeTimeout Outcome = "timeout"
	OutcomeStopped Outcome = "stopped"
)

// Question is one quiz prompt with its correct answer.
type Question struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
}

// Settings configures a game session. Zero fields are filled from the
// type's defaults at creation.
type Settings struct {
	MaxPlayers  int           `json:"max_players"`
	MinPlayers  int           `json:"min_players"`
	TurnTimeout time.Duration `json:"turn_timeout"`

	// MaxWrongGuesses bounds hangman misses.
	MaxWrongGuesses int `json:"max_wrong_guesses,omitempty"`
	// Word fixes the hangman target; empty picks a random word.
	Word string `json:"word,omitempty"`
	// Questions is the quiz question list.
	Questions []Question `json:"questions,omitempty"`
}

// MoveRecord is one accepted or attempted move in the move log.
type MoveRecord struct {
	Player    string    `json:"player"`
	Move      string    `json:"move"`
	Timestamp time.Time `json:"timestamp"`
	Outcome   string    `json:"outcome"`
}

// Session is a single game session within a chat. At most one
// non-ended session exists per chat.
type Session struct {
	ID            string
	Type          Type
	ChatID        string
	Players       []string
	CurrentPlayer int
	Status        Status
	Board         any
	Score         map[string]int
	MoveLog       []MoveRecord
	CreatedAt     time.Time
	StartedAt     time.Time
	EndedAt       time.Time
	Winner        string
	LastActivity  time.Time
	Settings      Settings
}

// HasPlayer reports whether player participates in the session.
func (s *Session) HasPlayer(player string) bool {
	for _, p := range s.Players {
		if p == player {
			return true
		}
	}
	return false
}

// Summary is the end-of-game notification payload for the statistics
// collaborator.
type Summary struct {
	Players []string
	Type    Type
	Winner  string
	Score   map[string]int
}

// Statistics receives end-of-game notifications.
type Statistics interface {
	GameEnded(summary Summary)
}

// NopStatistics discards all notifications.
type NopStatistics struct{}

func (NopStatistics) GameEnded(Summary) {}

// MoveResult reports the effect of an accepted move.
type MoveResult struct {
	// Outcome is the per-move outcome recorded in the move log.
	Outcome string
	// Ended reports whether the move ended the game.
	Ended bool
	// Winner is set when Ended is true; empty means draw or loss.
	Winner string
	// EndOutcome is set when Ended is true.
	EndOutcome Outcome
}
