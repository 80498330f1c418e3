package game

import (
	"errors"
	"fmt"
)

// Common errors for game operations. All are returned to the calling
// pipeline as typed failures, never panicked.
var (
	ErrGameNotFound      = errors.New("game not found")
	ErrGameActive        = errors.New("a game is already active in this chat")
	ErrGameFull          = errors.New("game is full")
	ErrGameNotJoinable   = errors.New("game is not accepting players")
	ErrGameNotActive     = errors.New("game is not active")
	ErrAlreadyJoined     = errors.New("player already joined")
	ErrNotParticipant    = errors.New("player is not a participant")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrInvalidMoveFormat = errors.New("invalid move format")
	ErrUnknownGameType   = errors.New("unknown game type")
)

// MoveRejectedError reports a structurally valid move that violates
// the game's rules. The session is not mutated.
type MoveRejectedError struct {
	Reason string
}

func (e *MoveRejectedError) Error() string {
	return fmt.Sprintf("move rejected: %s", e.Reason)
}

// rejectf builds a MoveRejectedError.
func rejectf(format string, args ...any) error {
	return &MoveRejectedError{Reason: fmt.Sprintf(format, args...)}
}
