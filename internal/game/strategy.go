package game

// Strategy defines one game type's behavior. The engine's control
// flow never switches on the type; adding a game means adding a
// strategy.
type Strategy struct {
	// TurnBased enforces rotating turn order on moves.
	TurnBased bool

	// Defaults fills zero settings fields at creation.
	Defaults func() Settings

	// Init builds the session's board. Called on start.
	Init func(s *Session)

	// NewBoard returns an empty board for snapshot decoding.
	NewBoard func() any

	// ParseMove validates raw input against the type's move grammar
	// and returns the canonical move, or ErrInvalidMoveFormat.
	ParseMove func(raw string) (string, error)

	// ApplyMove mutates the session for an accepted move and returns
	// the per-move outcome, or a *MoveRejectedError leaving the
	// session untouched.
	ApplyMove func(s *Session, player, move string) (string, error)

	// CheckEnd evaluates the type's end condition after an accepted
	// move.
	CheckEnd func(s *Session) (over bool, winner string, outcome Outcome)
}

// defaultStrategies returns the built-in strategy table.
func defaultStrategies() map[Type]Strategy {
	return map[Type]Strategy{
		TypeTicTacToe: ticTacToeStrategy(),
		TypeWordChain: wordChainStrategy(),
		TypeHangman:   hangmanStrategy(),
		TypeQuiz:      quizStrategy(),
	}
}
