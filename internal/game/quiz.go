package game

import (
	"strings"
)

// defaultQuestions is the fallback question list when none is
// configured.
var defaultQuestions = []Question{
	{Text: "What is the largest planet in the solar system?", Answer: "jupiter"},
	{Text: "How many continents are there?", Answer: "seven"},
	{Text: "What is the chemical symbol for gold?", Answer: "au"},
	{Text: "Which ocean is the deepest?", Answer: "pacific"},
	{Text: "What year did the first moon landing happen?", Answer: "1969"},
}

// QuizBoard tracks the current question index.
type QuizBoard struct {
	Index int `json:"index"`
}

func quizStrategy() Strategy {
	return Strategy{
		// Quiz answers are simultaneous; no enforced turn order.
		TurnBased: false,
		Defaults: func() Settings {
			return Settings{
				MinPlayers: 1,
				MaxPlayers: 10,
				Questions:  defaultQuestions,
			}
		},
		Init: func(s *Session) {
			s.Board = &QuizBoard{}
		},
		NewBoard: func() any { return &QuizBoard{} },
		ParseMove: func(raw string) (string, error) {
			raw = strings.TrimSpace(raw)
			if raw == "" {
				return "", ErrInvalidMoveFormat
			}
			return raw, nil
		},
		ApplyMove: func(s *Session, player, answer string) (string, error) {
			board := s.Board.(*QuizBoard)
			outcome := "wrong"
			if board.Index < len(s.Settings.Questions) {
				correct := s.Settings.Questions[board.Index].Answer
				if strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(correct)) {
					s.Score[player]++
					outcome = "correct"
				}
			}
			// The question advances whether or not the answer matched.
			board.Index++
			return outcome, nil
		},
		CheckEnd: func(s *Session) (bool, string, Outcome) {
			board := s.Board.(*QuizBoard)
			if board.Index < len(s.Settings.Questions) {
				return false, "", ""
			}
			return true, quizWinner(s), OutcomeWin
		},
	}
}

// quizWinner picks the highest cumulative score; ties go to the
// earliest-joined player.
func quizWinner(s *Session) string {
	winner := ""
	best := -1
	for _, player := range s.Players {
		if score := s.Score[player]; score > best {
			best = score
			winner = player
		}
	}
	return winner
}
