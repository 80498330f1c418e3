package game

import (
	"strings"
	"unicode"
)

// WordChainBoard tracks the running chain. Used words are stored
// lowercased for case-insensitive reuse checks.
type WordChainBoard struct {
	Current string          `json:"current"`
	Used    map[string]bool `json:"used"`
	Chain   []string        `json:"chain"`
}

func wordChainStrategy() Strategy {
	return Strategy{
		TurnBased: true,
		Defaults: func() Settings {
			return Settings{
				MinPlayers: 2,
				MaxPlayers: 8,
			}
		},
		Init: func(s *Session) {
			s.Board = &WordChainBoard{Used: make(map[string]bool)}
		},
		NewBoard: func() any { return &WordChainBoard{Used: make(map[string]bool)} },
		ParseMove: func(raw string) (string, error) {
			fields := strings.Fields(raw)
			if len(fields) != 1 {
				return "", ErrInvalidMoveFormat
			}
			word := fields[0]
			for _, r := range word {
				if !unicode.IsLetter(r) {
					return "", ErrInvalidMoveFormat
				}
			}
			return word, nil
		},
		ApplyMove: func(s *Session, player, word string) (string, error) {
			board := s.Board.(*WordChainBoard)
			lower := strings.ToLower(word)
			if board.Used[lower] {
				return "", rejectf("word %q was already used", word)
			}
			if board.Current != "" {
				prev := []rune(strings.ToLower(board.Current))
				next := []rune(lower)
				if next[0] != prev[len(prev)-1] {
					return "", rejectf("word must start with %q", string(prev[len(prev)-1]))
				}
			}
			board.Current = word
			board.Used[lower] = true
			board.Chain = append(board.Chain, word)
			s.Score[player] += len([]rune(word))
			return "chained", nil
		},
		// A word chain never ends on its own; it is stopped
		// externally or swept for inactivity.
		CheckEnd: func(*Session) (bool, string, Outcome) {
			return false, "", ""
		},
	}
}
