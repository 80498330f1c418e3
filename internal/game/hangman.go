package game

import (
	"math/rand/v2"
	"strings"
	"unicode"
)

// hangmanWords is the fallback word pool when no word is configured.
var hangmanWords = []string{
	"keyboard", "elephant", "horizon", "bicycle", "mountain",
	"whisper", "journey", "library", "volcano", "penguin",
	"lantern", "harvest", "compass", "thunder", "meadow",
}

// HangmanBoard tracks the target word and guesses. The word and
// guessed letters are stored lowercased.
type HangmanBoard struct {
	Word    string          `json:"word"`
	Guessed map[string]bool `json:"guessed"`
	Wrong   int             `json:"wrong"`
}

// Masked returns the word with unguessed letters hidden.
func (b *HangmanBoard) Masked() string {
	var out strings.Builder
	for _, r := range b.Word {
		if b.Guessed[string(r)] {
			out.WriteRune(r)
		} else {
			out.WriteRune('_')
		}
	}
	return out.String()
}

// revealed reports whether every letter of the word has been guessed.
func (b *HangmanBoard) revealed() bool {
	for _, r := range b.Word {
		if !b.Guessed[string(r)] {
			return false
		}
	}
	return true
}

func hangmanStrategy() Strategy {
	return Strategy{
		TurnBased: false,
		Defaults: func() Settings {
			return Settings{
				MinPlayers:      1,
				MaxPlayers:      1,
				MaxWrongGuesses: 6,
			}
		},
		Init: func(s *Session) {
			word := s.Settings.Word
			if word == "" {
				word = hangmanWords[rand.IntN(len(hangmanWords))]
			}
			s.Board = &HangmanBoard{
				Word:    strings.ToLower(word),
				Guessed: make(map[string]bool),
			}
		},
		NewBoard: func() any { return &HangmanBoard{Guessed: make(map[string]bool)} },
		ParseMove: func(raw string) (string, error) {
			raw = strings.TrimSpace(raw)
			runes := []rune(raw)
			if len(runes) != 1 || !unicode.IsLetter(runes[0]) {
				return "", ErrInvalidMoveFormat
			}
			return strings.ToLower(raw), nil
		},
		ApplyMove: func(s *Session, player, letter string) (string, error) {
			board := s.Board.(*HangmanBoard)
			if board.Guessed[letter] {
				return "", rejectf("letter %q was already guessed", letter)
			}
			board.Guessed[letter] = true
			if strings.Contains(board.Word, letter) {
				return "hit", nil
			}
			board.Wrong++
			return "miss", nil
		},
		CheckEnd: func(s *Session) (bool, string, Outcome) {
			board := s.Board.(*HangmanBoard)
			if board.revealed() {
				return true, s.Players[0], OutcomeWin
			}
			if board.Wrong >= s.Settings.MaxWrongGuesses {
				return true, "", OutcomeLoss
			}
			return false, "", ""
		},
	}
}
