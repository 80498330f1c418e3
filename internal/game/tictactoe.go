package game

import (
	"strconv"
	"strings"
	"time"
)

// TicTacToeBoard is a 3x3 grid in row-major order. Empty cells hold
// the empty string.
type TicTacToeBoard struct {
	Cells [9]string `json:"cells"`
}

// winningLines are the 8 standard lines: 3 rows, 3 columns, 2
// diagonals.
var winningLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// tttSymbols assigns marks by join order.
var tttSymbols = [2]string{"X", "O"}

func ticTacToeStrategy() Strategy {
	return Strategy{
		TurnBased: true,
		Defaults: func() Settings {
			return Settings{
				MinPlayers:  2,
				MaxPlayers:  2,
				TurnTimeout: 120 * time.Second,
			}
		},
		Init: func(s *Session) {
			s.Board = &TicTacToeBoard{}
		},
		NewBoard: func() any { return &TicTacToeBoard{} },
		ParseMove: func(raw string) (string, error) {
			raw = strings.TrimSpace(raw)
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > 9 {
				return "", ErrInvalidMoveFormat
			}
			return strconv.Itoa(n), nil
		},
		ApplyMove: func(s *Session, player, move string) (string, error) {
			board := s.Board.(*TicTacToeBoard)
			n, _ := strconv.Atoi(move)
			cell := n - 1
			if board.Cells[cell] != "" {
				return "", rejectf("cell %d is already occupied", n)
			}
			board.Cells[cell] = tttSymbol(s, player)
			return "placed", nil
		},
		CheckEnd: func(s *Session) (bool, string, Outcome) {
			board := s.Board.(*TicTacToeBoard)
			for _, line := range winningLines {
				a, b, c := board.Cells[line[0]], board.Cells[line[1]], board.Cells[line[2]]
				if a != "" && a == b && b == c {
					return true, playerForSymbol(s, a), OutcomeWin
				}
			}
			for _, cell := range board.Cells {
				if cell == "" {
					return false, "", ""
				}
			}
			return true, "", OutcomeDraw
		},
	}
}

func tttSymbol(s *Session, player string) string {
	for i, p := range s.Players {
		if p == player && i < len(tttSymbols) {
			return tttSymbols[i]
		}
	}
	return "?"
}

func playerForSymbol(s *Session, symbol string) string {
	for i, mark := range tttSymbols {
		if mark == symbol && i < len(s.Players) {
			return s.Players[i]
		}
	}
	return ""
}
