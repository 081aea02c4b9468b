package models

import "errors"

// Board cells are stored as a 9-character string, row-major,
// with '-' marking an empty cell. Cell indexes run 0..8.
const (
	BoardSize  = 9
	EmptyCell  = byte('-')
	EmptyBoard = "---------"
)

// Seat identifies which side of the board a player holds. X always moves first.
type Seat string

const (
	SeatX Seat = "X"
	SeatO Seat = "O"
)

type MatchOutcome string

const (
	OutcomeNone MatchOutcome = ""
	OutcomeX    MatchOutcome = "X"
	OutcomeO    MatchOutcome = "O"
	OutcomeDraw MatchOutcome = "draw"
)

// Local move validation failures. These are checked before the database
// write; the conditional update re-checks the same guards.
var (
	ErrInvalidCell     = errors.New("cell index out of range")
	ErrCellTaken       = errors.New("cell already taken")
	ErrNotYourTurn     = errors.New("not your turn")
	ErrMatchNotPlaying = errors.New("match is not in play")
	ErrNotSeated       = errors.New("player is not seated in this match")
)

// The 8 winning line cell triples: 3 rows, 3 columns, 2 diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

func NextSeat(s Seat) Seat {
	if s == SeatX {
		return SeatO
	}
	return SeatX
}

// WinningLine scans all 8 lines and returns the owning seat and the cell
// triple of the first complete line. A single new mark can never complete
// lines owned by different seats, so first-match is enough.
func WinningLine(board string) (Seat, [3]int, bool) {
	for _, line := range winLines {
		a, b, c := board[line[0]], board[line[1]], board[line[2]]
		if a != EmptyCell && a == b && b == c {
			return Seat(a), line, true
		}
	}
	return "", [3]int{}, false
}

func BoardFull(board string) bool {
	for i := 0; i < len(board); i++ {
		if board[i] == EmptyCell {
			return false
		}
	}
	return true
}

// PlaceMark returns a copy of board with seat's mark at cell.
// Callers validate the cell first.
func PlaceMark(board string, cell int, seat Seat) string {
	b := []byte(board)
	b[cell] = seat[0]
	return string(b)
}

// ResolveMove computes the post-move state: the new board, the next turn,
// and the status/outcome transition (playing -> playing or finished).
func ResolveMove(board string, cell int, seat Seat) (newBoard string, nextTurn Seat, status MatchStatus, outcome MatchOutcome) {
	newBoard = PlaceMark(board, cell, seat)
	if winner, _, ok := WinningLine(newBoard); ok {
		return newBoard, NextSeat(seat), StatusFinished, MatchOutcome(winner)
	}
	if BoardFull(newBoard) {
		return newBoard, NextSeat(seat), StatusFinished, OutcomeDraw
	}
	return newBoard, NextSeat(seat), StatusPlaying, OutcomeNone
}

// CountMarks returns how many cells each seat holds.
func CountMarks(board string) (x, o int) {
	for i := 0; i < len(board); i++ {
		switch board[i] {
		case 'X':
			x++
		case 'O':
			o++
		}
	}
	return x, o
}
