package models

import (
	"errors"
	"testing"
)

func TestWinningLine(t *testing.T) {
	tests := []struct {
		name     string
		board    string
		wantSeat Seat
		wantWin  bool
	}{
		{"empty board", "---------", "", false},
		{"top row X", "XXX-OO---", SeatX, true},
		{"middle row O", "XX-OOOX--", SeatO, true},
		{"bottom row X", "OO----XXX", SeatX, true},
		{"left column X", "XO-XO-X--", SeatX, true},
		{"middle column O", "XOX-O--O-", SeatO, true},
		{"right column O", "XXOX-O--O", SeatO, true},
		{"main diagonal X", "XO-OX---X", SeatX, true},
		{"anti diagonal O", "XXO-O-OX-", SeatO, true},
		{"full board no winner", "XOXXOOOXX", "", false},
		{"in progress no winner", "XOX-O-X--", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seat, line, won := WinningLine(tt.board)
			if won != tt.wantWin {
				t.Fatalf("WinningLine(%q) won = %v, want %v", tt.board, won, tt.wantWin)
			}
			if seat != tt.wantSeat {
				t.Errorf("WinningLine(%q) seat = %q, want %q", tt.board, seat, tt.wantSeat)
			}
			if won {
				for _, cell := range line {
					if Seat(tt.board[cell]) != tt.wantSeat {
						t.Errorf("line cell %d holds %q, want %q", cell, tt.board[cell], tt.wantSeat)
					}
				}
			}
		})
	}
}

func TestBoardFull(t *testing.T) {
	if BoardFull(EmptyBoard) {
		t.Error("empty board reported full")
	}
	if BoardFull("XOXOXOXO-") {
		t.Error("board with one empty cell reported full")
	}
	if !BoardFull("XOXXOOOXX") {
		t.Error("full board not reported full")
	}
}

func TestPlaceMark(t *testing.T) {
	board := PlaceMark(EmptyBoard, 4, SeatX)
	if board != "----X----" {
		t.Errorf("PlaceMark center = %q, want %q", board, "----X----")
	}
	// original untouched
	if EmptyBoard != "---------" {
		t.Error("PlaceMark mutated its input")
	}
}

func TestResolveMove(t *testing.T) {
	tests := []struct {
		name        string
		board       string
		cell        int
		seat        Seat
		wantStatus  MatchStatus
		wantOutcome MatchOutcome
		wantTurn    Seat
	}{
		{"continues play", "---------", 0, SeatX, StatusPlaying, OutcomeNone, SeatO},
		{"X completes row", "XX--OO---", 2, SeatX, StatusFinished, OutcomeX, SeatO},
		{"O completes column", "XOX-O-X--", 7, SeatO, StatusFinished, OutcomeO, SeatX},
		{"last cell draws", "XOXXOOOX-", 8, SeatX, StatusFinished, OutcomeDraw, SeatO},
		{"last cell can still win", "OXOXXOO-X", 7, SeatX, StatusFinished, OutcomeX, SeatO},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			board, turn, status, outcome := ResolveMove(tt.board, tt.cell, tt.seat)
			if status != tt.wantStatus {
				t.Errorf("status = %q, want %q", status, tt.wantStatus)
			}
			if outcome != tt.wantOutcome {
				t.Errorf("outcome = %q, want %q", outcome, tt.wantOutcome)
			}
			if turn != tt.wantTurn {
				t.Errorf("turn = %q, want %q", turn, tt.wantTurn)
			}
			if Seat(board[tt.cell]) != tt.seat {
				t.Errorf("board cell %d = %q, want %q", tt.cell, board[tt.cell], tt.seat)
			}
		})
	}
}

func TestNextSeat(t *testing.T) {
	if NextSeat(SeatX) != SeatO || NextSeat(SeatO) != SeatX {
		t.Error("NextSeat does not alternate")
	}
}

func TestCountMarks(t *testing.T) {
	x, o := CountMarks("XOX-O-X--")
	if x != 3 || o != 2 {
		t.Errorf("CountMarks = (%d, %d), want (3, 2)", x, o)
	}
}

func TestValidateMoveErrors(t *testing.T) {
	oid := "o-1"
	oname := "Opp"
	playing := &Match{
		PlayerXID: "x-1", PlayerXName: "Host",
		PlayerOID: &oid, PlayerOName: &oname,
		Board: "X--------", Turn: SeatO, Status: StatusPlaying,
	}

	tests := []struct {
		name string
		m    *Match
		seat Seat
		cell int
		want error
	}{
		{"match waiting", &Match{Status: StatusWaiting, Board: EmptyBoard, Turn: SeatX}, SeatX, 0, ErrMatchNotPlaying},
		{"match finished", &Match{Status: StatusFinished, Board: EmptyBoard, Turn: SeatX}, SeatX, 0, ErrMatchNotPlaying},
		{"cell negative", playing, SeatO, -1, ErrInvalidCell},
		{"cell too large", playing, SeatO, 9, ErrInvalidCell},
		{"out of turn", playing, SeatX, 4, ErrNotYourTurn},
		{"cell taken", playing, SeatO, 0, ErrCellTaken},
		{"legal move", playing, SeatO, 4, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.m.ValidateMove(tt.seat, tt.cell); !errors.Is(err, tt.want) {
				t.Errorf("ValidateMove = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSeatOf(t *testing.T) {
	oid := "o-1"
	m := &Match{PlayerXID: "x-1", PlayerOID: &oid}

	if seat, ok := m.SeatOf("x-1"); !ok || seat != SeatX {
		t.Errorf("SeatOf host = (%q, %v), want (X, true)", seat, ok)
	}
	if seat, ok := m.SeatOf("o-1"); !ok || seat != SeatO {
		t.Errorf("SeatOf joiner = (%q, %v), want (O, true)", seat, ok)
	}
	if _, ok := m.SeatOf("stranger"); ok {
		t.Error("SeatOf stranger reported seated")
	}

	open := &Match{PlayerXID: "x-1"}
	if _, ok := open.SeatOf("o-1"); ok {
		t.Error("SeatOf on vacant O seat reported seated")
	}
	if open.OpponentID(SeatX) != "" {
		t.Error("OpponentID of vacant seat should be empty")
	}
	if m.OpponentID(SeatO) != "x-1" {
		t.Error("OpponentID(O) should be the host")
	}
}
