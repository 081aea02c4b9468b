package services

import "errors"

// Repository-level results. Lost races (ErrJoinFailed, ErrMoveRejected,
// ErrRematchUnavailable) are normal outcomes, not faults: the caller
// refreshes from the authoritative record instead of retrying blindly.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrMatchNotFound      = errors.New("match not found")
	ErrJoinFailed         = errors.New("join failed: match already taken")
	ErrMoveRejected       = errors.New("move rejected by authoritative record")
	ErrRematchUnavailable = errors.New("rematch no longer available")
	ErrNotHost            = errors.New("only the host can delete a waiting match")
	ErrDeleteRejected     = errors.New("match is no longer waiting")

	ErrTournamentNotFound  = errors.New("tournament not found")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrAlreadyJoined       = errors.New("already in this tournament")
	ErrNotCreator          = errors.New("only the creator can start the tournament")
	ErrNotEnoughPlayers    = errors.New("tournament has open seats")
	ErrTournamentStarted   = errors.New("tournament already started")
	ErrTournamentFinalized = errors.New("tournament is already finished")
)
