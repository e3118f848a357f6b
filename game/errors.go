package game

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadySubmitted = errors.New("already submitted for this round")
	ErrNoAnswerYet      = errors.New("hot seat has not answered yet")
	ErrInvalidPhase     = errors.New("operation not allowed in current phase")

	ErrNotHotSeat      = errors.New("player is not in the hot seat")
	ErrNotJudge        = errors.New("player is not a judge this round")
	ErrInvalidChoice   = errors.New("choice index out of range")
	ErrInvalidBelief   = errors.New("vote must be believe or bullshit")
	ErrUnknownPhase    = errors.New("unknown phase")
	ErrNotReady        = errors.New("every player must be ready to start")
	ErrNameTaken       = errors.New("player name already taken")
	ErrInvalidSettings = errors.New("invalid room settings")
	ErrUnauthorized    = errors.New("unauthorized")
)
