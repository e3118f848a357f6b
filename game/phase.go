package game

import (
	"fmt"
	"time"
)

// Phase is the lifecycle stage of a room.
type Phase string

const (
	PhaseLobby         Phase = "LOBBY"
	PhaseRoleAssign    Phase = "ROLE_ASSIGN"
	PhaseQuestion      Phase = "QUESTION"
	PhasePrivateReveal Phase = "PRIVATE_REVEAL"
	PhaseStory         Phase = "STORY"
	PhaseVote          Phase = "VOTE"
	PhaseReveal        Phase = "REVEAL"
	PhaseLadderUpdate  Phase = "LADDER_UPDATE"
	PhaseElimination   Phase = "ELIMINATION"
	PhaseGameEnd       Phase = "GAME_END"
)

// ParsePhase rejects anything outside the declared phase set.
func ParsePhase(s string) (Phase, error) {
	p := Phase(s)
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, s)
	}
	return p, nil
}

func (p Phase) Valid() bool {
	switch p {
	case PhaseLobby, PhaseRoleAssign, PhaseQuestion, PhasePrivateReveal, PhaseStory,
		PhaseVote, PhaseReveal, PhaseLadderUpdate, PhaseElimination, PhaseGameEnd:
		return true
	}
	return false
}

// Reserved reports phases that exist in the schema but no transition enters.
func (p Phase) Reserved() bool {
	switch p {
	case PhaseRoleAssign, PhasePrivateReveal, PhaseLadderUpdate, PhaseElimination:
		return true
	}
	return false
}

// InRound reports whether p belongs to a running round.
func (p Phase) InRound() bool {
	switch p {
	case PhaseQuestion, PhaseStory, PhaseVote, PhaseReveal:
		return true
	}
	return false
}

// Trigger is the event that moves a room out of its current phase.
type Trigger string

const (
	TriggerHostStart     Trigger = "host_start"
	TriggerAnswered      Trigger = "answered"
	TriggerDeadline      Trigger = "deadline"
	TriggerAllVoted      Trigger = "all_voted"
	TriggerRoundResolved Trigger = "round_resolved"
	TriggerNoActive      Trigger = "no_active_players"
	TriggerBankEmpty     Trigger = "question_bank_empty"
)

// Next returns the phase entered when trig fires in from. Every pair not in
// the transition graph is ErrInvalidPhase.
func Next(from Phase, trig Trigger) (Phase, error) {
	switch from {
	case PhaseLobby:
		if trig == TriggerHostStart {
			return PhaseQuestion, nil
		}
	case PhaseQuestion:
		if trig == TriggerAnswered || trig == TriggerDeadline {
			return PhaseStory, nil
		}
	case PhaseStory:
		if trig == TriggerDeadline {
			return PhaseVote, nil
		}
	case PhaseVote:
		if trig == TriggerAllVoted || trig == TriggerDeadline {
			return PhaseReveal, nil
		}
	case PhaseReveal:
		switch trig {
		case TriggerRoundResolved:
			return PhaseQuestion, nil
		case TriggerNoActive, TriggerBankEmpty:
			return PhaseGameEnd, nil
		}
	case PhaseGameEnd, PhaseRoleAssign, PhasePrivateReveal, PhaseLadderUpdate, PhaseElimination:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPhase, from)
	}
	return "", fmt.Errorf("%w: %s cannot fire in %s", ErrInvalidPhase, trig, from)
}

// Timing holds the per-phase deadlines of a room.
type Timing struct {
	Answer      time.Duration
	Story       time.Duration
	Vote        time.Duration
	RevealDwell time.Duration
}

// Deadline returns how long p may last before its deadline trigger fires.
// Phases without a deadline return false.
func (t Timing) Deadline(p Phase) (time.Duration, bool) {
	switch p {
	case PhaseQuestion:
		return t.Answer, true
	case PhaseStory:
		return t.Story, true
	case PhaseVote:
		return t.Vote, true
	case PhaseReveal:
		return t.RevealDwell, true
	}
	return 0, false
}

// Remaining is the time left in p when it started at startedAt. It never
// goes below zero.
func (t Timing) Remaining(p Phase, startedAt, now time.Time) time.Duration {
	d, ok := t.Deadline(p)
	if !ok || startedAt.IsZero() {
		return 0
	}
	left := startedAt.Add(d).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Expired reports whether the deadline of p has passed.
func (t Timing) Expired(p Phase, startedAt, now time.Time) bool {
	d, ok := t.Deadline(p)
	if !ok {
		return false
	}
	return !now.Before(startedAt.Add(d))
}
