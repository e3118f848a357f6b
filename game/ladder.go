package game

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// Ladder is the payout ladder of a room. Rung i pays Payouts[i].
type Ladder struct {
	Payouts    []decimal.Decimal
	SafeHavens []int
}

// NewLadder validates payouts and safe havens and returns a ladder with the
// safe havens sorted and de-duplicated.
func NewLadder(payouts []decimal.Decimal, safeHavens []int) (Ladder, error) {
	if len(payouts) == 0 {
		return Ladder{}, fmt.Errorf("%w: ladder has no rungs", ErrInvalidSettings)
	}
	for i, p := range payouts {
		if p.IsNegative() {
			return Ladder{}, fmt.Errorf("%w: rung %d pays %s", ErrInvalidSettings, i, p)
		}
	}
	havens := slices.Clone(safeHavens)
	slices.Sort(havens)
	havens = slices.Compact(havens)
	for _, r := range havens {
		if r < 0 || r >= len(payouts) {
			return Ladder{}, fmt.Errorf("%w: safe haven %d outside ladder", ErrInvalidSettings, r)
		}
	}
	return Ladder{Payouts: slices.Clone(payouts), SafeHavens: havens}, nil
}

// Top is the highest rung index.
func (l Ladder) Top() int {
	return len(l.Payouts) - 1
}

func (l Ladder) IsSafeHaven(rung int) bool {
	_, ok := slices.BinarySearch(l.SafeHavens, rung)
	return ok
}

// PayoutAt returns the payout of rung, clamped into the ladder.
func (l Ladder) PayoutAt(rung int) decimal.Decimal {
	if len(l.Payouts) == 0 {
		return decimal.Zero
	}
	rung = max(0, min(rung, l.Top()))
	return l.Payouts[rung]
}

// Standing is a player's position on the ladder.
type Standing struct {
	CurrentRung   int  `json:"current_rung"`
	LastSafeHaven int  `json:"last_safe_haven"`
	Eliminated    bool `json:"eliminated"`
}

// SafePayout is what s takes home when eliminated: the payout of the last
// safe haven reached, or zero if none was ever reached.
func (l Ladder) SafePayout(s Standing) decimal.Decimal {
	if !l.IsSafeHaven(s.LastSafeHaven) {
		return decimal.Zero
	}
	return l.PayoutAt(s.LastSafeHaven)
}

// Winnings is the current value of s: the safe payout once eliminated,
// otherwise the payout of the current rung.
func (l Ladder) Winnings(s Standing) decimal.Decimal {
	if s.Eliminated {
		return l.SafePayout(s)
	}
	return l.PayoutAt(s.CurrentRung)
}

// ReachedTop reports whether s can climb no further.
func (l Ladder) ReachedTop(s Standing) bool {
	return s.CurrentRung >= l.Top()
}

// Step records one application of a verdict to a standing.
type Step struct {
	Before     Standing        `json:"before"`
	After      Standing        `json:"after"`
	Effect     Effect          `json:"effect"`
	ReachedTop bool            `json:"reached_top"`
	Payout     decimal.Decimal `json:"payout"`
}

// Apply moves s according to v. Elimination freezes the rung and fixes the
// payout at the last safe haven. Advancing climbs one rung, never past the
// top, and records a new safe haven when the rung is one. lastSafeHaven
// never decreases.
func (l Ladder) Apply(s Standing, v Verdict) Step {
	step := Step{Before: s, After: s, Effect: v.Effect()}
	if s.Eliminated {
		step.Effect = EffectNone
		step.Payout = l.SafePayout(s)
		return step
	}

	switch step.Effect {
	case EffectEliminate:
		step.After.Eliminated = true
		step.Payout = l.SafePayout(step.After)
	case EffectAdvance:
		if l.ReachedTop(s) {
			step.Effect = EffectNone
			break
		}
		next := min(s.CurrentRung+1, l.Top())
		step.After.CurrentRung = next
		if l.IsSafeHaven(next) && next > step.After.LastSafeHaven {
			step.After.LastSafeHaven = next
		}
	}

	step.ReachedTop = !step.After.Eliminated && l.ReachedTop(step.After)
	if !step.After.Eliminated {
		step.Payout = l.PayoutAt(step.After.CurrentRung)
	}
	return step
}
