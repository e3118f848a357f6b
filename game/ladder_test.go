package game

import (
	"testing"

	"github.com/shopspring/decimal"
)

func testLadder(t *testing.T) Ladder {
	t.Helper()
	amounts := []int64{1000, 2000, 5000, 10000, 20000, 50000, 100000, 200000, 500000, 1000000}
	payouts := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		payouts[i] = decimal.NewFromInt(a)
	}
	l, err := NewLadder(payouts, []int{8, 3, 6, 3})
	if err != nil {
		t.Fatalf("new ladder: %v", err)
	}
	return l
}

func TestNewLadderValidation(t *testing.T) {
	one := []decimal.Decimal{decimal.NewFromInt(100)}
	if _, err := NewLadder(nil, nil); err == nil {
		t.Fatalf("empty ladder accepted")
	}
	if _, err := NewLadder(one, []int{1}); err == nil {
		t.Fatalf("safe haven outside ladder accepted")
	}
	if _, err := NewLadder([]decimal.Decimal{decimal.NewFromInt(-1)}, nil); err == nil {
		t.Fatalf("negative payout accepted")
	}
}

func TestLadderApply(t *testing.T) {
	l := testLadder(t)
	advance := Verdict{AnswerCorrect: true, ShouldAdvance: true}
	eliminate := Verdict{ShouldEliminate: true, AllCalledBullshit: true, VoteCount: 3}

	tests := []struct {
		name       string
		start      Standing
		verdict    Verdict
		want       Standing
		wantTop    bool
		wantPayout int64
	}{
		{
			name:       "advance to plain rung",
			start:      Standing{CurrentRung: 0},
			verdict:    advance,
			want:       Standing{CurrentRung: 1},
			wantPayout: 2000,
		},
		{
			name:       "advance onto safe haven",
			start:      Standing{CurrentRung: 2},
			verdict:    advance,
			want:       Standing{CurrentRung: 3, LastSafeHaven: 3},
			wantPayout: 10000,
		},
		{
			name:       "advance past safe haven keeps it",
			start:      Standing{CurrentRung: 3, LastSafeHaven: 3},
			verdict:    advance,
			want:       Standing{CurrentRung: 4, LastSafeHaven: 3},
			wantPayout: 20000,
		},
		{
			name:       "advance onto top",
			start:      Standing{CurrentRung: 8, LastSafeHaven: 8},
			verdict:    advance,
			want:       Standing{CurrentRung: 9, LastSafeHaven: 8},
			wantTop:    true,
			wantPayout: 1000000,
		},
		{
			name:       "advance at top is clamped",
			start:      Standing{CurrentRung: 9, LastSafeHaven: 8},
			verdict:    advance,
			want:       Standing{CurrentRung: 9, LastSafeHaven: 8},
			wantTop:    true,
			wantPayout: 1000000,
		},
		{
			name:       "eliminate pays last safe haven",
			start:      Standing{CurrentRung: 5, LastSafeHaven: 3},
			verdict:    eliminate,
			want:       Standing{CurrentRung: 5, LastSafeHaven: 3, Eliminated: true},
			wantPayout: 10000,
		},
		{
			name:       "eliminate without safe haven pays nothing",
			start:      Standing{CurrentRung: 2},
			verdict:    eliminate,
			want:       Standing{CurrentRung: 2, Eliminated: true},
			wantPayout: 0,
		},
		{
			name:       "no effect",
			start:      Standing{CurrentRung: 4, LastSafeHaven: 3},
			verdict:    Verdict{},
			want:       Standing{CurrentRung: 4, LastSafeHaven: 3},
			wantPayout: 20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			step := l.Apply(tt.start, tt.verdict)
			if step.After != tt.want {
				t.Fatalf("after = %+v, want %+v", step.After, tt.want)
			}
			if step.ReachedTop != tt.wantTop {
				t.Fatalf("ReachedTop = %v, want %v", step.ReachedTop, tt.wantTop)
			}
			if !step.Payout.Equal(decimal.NewFromInt(tt.wantPayout)) {
				t.Fatalf("payout = %s, want %d", step.Payout, tt.wantPayout)
			}
		})
	}
}

func TestLadderSafeHavenMonotonic(t *testing.T) {
	l := testLadder(t)
	s := Standing{}
	verdicts := []Verdict{
		{ShouldAdvance: true}, {}, {ShouldAdvance: true}, {ShouldAdvance: true},
		{}, {ShouldAdvance: true}, {ShouldAdvance: true}, {ShouldAdvance: true},
		{ShouldAdvance: true}, {ShouldAdvance: true}, {ShouldAdvance: true}, {ShouldAdvance: true},
		{ShouldEliminate: true},
	}
	for i, v := range verdicts {
		step := l.Apply(s, v)
		if step.After.LastSafeHaven < s.LastSafeHaven {
			t.Fatalf("round %d: lastSafeHaven dropped %d -> %d", i, s.LastSafeHaven, step.After.LastSafeHaven)
		}
		if step.After.LastSafeHaven > step.After.CurrentRung {
			t.Fatalf("round %d: lastSafeHaven %d above rung %d", i, step.After.LastSafeHaven, step.After.CurrentRung)
		}
		if step.After.CurrentRung > l.Top() {
			t.Fatalf("round %d: rung %d above top", i, step.After.CurrentRung)
		}
		s = step.After
	}
	if !s.Eliminated || s.LastSafeHaven != 8 {
		t.Fatalf("final standing = %+v", s)
	}
}

func TestLadderApplyIgnoresEliminatedPlayer(t *testing.T) {
	l := testLadder(t)
	s := Standing{CurrentRung: 4, LastSafeHaven: 3, Eliminated: true}
	step := l.Apply(s, Verdict{ShouldAdvance: true})
	if step.After != s || step.Effect != EffectNone {
		t.Fatalf("eliminated player moved: %+v", step)
	}
}
