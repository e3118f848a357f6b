package game

import "testing"

func ballots(beliefs ...Belief) []Ballot {
	out := make([]Ballot, len(beliefs))
	for i, b := range beliefs {
		out[i] = Ballot{JudgeID: string(rune('a' + i)), Belief: b}
	}
	return out
}

func TestResolveTruthTable(t *testing.T) {
	tests := []struct {
		name          string
		correct       bool
		beliefs       []Belief
		wantAdvance   bool
		wantEliminate bool
		wantBelieve   int
	}{
		{"correct, no votes", true, nil, true, false, 0},
		{"correct, all believe", true, []Belief{BeliefBelieve, BeliefBelieve}, true, false, 2},
		{"correct, all bullshit", true, []Belief{BeliefBullshit, BeliefBullshit}, true, false, 0},
		{"correct, mixed", true, []Belief{BeliefBelieve, BeliefBullshit}, true, false, 1},
		{"wrong, no votes", false, nil, false, false, 0},
		{"wrong, all believe", false, []Belief{BeliefBelieve, BeliefBelieve}, true, false, 2},
		{"wrong, all bullshit", false, []Belief{BeliefBullshit, BeliefBullshit, BeliefBullshit}, false, true, 0},
		{"wrong, one fooled", false, []Belief{BeliefBullshit, BeliefBelieve, BeliefBullshit}, true, false, 1},
		{"wrong, single bullshit", false, []Belief{BeliefBullshit}, false, true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Resolve(tt.correct, ballots(tt.beliefs...))
			if v.ShouldAdvance != tt.wantAdvance {
				t.Fatalf("ShouldAdvance = %v, want %v", v.ShouldAdvance, tt.wantAdvance)
			}
			if v.ShouldEliminate != tt.wantEliminate {
				t.Fatalf("ShouldEliminate = %v, want %v", v.ShouldEliminate, tt.wantEliminate)
			}
			if v.BelieveCount != tt.wantBelieve {
				t.Fatalf("BelieveCount = %d, want %d", v.BelieveCount, tt.wantBelieve)
			}
			if v.ShouldAdvance && v.ShouldEliminate {
				t.Fatalf("verdict both advances and eliminates")
			}
		})
	}
}

func TestResolveZeroVotesWrongAnswerHasNoEffect(t *testing.T) {
	v := Resolve(false, nil)
	if v.AllCalledBullshit {
		t.Fatalf("AllCalledBullshit with no votes")
	}
	if v.Effect() != EffectNone {
		t.Fatalf("effect = %s, want none", v.Effect())
	}
}

func TestIsCorrectRead(t *testing.T) {
	tests := []struct {
		belief  Belief
		correct bool
		want    bool
	}{
		{BeliefBelieve, true, true},
		{BeliefBullshit, true, false},
		{BeliefBelieve, false, false},
		{BeliefBullshit, false, true},
	}
	for _, tt := range tests {
		if got := tt.belief.IsCorrectRead(tt.correct); got != tt.want {
			t.Fatalf("%s on correct=%v: got %v, want %v", tt.belief, tt.correct, got, tt.want)
		}
	}
}

func TestParseBelief(t *testing.T) {
	if _, err := ParseBelief("believe"); err != nil {
		t.Fatalf("believe: %v", err)
	}
	if _, err := ParseBelief("maybe"); err == nil {
		t.Fatalf("expected error for unknown belief")
	}
}
