package game

import "fmt"

// Belief is a judge's call on the hot seat's story.
type Belief string

const (
	BeliefBelieve  Belief = "believe"
	BeliefBullshit Belief = "bullshit"
)

func ParseBelief(s string) (Belief, error) {
	b := Belief(s)
	if !b.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidBelief, s)
	}
	return b, nil
}

func (b Belief) Valid() bool {
	switch b {
	case BeliefBelieve, BeliefBullshit:
		return true
	}
	return false
}

// IsCorrectRead reports whether b matches the hidden truth of the answer.
func (b Belief) IsCorrectRead(answerCorrect bool) bool {
	return (b == BeliefBullshit && !answerCorrect) || (b == BeliefBelieve && answerCorrect)
}

// Ballot is one judge's recorded vote.
type Ballot struct {
	JudgeID     string
	Belief      Belief
	CorrectRead bool
}

// Effect is what a round does to the hot seat's ladder position.
type Effect string

const (
	EffectNone      Effect = "none"
	EffectAdvance   Effect = "advance"
	EffectEliminate Effect = "eliminate"
)

// Verdict is the outcome of a round before it is applied to the ladder.
type Verdict struct {
	AnswerCorrect     bool `json:"answer_correct"`
	VoteCount         int  `json:"vote_count"`
	BelieveCount      int  `json:"believe_count"`
	AllCalledBullshit bool `json:"all_called_bullshit"`
	ShouldAdvance     bool `json:"should_advance"`
	ShouldEliminate   bool `json:"should_eliminate"`
}

// Resolve decides a round. A correct answer always advances, a wrong one
// advances only if it fooled at least one judge and is eliminated only when
// at least one judge voted and all of them called bullshit. A wrong answer
// with no votes changes nothing.
func Resolve(answerCorrect bool, ballots []Ballot) Verdict {
	v := Verdict{AnswerCorrect: answerCorrect, VoteCount: len(ballots)}
	for _, b := range ballots {
		if b.Belief == BeliefBelieve {
			v.BelieveCount++
		}
	}
	v.AllCalledBullshit = v.VoteCount > 0 && v.BelieveCount == 0
	v.ShouldAdvance = answerCorrect || v.BelieveCount > 0
	v.ShouldEliminate = !answerCorrect && v.AllCalledBullshit
	return v
}

func (v Verdict) Effect() Effect {
	switch {
	case v.ShouldEliminate:
		return EffectEliminate
	case v.ShouldAdvance:
		return EffectAdvance
	}
	return EffectNone
}
