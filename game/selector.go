package game

// Candidate is a player considered for the next hot seat.
type Candidate struct {
	PlayerID     string
	CorrectReads int
	TotalVotes   int
	Eliminated   bool
}

// Accuracy is correctReads/totalVotes, or 0 before the first vote.
func (c Candidate) Accuracy() float64 {
	if c.TotalVotes == 0 {
		return 0
	}
	return float64(c.CorrectReads) / float64(c.TotalVotes)
}

// readsBetter reports whether a has a strictly higher accuracy than b,
// compared without floating point.
func readsBetter(a, b Candidate) bool {
	switch {
	case a.TotalVotes == 0:
		return false
	case b.TotalVotes == 0:
		return a.CorrectReads > 0
	}
	return a.CorrectReads*b.TotalVotes > b.CorrectReads*a.TotalVotes
}

// SelectHotSeat picks the active candidate with the best judging accuracy.
// Ties go to the first candidate in the given order. It returns false when
// every candidate is eliminated.
func SelectHotSeat(candidates []Candidate) (string, bool) {
	var best *Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Eliminated {
			continue
		}
		if best == nil || readsBetter(*c, *best) {
			best = c
		}
	}
	if best == nil {
		return "", false
	}
	return best.PlayerID, true
}
