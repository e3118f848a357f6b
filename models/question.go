package models

import (
	"fmt"
	"strings"
	"time"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Question is owned by the question bank and never changes once stored.
type Question struct {
	ID           string     `json:"id" gorm:"primaryKey;size:36"`
	Category     string     `json:"category" gorm:"not null;index"`
	Difficulty   Difficulty `json:"difficulty" gorm:"type:varchar(16);not null;index"`
	Text         string     `json:"question_text" gorm:"not null"`
	Options      []string   `json:"options" gorm:"serializer:json;type:jsonb;not null"`
	CorrectIndex int        `json:"correct_index" gorm:"not null"`
	Explanation  string     `json:"explanation"`
	FunFact      string     `json:"fun_fact,omitempty"`
	Tags         []string   `json:"tags" gorm:"serializer:json;type:jsonb"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (q *Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("question text is required")
	}
	switch q.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		return fmt.Errorf("unknown difficulty %q", q.Difficulty)
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question needs at least two options")
	}
	if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
		return fmt.Errorf("correct index %d out of range", q.CorrectIndex)
	}
	return nil
}

// PublicQuestion is a question as shown while it is still in play.
type PublicQuestion struct {
	ID           string     `json:"id"`
	Category     string     `json:"category"`
	Difficulty   Difficulty `json:"difficulty"`
	Text         string     `json:"question_text"`
	Options      []string   `json:"options"`
	CorrectIndex *int       `json:"correct_index,omitempty"`
	Explanation  string     `json:"explanation,omitempty"`
	FunFact      string     `json:"fun_fact,omitempty"`
}

// Public hides the correct option unless reveal is set.
func (q *Question) Public(reveal bool) PublicQuestion {
	pq := PublicQuestion{
		ID:         q.ID,
		Category:   q.Category,
		Difficulty: q.Difficulty,
		Text:       q.Text,
		Options:    q.Options,
	}
	if reveal {
		idx := q.CorrectIndex
		pq.CorrectIndex = &idx
		pq.Explanation = q.Explanation
		pq.FunFact = q.FunFact
	}
	return pq
}
