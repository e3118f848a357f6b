package models

import (
	"fmt"
	"time"

	"hotseat/game"

	"github.com/shopspring/decimal"
)

type Room struct {
	ID                string     `json:"id" gorm:"primaryKey;size:36"`
	Code              string     `json:"code" gorm:"uniqueIndex;size:8;not null"`
	HostKeyHash       string     `json:"-" gorm:"not null"`
	Phase             game.Phase `json:"phase" gorm:"type:varchar(32);not null;default:'LOBBY'"`
	PhaseStartedAt    time.Time  `json:"phase_started_at"`
	Round             int        `json:"round" gorm:"not null;default:0"`
	ResolvedRound     int        `json:"resolved_round" gorm:"not null;default:0"`
	HotSeatPlayerID   string     `json:"hot_seat_player_id,omitempty" gorm:"size:36"`
	CurrentQuestionID string     `json:"current_question_id,omitempty" gorm:"size:36"`
	AskedQuestionIDs  []string   `json:"asked_question_ids" gorm:"serializer:json;type:jsonb"`
	Settings          Settings   `json:"settings" gorm:"serializer:json;type:jsonb;not null"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Resolved reports whether the current round's consequences were applied.
func (r *Room) Resolved() bool {
	return r.Round > 0 && r.ResolvedRound >= r.Round
}

// Settings are fixed when the room is created.
type Settings struct {
	AnswerTimeoutSeconds int               `json:"answer_timeout_seconds"`
	StoryTimeoutSeconds  int               `json:"story_timeout_seconds"`
	VoteTimeoutSeconds   int               `json:"vote_timeout_seconds"`
	SafeHavenRungs       []int             `json:"safe_haven_rungs"`
	LadderPayouts        []decimal.Decimal `json:"ladder_payouts"`
	SoundEnabled         bool              `json:"sound_enabled"`
}

func DefaultSettings() Settings {
	amounts := []int64{1000, 2000, 5000, 10000, 20000, 50000, 100000, 200000, 500000, 1000000}
	payouts := make([]decimal.Decimal, len(amounts))
	for i, a := range amounts {
		payouts[i] = decimal.NewFromInt(a)
	}
	return Settings{
		AnswerTimeoutSeconds: 20,
		StoryTimeoutSeconds:  40,
		VoteTimeoutSeconds:   15,
		SafeHavenRungs:       []int{3, 6, 8},
		LadderPayouts:        payouts,
		SoundEnabled:         true,
	}
}

func (s Settings) Validate() error {
	if s.AnswerTimeoutSeconds <= 0 || s.StoryTimeoutSeconds <= 0 || s.VoteTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: timeouts must be positive", game.ErrInvalidSettings)
	}
	_, err := s.Ladder()
	return err
}

func (s Settings) Ladder() (game.Ladder, error) {
	return game.NewLadder(s.LadderPayouts, s.SafeHavenRungs)
}

func (s Settings) Timing(revealDwell time.Duration) game.Timing {
	return game.Timing{
		Answer:      time.Duration(s.AnswerTimeoutSeconds) * time.Second,
		Story:       time.Duration(s.StoryTimeoutSeconds) * time.Second,
		Vote:        time.Duration(s.VoteTimeoutSeconds) * time.Second,
		RevealDwell: revealDwell,
	}
}
