package models

import (
	"time"

	"hotseat/game"

	"github.com/shopspring/decimal"
)

// RoundOutcome is written once, in the same unit as the round's resolution claim.
type RoundOutcome struct {
	ID              string          `json:"id" gorm:"primaryKey;size:36"`
	RoomID          string          `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_outcome_room_round,priority:1"`
	Round           int             `json:"round" gorm:"not null;uniqueIndex:idx_outcome_room_round,priority:2"`
	QuestionID      string          `json:"question_id" gorm:"size:36;not null"`
	HotSeatPlayerID string          `json:"hot_seat_player_id" gorm:"size:36;not null"`
	Answered        bool            `json:"answered"`
	AnswerCorrect   bool            `json:"answer_correct"`
	VoteCount       int             `json:"vote_count"`
	BelieveCount    int             `json:"believe_count"`
	Effect          game.Effect     `json:"effect" gorm:"type:varchar(16);not null"`
	RungBefore      int             `json:"rung_before"`
	RungAfter       int             `json:"rung_after"`
	LastSafeHaven   int             `json:"last_safe_haven"`
	ReachedTop      bool            `json:"reached_top"`
	Payout          decimal.Decimal `json:"payout" gorm:"type:numeric(14,2);not null"`
	ResolvedAt      time.Time       `json:"resolved_at"`
}
