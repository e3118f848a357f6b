package models

import (
	"time"

	"hotseat/game"
)

// Answer is the hot seat's pick for one round. Unique per (room, round, player).
type Answer struct {
	ID          string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID      string    `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_answer_round_player,priority:1;index:idx_answer_room_question,priority:1"`
	Round       int       `json:"round" gorm:"not null;uniqueIndex:idx_answer_round_player,priority:2"`
	QuestionID  string    `json:"question_id" gorm:"size:36;not null;index:idx_answer_room_question,priority:2"`
	PlayerID    string    `json:"player_id" gorm:"size:36;not null;uniqueIndex:idx_answer_round_player,priority:3"`
	ChoiceIndex int       `json:"choice_index" gorm:"not null"`
	IsCorrect   bool      `json:"is_correct" gorm:"not null"`
	SubmittedAt time.Time `json:"submitted_at" gorm:"not null"`
}

// Vote is one judge's call for one round. Unique per (room, round, judge).
type Vote struct {
	ID          string      `json:"id" gorm:"primaryKey;size:36"`
	RoomID      string      `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_vote_round_judge,priority:1"`
	Round       int         `json:"round" gorm:"not null;uniqueIndex:idx_vote_round_judge,priority:2"`
	QuestionID  string      `json:"question_id" gorm:"size:36;not null"`
	JudgeID     string      `json:"judge_id" gorm:"size:36;not null;uniqueIndex:idx_vote_round_judge,priority:3"`
	Belief      game.Belief `json:"vote" gorm:"type:varchar(16);not null"`
	CorrectRead bool        `json:"correct_read" gorm:"not null"`
	SubmittedAt time.Time   `json:"submitted_at" gorm:"not null"`
}

func (v *Vote) Ballot() game.Ballot {
	return game.Ballot{JudgeID: v.JudgeID, Belief: v.Belief, CorrectRead: v.CorrectRead}
}

func Ballots(votes []Vote) []game.Ballot {
	out := make([]game.Ballot, len(votes))
	for i := range votes {
		out[i] = votes[i].Ballot()
	}
	return out
}
