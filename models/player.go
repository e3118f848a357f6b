package models

import (
	"time"

	"hotseat/game"
)

type Player struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	RoomID        string    `json:"room_id" gorm:"size:36;not null;uniqueIndex:idx_player_room_name,priority:1;index"`
	Name          string    `json:"name" gorm:"not null;uniqueIndex:idx_player_room_name,priority:2"`
	Emoji         string    `json:"emoji,omitempty"`
	RejoinKeyHash string    `json:"-" gorm:"not null;default:''"`
	Ready         bool      `json:"ready" gorm:"not null;default:false"`
	Connected     bool      `json:"connected" gorm:"not null;default:false"`
	CurrentRung   int       `json:"current_rung" gorm:"not null;default:0"`
	LastSafeHaven int       `json:"last_safe_haven" gorm:"not null;default:0"`
	CorrectReads  int       `json:"correct_reads" gorm:"not null;default:0"`
	TotalVotes    int       `json:"total_votes" gorm:"not null;default:0"`
	Eliminated    bool      `json:"eliminated" gorm:"not null;default:false"`
	JoinedAt      time.Time `json:"joined_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (p *Player) Standing() game.Standing {
	return game.Standing{
		CurrentRung:   p.CurrentRung,
		LastSafeHaven: p.LastSafeHaven,
		Eliminated:    p.Eliminated,
	}
}

func (p *Player) Candidate() game.Candidate {
	return game.Candidate{
		PlayerID:     p.ID,
		CorrectReads: p.CorrectReads,
		TotalVotes:   p.TotalVotes,
		Eliminated:   p.Eliminated,
	}
}
