package services

import (
	"context"
	"log"
	"sort"
	"time"

	"hotseat/game"
	"hotseat/models"

	"github.com/shopspring/decimal"
)

// PlayerStanding is a player as shown on the shared screen.
type PlayerStanding struct {
	models.Player
	Winnings  decimal.Decimal `json:"winnings"`
	Accuracy  float64         `json:"accuracy"`
	IsHotSeat bool            `json:"is_hot_seat"`
}

// RoomState is everything a client needs to render a room.
type RoomState struct {
	Room             *models.Room           `json:"room"`
	RemainingSeconds int                    `json:"remaining_seconds"`
	Question         *models.PublicQuestion `json:"question,omitempty"`
	AnswerSubmitted  bool                   `json:"answer_submitted"`
	VotesCast        int                    `json:"votes_cast"`
	JudgesTotal      int                    `json:"judges_total"`
	Players          []PlayerStanding       `json:"players"`
	Standings        []PlayerStanding       `json:"standings"`
	Winner           *PlayerStanding        `json:"winner,omitempty"`
}

// Standings ranks players by winnings, then rung, then join order. players
// must already be in join order.
func Standings(ladder game.Ladder, players []models.Player, hotSeatID string) []PlayerStanding {
	out := standingsInJoinOrder(ladder, players, hotSeatID)
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Winnings.Cmp(out[j].Winnings); c != 0 {
			return c > 0
		}
		return out[i].CurrentRung > out[j].CurrentRung
	})
	return out
}

func standingsInJoinOrder(ladder game.Ladder, players []models.Player, hotSeatID string) []PlayerStanding {
	out := make([]PlayerStanding, len(players))
	for i, p := range players {
		out[i] = PlayerStanding{
			Player:    p,
			Winnings:  ladder.Winnings(p.Standing()),
			Accuracy:  p.Candidate().Accuracy(),
			IsHotSeat: p.ID == hotSeatID,
		}
	}
	return out
}

func remainingSeconds(timing game.Timing, room *models.Room, now time.Time) int {
	left := timing.Remaining(room.Phase, room.PhaseStartedAt, now)
	return int((left + time.Second - 1) / time.Second)
}

// RoomState builds a fresh snapshot from the store. The correct option of
// the current question stays hidden until REVEAL.
func (s *MatchService) RoomState(ctx context.Context, roomID string) (*RoomState, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	players, err := s.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	ladder, err := room.Settings.Ladder()
	if err != nil {
		return nil, err
	}

	state := &RoomState{
		Room:             room,
		RemainingSeconds: remainingSeconds(room.Settings.Timing(s.revealDwell), room, s.now()),
		Players:          standingsInJoinOrder(ladder, players, room.HotSeatPlayerID),
		Standings:        Standings(ladder, players, room.HotSeatPlayerID),
	}

	if room.CurrentQuestionID != "" {
		q, err := s.store.GetQuestion(ctx, room.CurrentQuestionID)
		if err != nil {
			return nil, err
		}
		pq := q.Public(room.Phase == game.PhaseReveal)
		state.Question = &pq
	}
	if room.Phase.InRound() {
		if state.AnswerSubmitted, err = s.hotSeatAnswered(ctx, room); err != nil {
			return nil, err
		}
		if _, state.VotesCast, state.JudgesTotal, err = s.votingComplete(ctx, room); err != nil {
			return nil, err
		}
	}
	if room.Phase == game.PhaseGameEnd && len(state.Standings) > 0 {
		winner := state.Standings[0]
		state.Winner = &winner
	}
	return state, nil
}

// CachedState serves the last cached snapshot when there is one, with the
// remaining time brought up to date.
func (s *MatchService) CachedState(ctx context.Context, roomID string) (*RoomState, error) {
	if s.cache != nil {
		state, err := s.cache.LoadState(ctx, roomID)
		if err != nil {
			log.Printf("[MatchService] room %s: reading cached state: %v", roomID, err)
		}
		if state != nil && state.Room != nil {
			state.RemainingSeconds = remainingSeconds(state.Room.Settings.Timing(s.revealDwell), state.Room, s.now())
			return state, nil
		}
	}
	state, err := s.RoomState(ctx, roomID)
	if err != nil {
		return nil, err
	}
	s.storeState(ctx, state)
	return state, nil
}

func (s *MatchService) refreshCache(ctx context.Context, roomID string) {
	if s.cache == nil {
		return
	}
	state, err := s.RoomState(ctx, roomID)
	if err != nil {
		log.Printf("[MatchService] room %s: building state for cache: %v", roomID, err)
		return
	}
	s.storeState(ctx, state)
}

func (s *MatchService) storeState(ctx context.Context, state *RoomState) {
	if s.cache == nil {
		return
	}
	if err := s.cache.CacheState(ctx, state); err != nil {
		log.Printf("[MatchService] room %s: %v", state.Room.ID, err)
	}
}
