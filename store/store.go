// Package store is the keyed read/write boundary of the match engine.
// Implementations must make every guarded write atomic with respect to the
// room row: submissions, phase transitions and the round-resolution claim
// are conditional on the room's phase and round at the moment of writing.
package store

import (
	"context"
	"errors"
	"time"

	"hotseat/game"
	"hotseat/models"
)

// ErrDuplicate is returned when a unique key other than a submission key
// already exists (room code, player name).
var ErrDuplicate = errors.New("duplicate key")

// RoomGuard is the expected state of a room for a conditional write.
type RoomGuard struct {
	Phase game.Phase
	Round int
	// RequireResolved additionally demands that Round has been resolved.
	RequireResolved bool
}

func (g RoomGuard) Holds(r *models.Room) bool {
	if r.Phase != g.Phase || r.Round != g.Round {
		return false
	}
	return !g.RequireResolved || r.ResolvedRound == r.Round
}

// RoomChange is applied to a room when its guard holds. Nil pointers leave
// the field untouched.
type RoomChange struct {
	Phase             game.Phase
	PhaseStartedAt    time.Time
	Round             int
	HotSeatPlayerID   *string
	CurrentQuestionID *string
	// AskedQuestionID is appended to the room's asked list when set.
	AskedQuestionID string
}

func (c RoomChange) apply(r *models.Room) {
	r.Phase = c.Phase
	r.PhaseStartedAt = c.PhaseStartedAt
	r.Round = c.Round
	if c.HotSeatPlayerID != nil {
		r.HotSeatPlayerID = *c.HotSeatPlayerID
	}
	if c.CurrentQuestionID != nil {
		r.CurrentQuestionID = *c.CurrentQuestionID
	}
	if c.AskedQuestionID != "" {
		r.AskedQuestionIDs = append(r.AskedQuestionIDs, c.AskedQuestionID)
	}
}

// JudgeTally is one vote's contribution to a judge's accuracy counters.
type JudgeTally struct {
	PlayerID    string
	CorrectRead bool
}

// RoundEffects are the consequences of one round, applied exactly once.
type RoundEffects struct {
	HotSeat game.Standing
	Judges  []JudgeTally
	Outcome *models.RoundOutcome
}

// RoundFunc computes a round's effects from the hot seat as stored at the
// moment the resolution claim succeeded.
type RoundFunc func(hotSeat *models.Player) (*RoundEffects, error)

type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	GetRoomByCode(ctx context.Context, code string) (*models.Room, error)
	ListRoomsInPhases(ctx context.Context, phases ...game.Phase) ([]models.Room, error)
	// TransitionRoom applies change if guard holds and reports whether it did.
	TransitionRoom(ctx context.Context, roomID string, guard RoomGuard, change RoomChange) (bool, error)

	CreatePlayer(ctx context.Context, player *models.Player) error
	GetPlayer(ctx context.Context, playerID string) (*models.Player, error)
	GetPlayerByName(ctx context.Context, roomID, name string) (*models.Player, error)
	// ListPlayers returns a room's players in join order.
	ListPlayers(ctx context.Context, roomID string) ([]models.Player, error)
	SetPlayerReady(ctx context.Context, playerID string, ready bool) error
	SetPlayerConnected(ctx context.Context, playerID string, connected bool) error
	DeletePlayer(ctx context.Context, playerID string) error

	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, questionID string) (*models.Question, error)
	ListQuestions(ctx context.Context) ([]models.Question, error)
	// RandomQuestion returns game.ErrNotFound when no question remains.
	RandomQuestion(ctx context.Context, excludeIDs []string) (*models.Question, error)
	CountQuestions(ctx context.Context) (int64, error)
	DeleteAllQuestions(ctx context.Context) (int64, error)

	// InsertAnswer fails with game.ErrAlreadySubmitted on a duplicate key and
	// game.ErrInvalidPhase when guard no longer holds.
	InsertAnswer(ctx context.Context, answer *models.Answer, guard RoomGuard) error
	GetAnswer(ctx context.Context, roomID string, round int, playerID string) (*models.Answer, error)
	// LatestAnswerForQuestion returns the answer of the latest round that used questionID.
	LatestAnswerForQuestion(ctx context.Context, roomID, questionID string) (*models.Answer, error)
	InsertVote(ctx context.Context, vote *models.Vote, guard RoomGuard) error
	ListVotes(ctx context.Context, roomID string, round int) ([]models.Vote, error)

	// ResolveRound claims round for resolution and applies the effects
	// computed by fn in the same atomic unit. It reports false, without
	// calling fn, when the room is not in REVEAL for round or the round was
	// already claimed.
	ResolveRound(ctx context.Context, roomID string, round int, fn RoundFunc) (bool, error)
	ListRoundOutcomes(ctx context.Context, roomID string) ([]models.RoundOutcome, error)
}
