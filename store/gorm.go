package store

import (
	"context"
	"errors"
	"fmt"

	"hotseat/game"
	"hotseat/models"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const pgUniqueViolation = "23505"

var errNotClaimed = errors.New("round already claimed")

// GormStore persists the engine's state in PostgreSQL. Submission
// uniqueness is enforced by unique indexes, and guarded writes lock the room
// row so a phase transition cannot interleave with them.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the engine's tables.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(
		&models.Room{},
		&models.Player{},
		&models.Question{},
		&models.Answer{},
		&models.Vote{},
		&models.RoundOutcome{},
	)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, game.ErrNotFound)
	}
	return err
}

func (s *GormStore) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.db.WithContext(ctx).Create(room).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("room code %s: %w", room.Code, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *GormStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).First(&room, "id = ?", roomID).Error; err != nil {
		return nil, notFound(err, "room "+roomID)
	}
	return &room, nil
}

func (s *GormStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	var room models.Room
	if err := s.db.WithContext(ctx).Where("code = ?", code).First(&room).Error; err != nil {
		return nil, notFound(err, "room code "+code)
	}
	return &room, nil
}

func (s *GormStore) ListRoomsInPhases(ctx context.Context, phases ...game.Phase) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.WithContext(ctx).Where("phase IN ?", phases).Find(&rooms).Error
	return rooms, err
}

// lockRoom loads the room row under a row lock of the given strength.
func lockRoom(tx *gorm.DB, roomID string, strength string) (*models.Room, error) {
	var room models.Room
	err := tx.Clauses(clause.Locking{Strength: strength}).First(&room, "id = ?", roomID).Error
	if err != nil {
		return nil, notFound(err, "room "+roomID)
	}
	return &room, nil
}

func (s *GormStore) TransitionRoom(ctx context.Context, roomID string, guard RoomGuard, change RoomChange) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, roomID, "UPDATE")
		if err != nil {
			return err
		}
		if !guard.Holds(room) {
			return nil
		}
		change.apply(room)

		res := tx.Model(room).
			Where("phase = ? AND round = ?", guard.Phase, guard.Round).
			Select("phase", "phase_started_at", "round", "hot_seat_player_id", "current_question_id", "asked_question_ids").
			Updates(room)
		if res.Error != nil {
			return res.Error
		}
		applied = res.RowsAffected == 1
		return nil
	})
	return applied, err
}

func (s *GormStore) CreatePlayer(ctx context.Context, player *models.Player) error {
	if err := s.db.WithContext(ctx).Create(player).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("player %q: %w", player.Name, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *GormStore) GetPlayer(ctx context.Context, playerID string) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).First(&player, "id = ?", playerID).Error; err != nil {
		return nil, notFound(err, "player "+playerID)
	}
	return &player, nil
}

func (s *GormStore) GetPlayerByName(ctx context.Context, roomID, name string) (*models.Player, error) {
	var player models.Player
	if err := s.db.WithContext(ctx).Where("room_id = ? AND name = ?", roomID, name).First(&player).Error; err != nil {
		return nil, notFound(err, "player "+name)
	}
	return &player, nil
}

func (s *GormStore) ListPlayers(ctx context.Context, roomID string) ([]models.Player, error) {
	var players []models.Player
	err := s.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("joined_at ASC, created_at ASC, id ASC").
		Find(&players).Error
	return players, err
}

func (s *GormStore) updatePlayer(ctx context.Context, playerID string, column string, value any) error {
	res := s.db.WithContext(ctx).Model(&models.Player{}).Where("id = ?", playerID).Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("player %s: %w", playerID, game.ErrNotFound)
	}
	return nil
}

func (s *GormStore) SetPlayerReady(ctx context.Context, playerID string, ready bool) error {
	return s.updatePlayer(ctx, playerID, "ready", ready)
}

func (s *GormStore) SetPlayerConnected(ctx context.Context, playerID string, connected bool) error {
	return s.updatePlayer(ctx, playerID, "connected", connected)
}

func (s *GormStore) DeletePlayer(ctx context.Context, playerID string) error {
	res := s.db.WithContext(ctx).Delete(&models.Player{}, "id = ?", playerID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("player %s: %w", playerID, game.ErrNotFound)
	}
	return nil
}

func (s *GormStore) CreateQuestion(ctx context.Context, q *models.Question) error {
	if err := s.db.WithContext(ctx).Create(q).Error; err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("question %s: %w", q.ID, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (s *GormStore) GetQuestion(ctx context.Context, questionID string) (*models.Question, error) {
	var q models.Question
	if err := s.db.WithContext(ctx).First(&q, "id = ?", questionID).Error; err != nil {
		return nil, notFound(err, "question "+questionID)
	}
	return &q, nil
}

func (s *GormStore) ListQuestions(ctx context.Context) ([]models.Question, error) {
	var qs []models.Question
	err := s.db.WithContext(ctx).Order("category, created_at").Find(&qs).Error
	return qs, err
}

func (s *GormStore) RandomQuestion(ctx context.Context, excludeIDs []string) (*models.Question, error) {
	var q models.Question
	query := s.db.WithContext(ctx).Order("RANDOM()")
	if len(excludeIDs) > 0 {
		query = query.Where("id NOT IN ?", excludeIDs)
	}
	if err := query.Take(&q).Error; err != nil {
		return nil, notFound(err, "no question available")
	}
	return &q, nil
}

func (s *GormStore) CountQuestions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Question{}).Count(&n).Error
	return n, err
}

func (s *GormStore) DeleteAllQuestions(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Question{})
	return res.RowsAffected, res.Error
}

// insertGuarded inserts row while holding a share lock on the room, so the
// row can only land while guard holds. A row already stored under the same
// key wins over the guard: a repeat submission is reported as such even
// after the phase moved on.
func (s *GormStore) insertGuarded(ctx context.Context, roomID string, guard RoomGuard, row, model any, key string, args ...any) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		room, err := lockRoom(tx, roomID, "SHARE")
		if err != nil {
			return err
		}
		var n int64
		if err := tx.Model(model).Where(key, args...).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return game.ErrAlreadySubmitted
		}
		if !guard.Holds(room) {
			return fmt.Errorf("room %s is in %s round %d: %w", roomID, room.Phase, room.Round, game.ErrInvalidPhase)
		}
		if err := tx.Create(row).Error; err != nil {
			if isUniqueViolation(err) {
				return game.ErrAlreadySubmitted
			}
			return err
		}
		return nil
	})
}

func (s *GormStore) InsertAnswer(ctx context.Context, answer *models.Answer, guard RoomGuard) error {
	return s.insertGuarded(ctx, answer.RoomID, guard, answer, &models.Answer{},
		"room_id = ? AND round = ? AND player_id = ?", answer.RoomID, answer.Round, answer.PlayerID)
}

func (s *GormStore) GetAnswer(ctx context.Context, roomID string, round int, playerID string) (*models.Answer, error) {
	var a models.Answer
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND round = ? AND player_id = ?", roomID, round, playerID).
		First(&a).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("answer for round %d", round))
	}
	return &a, nil
}

func (s *GormStore) LatestAnswerForQuestion(ctx context.Context, roomID, questionID string) (*models.Answer, error) {
	var a models.Answer
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND question_id = ?", roomID, questionID).
		Order("round DESC").
		First(&a).Error
	if err != nil {
		return nil, notFound(err, "answer for question "+questionID)
	}
	return &a, nil
}

func (s *GormStore) InsertVote(ctx context.Context, vote *models.Vote, guard RoomGuard) error {
	return s.insertGuarded(ctx, vote.RoomID, guard, vote, &models.Vote{},
		"room_id = ? AND round = ? AND judge_id = ?", vote.RoomID, vote.Round, vote.JudgeID)
}

func (s *GormStore) ListVotes(ctx context.Context, roomID string, round int) ([]models.Vote, error) {
	var votes []models.Vote
	err := s.db.WithContext(ctx).
		Where("room_id = ? AND round = ?", roomID, round).
		Order("submitted_at ASC").
		Find(&votes).Error
	return votes, err
}

func (s *GormStore) ResolveRound(ctx context.Context, roomID string, round int, fn RoundFunc) (bool, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&models.Room{}).
			Where("id = ? AND phase = ? AND round = ? AND resolved_round < ?", roomID, game.PhaseReveal, round, round).
			Update("resolved_round", round)
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return errNotClaimed
		}

		room, err := lockRoom(tx, roomID, "UPDATE")
		if err != nil {
			return err
		}
		var hot models.Player
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&hot, "id = ?", room.HotSeatPlayerID).Error; err != nil {
			return notFound(err, "hot seat "+room.HotSeatPlayerID)
		}
		effects, err := fn(&hot)
		if err != nil {
			return err
		}

		err = tx.Model(&models.Player{}).Where("id = ?", hot.ID).Updates(map[string]any{
			"current_rung":    effects.HotSeat.CurrentRung,
			"last_safe_haven": gorm.Expr("GREATEST(last_safe_haven, ?)", effects.HotSeat.LastSafeHaven),
			"eliminated":      gorm.Expr("eliminated OR ?", effects.HotSeat.Eliminated),
		}).Error
		if err != nil {
			return err
		}

		for _, j := range effects.Judges {
			correct := 0
			if j.CorrectRead {
				correct = 1
			}
			err := tx.Model(&models.Player{}).Where("id = ?", j.PlayerID).Updates(map[string]any{
				"total_votes":   gorm.Expr("total_votes + 1"),
				"correct_reads": gorm.Expr("correct_reads + ?", correct),
			}).Error
			if err != nil {
				return err
			}
		}

		if effects.Outcome != nil {
			return tx.Create(effects.Outcome).Error
		}
		return nil
	})
	if errors.Is(err, errNotClaimed) {
		return false, nil
	}
	return err == nil, err
}

func (s *GormStore) ListRoundOutcomes(ctx context.Context, roomID string) ([]models.RoundOutcome, error) {
	var outcomes []models.RoundOutcome
	err := s.db.WithContext(ctx).Where("room_id = ?", roomID).Order("round ASC").Find(&outcomes).Error
	return outcomes, err
}
