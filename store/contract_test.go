package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hotseat/game"
	"hotseat/models"

	"github.com/google/uuid"
)

// runContract exercises the guarantees every Store must give the engine.
func runContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("AnswerInsertIsUniquePerRound", func(t *testing.T) { testAnswerUnique(t, newStore(t)) })
	t.Run("VoteInsertIsUniquePerRound", func(t *testing.T) { testVoteUnique(t, newStore(t)) })
	t.Run("GuardedInsertRejectsOtherPhase", func(t *testing.T) { testGuardedInsert(t, newStore(t)) })
	t.Run("TransitionAppliesOnce", func(t *testing.T) { testTransitionOnce(t, newStore(t)) })
	t.Run("ResolveRoundAppliesOnce", func(t *testing.T) { testResolveOnce(t, newStore(t)) })
	t.Run("PlayersInJoinOrder", func(t *testing.T) { testJoinOrder(t, newStore(t)) })
	t.Run("RandomQuestionExcludes", func(t *testing.T) { testRandomExclude(t, newStore(t)) })
}

type fixture struct {
	room    *models.Room
	hot     *models.Player
	judges  []*models.Player
	questID string
}

func seedRoom(t *testing.T, s Store, phase game.Phase, judges int) fixture {
	t.Helper()
	ctx := context.Background()

	q := &models.Question{
		ID:           uuid.NewString(),
		Category:     "Science",
		Difficulty:   models.DifficultyEasy,
		Text:         "Which planet is closest to the sun?",
		Options:      []string{"Venus", "Mercury", "Mars"},
		CorrectIndex: 1,
	}
	if err := s.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("create question: %v", err)
	}

	room := &models.Room{
		ID:                uuid.NewString(),
		Code:              uuid.NewString()[:4],
		HostKeyHash:       "x",
		Phase:             phase,
		PhaseStartedAt:    time.Now(),
		Round:             1,
		CurrentQuestionID: q.ID,
		Settings:          models.DefaultSettings(),
	}
	if err := s.CreateRoom(ctx, room); err != nil {
		t.Fatalf("create room: %v", err)
	}

	f := fixture{room: room, questID: q.ID}
	base := time.Now()
	for i := 0; i <= judges; i++ {
		p := &models.Player{
			ID:       uuid.NewString(),
			RoomID:   room.ID,
			Name:     "player-" + string(rune('a'+i)),
			JoinedAt: base.Add(time.Duration(i) * time.Millisecond),
		}
		if err := s.CreatePlayer(ctx, p); err != nil {
			t.Fatalf("create player: %v", err)
		}
		if i == 0 {
			f.hot = p
		} else {
			f.judges = append(f.judges, p)
		}
	}
	hot := f.hot.ID
	ok, err := s.TransitionRoom(ctx, room.ID, RoomGuard{Phase: phase, Round: 1},
		RoomChange{Phase: phase, PhaseStartedAt: room.PhaseStartedAt, Round: 1, HotSeatPlayerID: &hot})
	if err != nil || !ok {
		t.Fatalf("set hot seat: ok=%v err=%v", ok, err)
	}
	f.room.HotSeatPlayerID = hot
	return f
}

// race runs fn from n goroutines released at the same moment.
func race(n int, fn func(i int) error) []error {
	errs := make([]error, n)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func countOutcomes(t *testing.T, errs []error, dup error) (ok int) {
	t.Helper()
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, dup):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return ok
}

func testAnswerUnique(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseQuestion, 0)
	guard := RoomGuard{Phase: game.PhaseQuestion, Round: 1}
	errs := race(16, func(i int) error {
		return s.InsertAnswer(context.Background(), &models.Answer{
			ID:          uuid.NewString(),
			RoomID:      f.room.ID,
			Round:       1,
			QuestionID:  f.questID,
			PlayerID:    f.hot.ID,
			ChoiceIndex: i % 3,
			SubmittedAt: time.Now(),
		}, guard)
	})
	if ok := countOutcomes(t, errs, game.ErrAlreadySubmitted); ok != 1 {
		t.Fatalf("%d answers accepted, want 1", ok)
	}
}

func testVoteUnique(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseVote, 1)
	guard := RoomGuard{Phase: game.PhaseVote, Round: 1}
	errs := race(16, func(i int) error {
		return s.InsertVote(context.Background(), &models.Vote{
			ID:          uuid.NewString(),
			RoomID:      f.room.ID,
			Round:       1,
			QuestionID:  f.questID,
			JudgeID:     f.judges[0].ID,
			Belief:      game.BeliefBelieve,
			SubmittedAt: time.Now(),
		}, guard)
	})
	if ok := countOutcomes(t, errs, game.ErrAlreadySubmitted); ok != 1 {
		t.Fatalf("%d votes accepted, want 1", ok)
	}
	votes, err := s.ListVotes(context.Background(), f.room.ID, 1)
	if err != nil || len(votes) != 1 {
		t.Fatalf("stored votes = %d, err %v", len(votes), err)
	}
}

func testGuardedInsert(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseStory, 1)
	err := s.InsertVote(context.Background(), &models.Vote{
		ID:          uuid.NewString(),
		RoomID:      f.room.ID,
		Round:       1,
		QuestionID:  f.questID,
		JudgeID:     f.judges[0].ID,
		Belief:      game.BeliefBullshit,
		SubmittedAt: time.Now(),
	}, RoomGuard{Phase: game.PhaseVote, Round: 1})
	if !errors.Is(err, game.ErrInvalidPhase) {
		t.Fatalf("err = %v, want ErrInvalidPhase", err)
	}
}

func testTransitionOnce(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseQuestion, 2)
	var mu sync.Mutex
	applied := 0
	errs := race(12, func(int) error {
		ok, err := s.TransitionRoom(context.Background(), f.room.ID,
			RoomGuard{Phase: game.PhaseQuestion, Round: 1},
			RoomChange{Phase: game.PhaseStory, PhaseStartedAt: time.Now(), Round: 1})
		if ok {
			mu.Lock()
			applied++
			mu.Unlock()
		}
		return err
	})
	countOutcomes(t, errs, nil)
	if applied != 1 {
		t.Fatalf("transition applied %d times, want 1", applied)
	}
	room, err := s.GetRoom(context.Background(), f.room.ID)
	if err != nil || room.Phase != game.PhaseStory {
		t.Fatalf("room phase = %v, err %v", room, err)
	}
}

func testResolveOnce(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseReveal, 2)
	ctx := context.Background()

	var mu sync.Mutex
	calls, applied := 0, 0
	errs := race(12, func(int) error {
		ok, err := s.ResolveRound(ctx, f.room.ID, 1, func(hot *models.Player) (*RoundEffects, error) {
			mu.Lock()
			calls++
			mu.Unlock()
			return &RoundEffects{
				HotSeat: game.Standing{CurrentRung: hot.CurrentRung + 1},
				Judges: []JudgeTally{
					{PlayerID: f.judges[0].ID, CorrectRead: true},
					{PlayerID: f.judges[1].ID, CorrectRead: false},
				},
				Outcome: &models.RoundOutcome{
					ID:              uuid.NewString(),
					RoomID:          f.room.ID,
					Round:           1,
					QuestionID:      f.questID,
					HotSeatPlayerID: hot.ID,
					Effect:          game.EffectAdvance,
					RungAfter:       hot.CurrentRung + 1,
					ResolvedAt:      time.Now(),
				},
			}, nil
		})
		if ok {
			mu.Lock()
			applied++
			mu.Unlock()
		}
		return err
	})
	countOutcomes(t, errs, nil)
	if applied != 1 || calls != 1 {
		t.Fatalf("applied=%d calls=%d, want 1 and 1", applied, calls)
	}

	hot, _ := s.GetPlayer(ctx, f.hot.ID)
	if hot.CurrentRung != 1 {
		t.Fatalf("hot seat rung = %d, want 1", hot.CurrentRung)
	}
	j0, _ := s.GetPlayer(ctx, f.judges[0].ID)
	j1, _ := s.GetPlayer(ctx, f.judges[1].ID)
	if j0.TotalVotes != 1 || j0.CorrectReads != 1 || j1.TotalVotes != 1 || j1.CorrectReads != 0 {
		t.Fatalf("judge stats j0=%d/%d j1=%d/%d", j0.CorrectReads, j0.TotalVotes, j1.CorrectReads, j1.TotalVotes)
	}
	outcomes, err := s.ListRoundOutcomes(ctx, f.room.ID)
	if err != nil || len(outcomes) != 1 {
		t.Fatalf("outcomes = %d, err %v", len(outcomes), err)
	}
	room, _ := s.GetRoom(ctx, f.room.ID)
	if !room.Resolved() {
		t.Fatalf("room round not marked resolved")
	}
}

func testJoinOrder(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseLobby, 3)
	players, err := s.ListPlayers(context.Background(), f.room.ID)
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	want := []string{f.hot.ID, f.judges[0].ID, f.judges[1].ID, f.judges[2].ID}
	if len(players) != len(want) {
		t.Fatalf("players = %d, want %d", len(players), len(want))
	}
	for i, p := range players {
		if p.ID != want[i] {
			t.Fatalf("player %d = %s, want %s", i, p.Name, want[i])
		}
	}
}

func testRandomExclude(t *testing.T, s Store) {
	f := seedRoom(t, s, game.PhaseLobby, 0)
	ctx := context.Background()
	q, err := s.RandomQuestion(ctx, nil)
	if err != nil || q.ID != f.questID {
		t.Fatalf("random question = %v, err %v", q, err)
	}
	if _, err := s.RandomQuestion(ctx, []string{f.questID}); !errors.Is(err, game.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
