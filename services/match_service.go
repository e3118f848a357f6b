package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"hotseat/game"
	"hotseat/models"
	"hotseat/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	ReasonApplied = "applied"
	ReasonStale   = "stale"
	ReasonPending = "pending"
)

// Transition reports what an attempt to move a room did. A stale attempt
// is not an error: the room had already moved past the expected phase.
type Transition struct {
	RoomID  string     `json:"room_id"`
	From    game.Phase `json:"from"`
	To      game.Phase `json:"to,omitempty"`
	Round   int        `json:"round"`
	Applied bool       `json:"applied"`
	Reason  string     `json:"reason"`
	At      time.Time  `json:"at"`
}

type RoundResolution struct {
	RoomID  string               `json:"room_id"`
	Round   int                  `json:"round"`
	Applied bool                 `json:"applied"`
	Reason  string               `json:"reason"`
	Verdict *game.Verdict        `json:"verdict,omitempty"`
	Step    *game.Step           `json:"step,omitempty"`
	Outcome *models.RoundOutcome `json:"outcome,omitempty"`
}

type RoundResult struct {
	RoomID     string               `json:"room_id"`
	QuestionID string               `json:"question_id"`
	Round      int                  `json:"round"`
	Answer     *models.Answer       `json:"answer"`
	Votes      []models.Vote        `json:"votes"`
	Verdict    game.Verdict         `json:"verdict"`
	Outcome    *models.RoundOutcome `json:"outcome,omitempty"`
}

type MatchOptions struct {
	RevealDwell          time.Duration
	AvoidRepeatQuestions bool
	Now                  func() time.Time
	Rand                 *rand.Rand
}

// MatchService drives rooms through their phases. Every write it makes is
// guarded by the room's phase and round, so any number of callers (HTTP
// clients, deadline timers, restored timers after a restart) may race on
// the same room and each step still happens once.
type MatchService struct {
	store     store.Store
	questions *QuestionService
	notifier  Notifier
	cache     StateCache
	timers    Scheduler

	revealDwell  time.Duration
	avoidRepeats bool
	now          func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewMatchService(st store.Store, questions *QuestionService, notifier Notifier, cache StateCache, timers Scheduler, opts MatchOptions) *MatchService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.RevealDwell <= 0 {
		opts.RevealDwell = 5 * time.Second
	}
	return &MatchService{
		store:        st,
		questions:    questions,
		notifier:     notifier,
		cache:        cache,
		timers:       timers,
		revealDwell:  opts.RevealDwell,
		avoidRepeats: opts.AvoidRepeatQuestions,
		now:          opts.Now,
		rng:          opts.Rand,
	}
}

func (s *MatchService) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.Intn(n)
}

// StartMatch moves a ready lobby into the first QUESTION. The host may name
// the first hot seat; otherwise one is drawn at random.
func (s *MatchService) StartMatch(ctx context.Context, roomID, hotSeatID string) (*Transition, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Phase != game.PhaseLobby {
		return nil, fmt.Errorf("start in %s: %w", room.Phase, game.ErrInvalidPhase)
	}

	players, err := s.store.ListPlayers(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, fmt.Errorf("no players joined: %w", game.ErrNotReady)
	}
	for _, p := range players {
		if !p.Ready {
			return nil, fmt.Errorf("%s is not ready: %w", p.Name, game.ErrNotReady)
		}
	}

	if hotSeatID == "" {
		hotSeatID = players[s.randIntn(len(players))].ID
	} else if !containsPlayer(players, hotSeatID) {
		return nil, fmt.Errorf("player %s: %w", hotSeatID, game.ErrNotFound)
	}

	q, err := s.pickQuestion(ctx, room)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, room, game.TriggerHostStart,
		store.RoomGuard{Phase: game.PhaseLobby, Round: room.Round},
		store.RoomChange{
			Round:             room.Round + 1,
			HotSeatPlayerID:   &hotSeatID,
			CurrentQuestionID: &q.ID,
			AskedQuestionID:   q.ID,
		})
}

func containsPlayer(players []models.Player, id string) bool {
	for _, p := range players {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (s *MatchService) pickQuestion(ctx context.Context, room *models.Room) (*models.Question, error) {
	var exclude []string
	if s.avoidRepeats {
		exclude = room.AskedQuestionIDs
	}
	return s.questions.Next(ctx, exclude)
}

// roomPlayer loads a player and checks it belongs to the room.
func (s *MatchService) roomPlayer(ctx context.Context, roomID, playerID string) (*models.Player, error) {
	p, err := s.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	if p.RoomID != roomID {
		return nil, fmt.Errorf("player %s in room %s: %w", playerID, roomID, game.ErrNotFound)
	}
	return p, nil
}

// SubmitAnswer records the hot seat's pick for the current round and
// returns whether it was correct. The first answer ends QUESTION early.
func (s *MatchService) SubmitAnswer(ctx context.Context, roomID, questionID, playerID string, choice int) (bool, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if err != nil {
		return false, err
	}
	if _, err := s.roomPlayer(ctx, roomID, playerID); err != nil {
		return false, err
	}
	if _, err := s.store.GetAnswer(ctx, roomID, room.Round, playerID); err == nil {
		return false, game.ErrAlreadySubmitted
	} else if !errors.Is(err, game.ErrNotFound) {
		return false, err
	}
	if room.Phase != game.PhaseQuestion || room.CurrentQuestionID != questionID {
		return false, fmt.Errorf("answer in %s: %w", room.Phase, game.ErrInvalidPhase)
	}
	if playerID != room.HotSeatPlayerID {
		return false, game.ErrNotHotSeat
	}
	if choice < 0 || choice >= len(q.Options) {
		return false, fmt.Errorf("%w: %d of %d", game.ErrInvalidChoice, choice, len(q.Options))
	}

	guard := store.RoomGuard{Phase: game.PhaseQuestion, Round: room.Round}
	answer := &models.Answer{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Round:       room.Round,
		QuestionID:  questionID,
		PlayerID:    playerID,
		ChoiceIndex: choice,
		IsCorrect:   choice == q.CorrectIndex,
		SubmittedAt: s.now(),
	}
	if err := s.store.InsertAnswer(ctx, answer, guard); err != nil {
		return false, err
	}

	s.publish(ctx, roomID, EventAnswerSubmitted, gin.H{
		"round":     room.Round,
		"player_id": playerID,
	})
	if _, err := s.transition(ctx, room, game.TriggerAnswered, guard, store.RoomChange{}); err != nil {
		log.Printf("[MatchService] room %s: advancing after answer: %v", roomID, err)
	}
	return answer.IsCorrect, nil
}

// SubmitVote records a judge's call on the hot seat's answer and returns
// whether the call was a correct read. The last eligible vote ends VOTE early.
func (s *MatchService) SubmitVote(ctx context.Context, roomID, questionID, judgeID string, belief game.Belief) (bool, error) {
	if !belief.Valid() {
		return false, fmt.Errorf("%w: %q", game.ErrInvalidBelief, belief)
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return false, err
	}
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return false, err
	}
	judge, err := s.roomPlayer(ctx, roomID, judgeID)
	if err != nil {
		return false, err
	}
	votes, err := s.store.ListVotes(ctx, roomID, room.Round)
	if err != nil {
		return false, err
	}
	for _, v := range votes {
		if v.JudgeID == judgeID {
			return false, game.ErrAlreadySubmitted
		}
	}
	if room.CurrentQuestionID != questionID || !room.Phase.InRound() {
		return false, fmt.Errorf("vote on question %s in %s: %w", questionID, room.Phase, game.ErrInvalidPhase)
	}
	answer, err := s.store.GetAnswer(ctx, roomID, room.Round, room.HotSeatPlayerID)
	if errors.Is(err, game.ErrNotFound) {
		return false, game.ErrNoAnswerYet
	}
	if err != nil {
		return false, err
	}
	if room.Phase != game.PhaseVote {
		return false, fmt.Errorf("vote in %s: %w", room.Phase, game.ErrInvalidPhase)
	}
	if judgeID == room.HotSeatPlayerID || judge.Eliminated {
		return false, game.ErrNotJudge
	}

	guard := store.RoomGuard{Phase: game.PhaseVote, Round: room.Round}
	vote := &models.Vote{
		ID:          uuid.NewString(),
		RoomID:      roomID,
		Round:       room.Round,
		QuestionID:  questionID,
		JudgeID:     judgeID,
		Belief:      belief,
		CorrectRead: belief.IsCorrectRead(answer.IsCorrect),
		SubmittedAt: s.now(),
	}
	if err := s.store.InsertVote(ctx, vote, guard); err != nil {
		return false, err
	}

	done, cast, judges, err := s.votingComplete(ctx, room)
	if err != nil {
		return vote.CorrectRead, err
	}
	s.publish(ctx, roomID, EventVoteSubmitted, gin.H{
		"round":        room.Round,
		"votes_cast":   cast,
		"judges_total": judges,
	})
	if done {
		if _, err := s.transition(ctx, room, game.TriggerAllVoted, guard, store.RoomChange{}); err != nil {
			log.Printf("[MatchService] room %s: advancing after last vote: %v", roomID, err)
		}
	}
	return vote.CorrectRead, nil
}

// votingComplete reports whether every eligible judge of the room's current
// round has voted. A round without judges is complete at once.
func (s *MatchService) votingComplete(ctx context.Context, room *models.Room) (bool, int, int, error) {
	players, err := s.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return false, 0, 0, err
	}
	votes, err := s.store.ListVotes(ctx, room.ID, room.Round)
	if err != nil {
		return false, 0, 0, err
	}
	voted := make(map[string]bool, len(votes))
	for _, v := range votes {
		voted[v.JudgeID] = true
	}
	judges, cast := 0, 0
	for _, p := range players {
		if p.Eliminated || p.ID == room.HotSeatPlayerID {
			continue
		}
		judges++
		if voted[p.ID] {
			cast++
		}
	}
	return cast >= judges, cast, judges, nil
}

func (s *MatchService) hotSeatAnswered(ctx context.Context, room *models.Room) (bool, error) {
	_, err := s.store.GetAnswer(ctx, room.ID, room.Round, room.HotSeatPlayerID)
	if errors.Is(err, game.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// AdvancePhase moves the room out of expected if its exit condition holds:
// the early-completion condition of the phase, or its deadline measured
// from the phase start. A room no longer in expected is a stale no-op.
func (s *MatchService) AdvancePhase(ctx context.Context, roomID string, expected game.Phase) (*Transition, error) {
	return s.step(ctx, roomID, expected, 0, false)
}

func (s *MatchService) step(ctx context.Context, roomID string, expected game.Phase, round int, deadlineFired bool) (*Transition, error) {
	if !expected.Valid() {
		return nil, fmt.Errorf("%w: %q", game.ErrUnknownPhase, expected)
	}
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.Phase != expected || (round > 0 && room.Round != round) {
		log.Printf("[MatchService] room %s: %s round %d is no longer current, skipping", roomID, expected, round)
		return &Transition{RoomID: roomID, From: expected, Round: room.Round, Reason: ReasonStale, At: s.now()}, nil
	}

	timing := room.Settings.Timing(s.revealDwell)
	expired := deadlineFired || timing.Expired(room.Phase, room.PhaseStartedAt, s.now())
	guard := store.RoomGuard{Phase: room.Phase, Round: room.Round}

	switch room.Phase {
	case game.PhaseQuestion:
		answered, err := s.hotSeatAnswered(ctx, room)
		if err != nil {
			return nil, err
		}
		if answered {
			return s.transition(ctx, room, game.TriggerAnswered, guard, store.RoomChange{})
		}
		if expired {
			return s.transition(ctx, room, game.TriggerDeadline, guard, store.RoomChange{})
		}
	case game.PhaseStory:
		if expired {
			return s.transition(ctx, room, game.TriggerDeadline, guard, store.RoomChange{})
		}
	case game.PhaseVote:
		done, _, _, err := s.votingComplete(ctx, room)
		if err != nil {
			return nil, err
		}
		if done {
			return s.transition(ctx, room, game.TriggerAllVoted, guard, store.RoomChange{})
		}
		if expired {
			return s.transition(ctx, room, game.TriggerDeadline, guard, store.RoomChange{})
		}
	case game.PhaseReveal:
		if !room.Resolved() {
			if _, err := s.resolve(ctx, room); err != nil {
				return nil, err
			}
			current, err := s.store.GetRoom(ctx, roomID)
			if err != nil {
				return nil, err
			}
			if current.Phase != room.Phase || current.Round != room.Round {
				return &Transition{RoomID: roomID, From: expected, Round: current.Round, Reason: ReasonStale, At: s.now()}, nil
			}
			room = current
		}
		if expired {
			return s.finishRound(ctx, room)
		}
	default:
		return nil, fmt.Errorf("%s has no automatic exit: %w", room.Phase, game.ErrInvalidPhase)
	}
	return &Transition{RoomID: roomID, From: room.Phase, Round: room.Round, Reason: ReasonPending, At: s.now()}, nil
}

// finishRound leaves a resolved REVEAL: to GAME_END when nobody is left
// standing or the question bank ran dry, otherwise into the next QUESTION
// with the best judge on the hot seat.
func (s *MatchService) finishRound(ctx context.Context, room *models.Room) (*Transition, error) {
	players, err := s.store.ListPlayers(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	candidates := make([]game.Candidate, len(players))
	for i := range players {
		candidates[i] = players[i].Candidate()
	}

	guard := store.RoomGuard{Phase: game.PhaseReveal, Round: room.Round, RequireResolved: true}
	next, ok := game.SelectHotSeat(candidates)
	if !ok {
		none := ""
		return s.transition(ctx, room, game.TriggerNoActive, guard, store.RoomChange{
			HotSeatPlayerID:   &none,
			CurrentQuestionID: &none,
		})
	}

	q, err := s.pickQuestion(ctx, room)
	if errors.Is(err, game.ErrNotFound) {
		log.Printf("[MatchService] room %s: question bank is empty, ending the match", room.ID)
		none := ""
		return s.transition(ctx, room, game.TriggerBankEmpty, guard, store.RoomChange{
			HotSeatPlayerID:   &none,
			CurrentQuestionID: &none,
		})
	}
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, room, game.TriggerRoundResolved, guard, store.RoomChange{
		Round:             room.Round + 1,
		HotSeatPlayerID:   &next,
		CurrentQuestionID: &q.ID,
		AskedQuestionID:   q.ID,
	})
}

// transition fires trig against room with a conditional write. Losing the
// race to another caller yields a stale Transition.
func (s *MatchService) transition(ctx context.Context, room *models.Room, trig game.Trigger, guard store.RoomGuard, change store.RoomChange) (*Transition, error) {
	to, err := game.Next(room.Phase, trig)
	if err != nil {
		return nil, err
	}
	change.Phase = to
	change.PhaseStartedAt = s.now()
	if change.Round == 0 {
		change.Round = room.Round
	}

	applied, err := s.store.TransitionRoom(ctx, room.ID, guard, change)
	if err != nil {
		return nil, err
	}
	t := &Transition{
		RoomID: room.ID,
		From:   room.Phase,
		To:     to,
		Round:  change.Round,
		At:     change.PhaseStartedAt,
		Reason: ReasonStale,
	}
	if !applied {
		log.Printf("[MatchService] room %s: %s -> %s already handled", room.ID, room.Phase, to)
		return t, nil
	}
	t.Applied, t.Reason = true, ReasonApplied
	log.Printf("[MatchService] room %s: %s -> %s (round %d, %s)", room.ID, t.From, t.To, t.Round, trig)
	s.onEnter(ctx, t)
	return t, nil
}

// onEnter runs the side effects of entering a phase: the deadline timer,
// the phase broadcast and, for REVEAL, the round resolution.
func (s *MatchService) onEnter(ctx context.Context, t *Transition) {
	room, err := s.store.GetRoom(ctx, t.RoomID)
	if err != nil {
		log.Printf("[MatchService] room %s: reloading after %s: %v", t.RoomID, t.To, err)
		return
	}
	if room.Phase != t.To || room.Round != t.Round {
		return
	}

	s.publishPhase(ctx, room, t)

	switch room.Phase {
	case game.PhaseQuestion, game.PhaseStory:
		s.arm(room)
	case game.PhaseVote:
		s.arm(room)
		if _, err := s.step(ctx, room.ID, game.PhaseVote, room.Round, false); err != nil {
			log.Printf("[MatchService] room %s: checking votes on entry: %v", room.ID, err)
		}
	case game.PhaseReveal:
		s.arm(room)
		if _, err := s.resolve(ctx, room); err != nil {
			log.Printf("[MatchService] room %s: resolving round %d: %v", room.ID, room.Round, err)
		}
	case game.PhaseGameEnd:
		s.timers.Stop(room.ID)
		s.publishGameEnd(ctx, room)
	}
}

// arm schedules the deadline of the room's current phase.
func (s *MatchService) arm(room *models.Room) {
	timing := room.Settings.Timing(s.revealDwell)
	if _, ok := timing.Deadline(room.Phase); !ok {
		return
	}
	key := TimerKey{RoomID: room.ID, Phase: room.Phase, Round: room.Round}
	after := timing.Remaining(room.Phase, room.PhaseStartedAt, s.now())
	s.timers.Schedule(key, after, func() { s.onDeadline(key) })
}

func (s *MatchService) onDeadline(key TimerKey) {
	t, err := s.step(context.Background(), key.RoomID, key.Phase, key.Round, true)
	if err != nil {
		log.Printf("[MatchService] room %s: %s deadline: %v", key.RoomID, key.Phase, err)
		return
	}
	if t.Reason == ReasonPending {
		log.Printf("[MatchService] room %s: %s deadline fired but phase is still pending", key.RoomID, key.Phase)
	}
}

// ResolveRound applies the consequences of the round that used questionID.
// Only the first caller for a round applies anything; the rest get a
// stale result.
func (s *MatchService) ResolveRound(ctx context.Context, roomID, questionID string) (*RoundResolution, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.CurrentQuestionID == questionID {
		switch room.Phase {
		case game.PhaseReveal:
			return s.resolve(ctx, room)
		case game.PhaseQuestion, game.PhaseStory, game.PhaseVote:
			return nil, fmt.Errorf("resolve in %s: %w", room.Phase, game.ErrInvalidPhase)
		}
	}
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	return &RoundResolution{RoomID: roomID, Round: room.Round, Reason: ReasonStale}, nil
}

// resolve claims the room's current round and applies the verdict to the
// hot seat and the judges in one atomic unit.
func (s *MatchService) resolve(ctx context.Context, room *models.Room) (*RoundResolution, error) {
	ladder, err := room.Settings.Ladder()
	if err != nil {
		return nil, err
	}

	// Submissions are closed once the room is in REVEAL, so what is read
	// here is final.
	answer, err := s.store.GetAnswer(ctx, room.ID, room.Round, room.HotSeatPlayerID)
	if err != nil && !errors.Is(err, game.ErrNotFound) {
		return nil, err
	}
	votes, err := s.store.ListVotes(ctx, room.ID, room.Round)
	if err != nil {
		return nil, err
	}
	answered := answer != nil
	verdict := game.Resolve(answered && answer.IsCorrect, models.Ballots(votes))

	res := &RoundResolution{RoomID: room.ID, Round: room.Round, Verdict: &verdict, Reason: ReasonStale}
	applied, err := s.store.ResolveRound(ctx, room.ID, room.Round, func(hot *models.Player) (*store.RoundEffects, error) {
		step := ladder.Apply(hot.Standing(), verdict)
		judges := make([]store.JudgeTally, len(votes))
		for i, v := range votes {
			judges[i] = store.JudgeTally{PlayerID: v.JudgeID, CorrectRead: v.CorrectRead}
		}
		res.Step = &step
		res.Outcome = &models.RoundOutcome{
			ID:              uuid.NewString(),
			RoomID:          room.ID,
			Round:           room.Round,
			QuestionID:      room.CurrentQuestionID,
			HotSeatPlayerID: hot.ID,
			Answered:        answered,
			AnswerCorrect:   verdict.AnswerCorrect,
			VoteCount:       verdict.VoteCount,
			BelieveCount:    verdict.BelieveCount,
			Effect:          step.Effect,
			RungBefore:      step.Before.CurrentRung,
			RungAfter:       step.After.CurrentRung,
			LastSafeHaven:   step.After.LastSafeHaven,
			ReachedTop:      step.ReachedTop,
			Payout:          step.Payout,
			ResolvedAt:      s.now(),
		}
		return &store.RoundEffects{HotSeat: step.After, Judges: judges, Outcome: res.Outcome}, nil
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		res.Step, res.Outcome = nil, nil
		log.Printf("[MatchService] room %s: round %d already resolved", room.ID, room.Round)
		return res, nil
	}
	res.Applied, res.Reason = true, ReasonApplied
	log.Printf("[MatchService] room %s: round %d resolved: %s, rung %d -> %d",
		room.ID, room.Round, res.Step.Effect, res.Step.Before.CurrentRung, res.Step.After.CurrentRung)

	payload := gin.H{
		"round":   room.Round,
		"verdict": verdict,
		"outcome": res.Outcome,
		"answer":  answer,
	}
	if q, err := s.store.GetQuestion(ctx, room.CurrentQuestionID); err == nil {
		payload["question"] = q.Public(true)
	}
	s.publish(ctx, room.ID, EventRoundResolved, payload)
	return res, nil
}

// GetRoundResult reports the latest round of the room that used questionID.
// The current round is only visible once it reached REVEAL.
func (s *MatchService) GetRoundResult(ctx context.Context, roomID, questionID string) (*RoundResult, error) {
	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, err
	}
	outcomes, err := s.store.ListRoundOutcomes(ctx, roomID)
	if err != nil {
		return nil, err
	}

	res := &RoundResult{RoomID: roomID, QuestionID: questionID}
	answer, err := s.store.LatestAnswerForQuestion(ctx, roomID, questionID)
	switch {
	case err == nil:
		res.Answer, res.Round = answer, answer.Round
	case !errors.Is(err, game.ErrNotFound):
		return nil, err
	}
	if room.CurrentQuestionID == questionID && room.Round > res.Round {
		res.Answer, res.Round = nil, room.Round
	}
	for i := range outcomes {
		if outcomes[i].QuestionID == questionID && outcomes[i].Round >= res.Round {
			res.Round, res.Outcome = outcomes[i].Round, &outcomes[i]
		}
	}
	if res.Round == 0 {
		return nil, fmt.Errorf("round for question %s: %w", questionID, game.ErrNotFound)
	}
	if res.Answer != nil && res.Answer.Round != res.Round {
		res.Answer = nil
	}
	if res.Round == room.Round && room.Phase.InRound() && room.Phase != game.PhaseReveal {
		return nil, fmt.Errorf("round %d still in %s: %w", res.Round, room.Phase, game.ErrInvalidPhase)
	}

	if res.Votes, err = s.store.ListVotes(ctx, roomID, res.Round); err != nil {
		return nil, err
	}
	correct := res.Answer != nil && res.Answer.IsCorrect
	res.Verdict = game.Resolve(correct, models.Ballots(res.Votes))
	return res, nil
}

func (s *MatchService) ListRounds(ctx context.Context, roomID string) ([]models.RoundOutcome, error) {
	if _, err := s.store.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	return s.store.ListRoundOutcomes(ctx, roomID)
}

// RestoreTimers re-arms the deadlines of every running room, typically
// after a restart. Rounds left unresolved in REVEAL are resolved first.
func (s *MatchService) RestoreTimers(ctx context.Context) (int, error) {
	rooms, err := s.store.ListRoomsInPhases(ctx, game.PhaseQuestion, game.PhaseStory, game.PhaseVote, game.PhaseReveal)
	if err != nil {
		return 0, err
	}
	for i := range rooms {
		room := &rooms[i]
		if room.Phase == game.PhaseReveal && !room.Resolved() {
			if _, err := s.resolve(ctx, room); err != nil {
				log.Printf("[MatchService] room %s: resolving on restore: %v", room.ID, err)
			}
		}
		s.arm(room)
	}
	log.Printf("[MatchService] restored %d phase timers", len(rooms))
	return len(rooms), nil
}

func (s *MatchService) publish(ctx context.Context, roomID, typ string, payload interface{}) {
	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, Event{Type: typ, RoomID: roomID, Payload: payload}); err != nil {
			log.Printf("[MatchService] room %s: %v", roomID, err)
		}
	}
	s.refreshCache(ctx, roomID)
}

// Announce publishes an event on behalf of another service.
func (s *MatchService) Announce(ctx context.Context, roomID, typ string, payload interface{}) {
	s.publish(ctx, roomID, typ, payload)
}

func (s *MatchService) publishPhase(ctx context.Context, room *models.Room, t *Transition) {
	payload := gin.H{
		"from":               t.From,
		"to":                 room.Phase,
		"round":              room.Round,
		"phase_started_at":   room.PhaseStartedAt,
		"hot_seat_player_id": room.HotSeatPlayerID,
	}
	if d, ok := room.Settings.Timing(s.revealDwell).Deadline(room.Phase); ok {
		payload["deadline_seconds"] = int(d / time.Second)
	}
	if room.CurrentQuestionID != "" {
		if q, err := s.store.GetQuestion(ctx, room.CurrentQuestionID); err == nil {
			payload["question"] = q.Public(room.Phase == game.PhaseReveal)
		}
	}
	s.publish(ctx, room.ID, EventPhaseChanged, payload)
}

func (s *MatchService) publishGameEnd(ctx context.Context, room *models.Room) {
	state, err := s.RoomState(ctx, room.ID)
	if err != nil {
		log.Printf("[MatchService] room %s: building final standings: %v", room.ID, err)
		return
	}
	s.publish(ctx, room.ID, EventGameEnd, gin.H{
		"standings": state.Standings,
		"winner":    state.Winner,
	})
}
