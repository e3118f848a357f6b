package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"hotseat/game"
	"hotseat/models"
	"hotseat/store"

	"github.com/google/uuid"
)

type scheduled struct {
	key   TimerKey
	after time.Duration
	fire  func()
}

// manualTimers keeps deadlines until a test fires them.
type manualTimers struct {
	mu      sync.Mutex
	pending map[string]scheduled
	stopped map[string]int
}

func newManualTimers() *manualTimers {
	return &manualTimers{pending: make(map[string]scheduled), stopped: make(map[string]int)}
}

func (m *manualTimers) Schedule(key TimerKey, after time.Duration, fire func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.pending[key.RoomID]; ok && !key.supersedes(cur.key) {
		return
	}
	m.pending[key.RoomID] = scheduled{key: key, after: after, fire: fire}
}

func (m *manualTimers) Stop(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, roomID)
	m.stopped[roomID]++
}

func (m *manualTimers) key(roomID string) (TimerKey, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.pending[roomID]
	return s.key, ok
}

func (m *manualTimers) stops(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped[roomID]
}

// fire runs the room's pending deadline as if it had elapsed.
func (m *manualTimers) fire(t *testing.T, roomID string) TimerKey {
	t.Helper()
	m.mu.Lock()
	s, ok := m.pending[roomID]
	delete(m.pending, roomID)
	m.mu.Unlock()
	if !ok {
		t.Fatalf("no deadline pending for room %s", roomID)
	}
	s.fire()
	return s.key
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, ev Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count(roomID, typ string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.RoomID == roomID && ev.Type == typ {
			n++
		}
	}
	return n
}

func (r *recorder) last(roomID, typ string) (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].RoomID == roomID && r.events[i].Type == typ {
			return r.events[i], true
		}
	}
	return Event{}, false
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	ctx      context.Context
	store    *store.MemoryStore
	match    *MatchService
	timers   *manualTimers
	events   *recorder
	clock    *fakeClock
	question *models.Question
	rooms    int
}

const revealDwell = 5 * time.Second

// Option 1 is correct.
func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore(rand.New(rand.NewSource(1)))
	q := &models.Question{
		ID:           uuid.NewString(),
		Category:     "science",
		Difficulty:   models.DifficultyEasy,
		Text:         "Which planet is known as the red planet?",
		Options:      []string{"Venus", "Mars", "Jupiter", "Saturn"},
		CorrectIndex: 1,
	}
	if err := st.CreateQuestion(ctx, q); err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}

	h := &harness{
		ctx:      ctx,
		store:    st,
		timers:   newManualTimers(),
		events:   &recorder{},
		clock:    &fakeClock{now: time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)},
		question: q,
	}
	h.match = NewMatchService(st, NewQuestionService(st), h.events, nil, h.timers, MatchOptions{
		RevealDwell: revealDwell,
		Now:         h.clock.Now,
		Rand:        rand.New(rand.NewSource(1)),
	})
	return h
}

const (
	correctChoice = 1
	wrongChoice   = 0
)

// seat is shorthand for a ready player with the given standing.
func seat(name string, rung, haven int, eliminated bool) models.Player {
	return models.Player{Name: name, CurrentRung: rung, LastSafeHaven: haven, Eliminated: eliminated}
}

// seed stores room and players as given, filling in identities.
func (h *harness) seed(t *testing.T, room *models.Room, players ...models.Player) (*models.Room, []models.Player) {
	t.Helper()
	h.rooms++
	room.ID = uuid.NewString()
	room.Code = fmt.Sprintf("R%03d", h.rooms)
	if room.Settings.LadderPayouts == nil {
		room.Settings = models.DefaultSettings()
	}
	if err := h.store.CreateRoom(h.ctx, room); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	for i := range players {
		players[i].ID = uuid.NewString()
		players[i].RoomID = room.ID
		players[i].Ready = true
		players[i].JoinedAt = h.clock.Now().Add(time.Duration(i) * time.Second)
		if err := h.store.CreatePlayer(h.ctx, &players[i]); err != nil {
			t.Fatalf("CreatePlayer(%s): %v", players[i].Name, err)
		}
	}
	return room, players
}

func (h *harness) lobby(t *testing.T, names ...string) (*models.Room, []models.Player) {
	t.Helper()
	players := make([]models.Player, len(names))
	for i, n := range names {
		players[i] = models.Player{Name: n}
	}
	return h.lobbyWith(t, players...)
}

func (h *harness) lobbyWith(t *testing.T, players ...models.Player) (*models.Room, []models.Player) {
	t.Helper()
	return h.seed(t, &models.Room{Phase: game.PhaseLobby}, players...)
}

// inReveal seeds a room that reached REVEAL of round with the hot seat's
// answer and the given ballots recorded but not yet resolved.
func (h *harness) inReveal(t *testing.T, round int, choice int, players []models.Player, ballots map[int]game.Belief) (*models.Room, []models.Player) {
	t.Helper()
	room, players := h.seed(t, &models.Room{
		Phase:             game.PhaseReveal,
		PhaseStartedAt:    h.clock.Now(),
		Round:             round,
		ResolvedRound:     round - 1,
		CurrentQuestionID: h.question.ID,
	}, players...)
	hot := players[0].ID
	if _, err := h.store.TransitionRoom(h.ctx, room.ID,
		store.RoomGuard{Phase: game.PhaseReveal, Round: round},
		store.RoomChange{Phase: game.PhaseReveal, PhaseStartedAt: h.clock.Now(), Round: round, HotSeatPlayerID: &hot},
	); err != nil {
		t.Fatalf("TransitionRoom: %v", err)
	}

	guard := store.RoomGuard{Phase: game.PhaseReveal, Round: round}
	correct := choice == h.question.CorrectIndex
	if err := h.store.InsertAnswer(h.ctx, &models.Answer{
		ID: uuid.NewString(), RoomID: room.ID, Round: round, QuestionID: h.question.ID,
		PlayerID: hot, ChoiceIndex: choice, IsCorrect: correct, SubmittedAt: h.clock.Now(),
	}, guard); err != nil {
		t.Fatalf("InsertAnswer: %v", err)
	}
	for i, b := range ballots {
		if err := h.store.InsertVote(h.ctx, &models.Vote{
			ID: uuid.NewString(), RoomID: room.ID, Round: round, QuestionID: h.question.ID,
			JudgeID: players[i].ID, Belief: b, CorrectRead: b.IsCorrectRead(correct), SubmittedAt: h.clock.Now(),
		}, guard); err != nil {
			t.Fatalf("InsertVote: %v", err)
		}
	}
	return h.reload(t, room.ID), players
}

func (h *harness) start(t *testing.T, roomID, hotSeatID string) {
	t.Helper()
	tr, err := h.match.StartMatch(h.ctx, roomID, hotSeatID)
	if err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	if !tr.Applied || tr.To != game.PhaseQuestion {
		t.Fatalf("StartMatch = %+v, want applied move to QUESTION", tr)
	}
}

func (h *harness) answer(t *testing.T, roomID, playerID string, choice int) bool {
	t.Helper()
	correct, err := h.match.SubmitAnswer(h.ctx, roomID, h.question.ID, playerID, choice)
	if err != nil {
		t.Fatalf("SubmitAnswer: %v", err)
	}
	return correct
}

func (h *harness) vote(t *testing.T, roomID, judgeID string, b game.Belief) bool {
	t.Helper()
	read, err := h.match.SubmitVote(h.ctx, roomID, h.question.ID, judgeID, b)
	if err != nil {
		t.Fatalf("SubmitVote: %v", err)
	}
	return read
}

func (h *harness) reload(t *testing.T, roomID string) *models.Room {
	t.Helper()
	room, err := h.store.GetRoom(h.ctx, roomID)
	if err != nil {
		t.Fatalf("GetRoom: %v", err)
	}
	return room
}

func (h *harness) player(t *testing.T, playerID string) *models.Player {
	t.Helper()
	p, err := h.store.GetPlayer(h.ctx, playerID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	return p
}

func (h *harness) expectPhase(t *testing.T, roomID string, want game.Phase) *models.Room {
	t.Helper()
	room := h.reload(t, roomID)
	if room.Phase != want {
		t.Fatalf("phase = %s, want %s", room.Phase, want)
	}
	return room
}

func (h *harness) outcomes(t *testing.T, roomID string) []models.RoundOutcome {
	t.Helper()
	out, err := h.match.ListRounds(h.ctx, roomID)
	if err != nil {
		t.Fatalf("ListRounds: %v", err)
	}
	return out
}

// toVote answers for the hot seat and lets the story run out.
func (h *harness) toVote(t *testing.T, roomID, hotSeatID string, choice int) {
	t.Helper()
	h.answer(t, roomID, hotSeatID, choice)
	h.expectPhase(t, roomID, game.PhaseStory)
	if key := h.timers.fire(t, roomID); key.Phase != game.PhaseStory {
		t.Fatalf("fired %s deadline, want STORY", key.Phase)
	}
}
