package store

import (
	"context"
	"fmt"
	"math/rand"
	"slices"
	"sync"
	"time"

	"hotseat/game"
	"hotseat/models"
)

// MemoryStore keeps everything in process behind one mutex, so every
// method is trivially atomic. It serves tests and single-instance runs.
type MemoryStore struct {
	mu        sync.Mutex
	rng       *rand.Rand
	rooms     map[string]*models.Room
	codes     map[string]string
	players   []*models.Player
	questions []*models.Question
	answers   []*models.Answer
	votes     []*models.Vote
	outcomes  []*models.RoundOutcome
}

func NewMemoryStore(rng *rand.Rand) *MemoryStore {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MemoryStore{
		rng:   rng,
		rooms: make(map[string]*models.Room),
		codes: make(map[string]string),
	}
}

func cloneRoom(r *models.Room) *models.Room {
	c := *r
	c.AskedQuestionIDs = slices.Clone(r.AskedQuestionIDs)
	c.Settings.SafeHavenRungs = slices.Clone(r.Settings.SafeHavenRungs)
	c.Settings.LadderPayouts = slices.Clone(r.Settings.LadderPayouts)
	return &c
}

func cloneQuestion(q *models.Question) *models.Question {
	c := *q
	c.Options = slices.Clone(q.Options)
	c.Tags = slices.Clone(q.Tags)
	return &c
}

func (s *MemoryStore) CreateRoom(_ context.Context, room *models.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[room.Code]; ok {
		return fmt.Errorf("room code %s: %w", room.Code, ErrDuplicate)
	}
	if _, ok := s.rooms[room.ID]; ok {
		return fmt.Errorf("room %s: %w", room.ID, ErrDuplicate)
	}
	now := time.Now()
	room.CreatedAt, room.UpdatedAt = now, now
	s.rooms[room.ID] = cloneRoom(room)
	s.codes[room.Code] = room.ID
	return nil
}

func (s *MemoryStore) GetRoom(_ context.Context, roomID string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, game.ErrNotFound)
	}
	return cloneRoom(r), nil
}

func (s *MemoryStore) GetRoomByCode(_ context.Context, code string) (*models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return nil, fmt.Errorf("room code %s: %w", code, game.ErrNotFound)
	}
	return cloneRoom(s.rooms[id]), nil
}

func (s *MemoryStore) ListRoomsInPhases(_ context.Context, phases ...game.Phase) ([]models.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Room
	for _, r := range s.rooms {
		if slices.Contains(phases, r.Phase) {
			out = append(out, *cloneRoom(r))
		}
	}
	return out, nil
}

func (s *MemoryStore) TransitionRoom(_ context.Context, roomID string, guard RoomGuard, change RoomChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false, fmt.Errorf("room %s: %w", roomID, game.ErrNotFound)
	}
	if !guard.Holds(r) {
		return false, nil
	}
	change.apply(r)
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *MemoryStore) CreatePlayer(_ context.Context, player *models.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.RoomID == player.RoomID && p.Name == player.Name {
			return fmt.Errorf("player %q: %w", player.Name, ErrDuplicate)
		}
	}
	now := time.Now()
	player.CreatedAt, player.UpdatedAt = now, now
	c := *player
	s.players = append(s.players, &c)
	return nil
}

func (s *MemoryStore) findPlayer(playerID string) (*models.Player, error) {
	for _, p := range s.players {
		if p.ID == playerID {
			return p, nil
		}
	}
	return nil, fmt.Errorf("player %s: %w", playerID, game.ErrNotFound)
}

func (s *MemoryStore) GetPlayer(_ context.Context, playerID string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.findPlayer(playerID)
	if err != nil {
		return nil, err
	}
	c := *p
	return &c, nil
}

func (s *MemoryStore) GetPlayerByName(_ context.Context, roomID, name string) (*models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.players {
		if p.RoomID == roomID && p.Name == name {
			c := *p
			return &c, nil
		}
	}
	return nil, fmt.Errorf("player %q: %w", name, game.ErrNotFound)
}

func (s *MemoryStore) ListPlayers(_ context.Context, roomID string) ([]models.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Player
	for _, p := range s.players {
		if p.RoomID == roomID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *MemoryStore) SetPlayerReady(_ context.Context, playerID string, ready bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.findPlayer(playerID)
	if err != nil {
		return err
	}
	p.Ready = ready
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) SetPlayerConnected(_ context.Context, playerID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.findPlayer(playerID)
	if err != nil {
		return err
	}
	p.Connected = connected
	p.UpdatedAt = time.Now()
	return nil
}

func (s *MemoryStore) DeletePlayer(_ context.Context, playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.players)
	s.players = slices.DeleteFunc(s.players, func(p *models.Player) bool { return p.ID == playerID })
	if len(s.players) == n {
		return fmt.Errorf("player %s: %w", playerID, game.ErrNotFound)
	}
	return nil
}

func (s *MemoryStore) CreateQuestion(_ context.Context, q *models.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.questions {
		if existing.ID == q.ID {
			return fmt.Errorf("question %s: %w", q.ID, ErrDuplicate)
		}
	}
	q.CreatedAt = time.Now()
	s.questions = append(s.questions, cloneQuestion(q))
	return nil
}

func (s *MemoryStore) GetQuestion(_ context.Context, questionID string) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, q := range s.questions {
		if q.ID == questionID {
			return cloneQuestion(q), nil
		}
	}
	return nil, fmt.Errorf("question %s: %w", questionID, game.ErrNotFound)
}

func (s *MemoryStore) ListQuestions(_ context.Context) ([]models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, *cloneQuestion(q))
	}
	return out, nil
}

func (s *MemoryStore) RandomQuestion(_ context.Context, excludeIDs []string) (*models.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var available []*models.Question
	for _, q := range s.questions {
		if !slices.Contains(excludeIDs, q.ID) {
			available = append(available, q)
		}
	}
	if len(available) == 0 {
		return nil, fmt.Errorf("no question available: %w", game.ErrNotFound)
	}
	return cloneQuestion(available[s.rng.Intn(len(available))]), nil
}

func (s *MemoryStore) CountQuestions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.questions)), nil
}

func (s *MemoryStore) DeleteAllQuestions(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.questions))
	s.questions = nil
	return n, nil
}

func (s *MemoryStore) guardRoom(roomID string, guard RoomGuard) error {
	r, ok := s.rooms[roomID]
	if !ok {
		return fmt.Errorf("room %s: %w", roomID, game.ErrNotFound)
	}
	if !guard.Holds(r) {
		return fmt.Errorf("room %s is in %s round %d: %w", roomID, r.Phase, r.Round, game.ErrInvalidPhase)
	}
	return nil
}

func (s *MemoryStore) InsertAnswer(_ context.Context, answer *models.Answer, guard RoomGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.answers {
		if a.RoomID == answer.RoomID && a.Round == answer.Round && a.PlayerID == answer.PlayerID {
			return game.ErrAlreadySubmitted
		}
	}
	if err := s.guardRoom(answer.RoomID, guard); err != nil {
		return err
	}
	c := *answer
	s.answers = append(s.answers, &c)
	return nil
}

func (s *MemoryStore) GetAnswer(_ context.Context, roomID string, round int, playerID string) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.answers {
		if a.RoomID == roomID && a.Round == round && a.PlayerID == playerID {
			c := *a
			return &c, nil
		}
	}
	return nil, fmt.Errorf("answer for round %d: %w", round, game.ErrNotFound)
}

func (s *MemoryStore) LatestAnswerForQuestion(_ context.Context, roomID, questionID string) (*models.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Answer
	for _, a := range s.answers {
		if a.RoomID == roomID && a.QuestionID == questionID && (latest == nil || a.Round > latest.Round) {
			latest = a
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("answer for question %s: %w", questionID, game.ErrNotFound)
	}
	c := *latest
	return &c, nil
}

func (s *MemoryStore) InsertVote(_ context.Context, vote *models.Vote, guard RoomGuard) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range s.votes {
		if v.RoomID == vote.RoomID && v.Round == vote.Round && v.JudgeID == vote.JudgeID {
			return game.ErrAlreadySubmitted
		}
	}
	if err := s.guardRoom(vote.RoomID, guard); err != nil {
		return err
	}
	c := *vote
	s.votes = append(s.votes, &c)
	return nil
}

func (s *MemoryStore) ListVotes(_ context.Context, roomID string, round int) ([]models.Vote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Vote
	for _, v := range s.votes {
		if v.RoomID == roomID && v.Round == round {
			out = append(out, *v)
		}
	}
	return out, nil
}

func (s *MemoryStore) ResolveRound(_ context.Context, roomID string, round int, fn RoundFunc) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[roomID]
	if !ok {
		return false, fmt.Errorf("room %s: %w", roomID, game.ErrNotFound)
	}
	if r.Phase != game.PhaseReveal || r.Round != round || r.ResolvedRound >= round {
		return false, nil
	}
	hot, err := s.findPlayer(r.HotSeatPlayerID)
	if err != nil {
		return false, err
	}
	snapshot := *hot
	effects, err := fn(&snapshot)
	if err != nil {
		return false, err
	}

	// Nothing below can fail, so the claim and the effects land together.
	r.ResolvedRound = round
	hot.CurrentRung = effects.HotSeat.CurrentRung
	hot.LastSafeHaven = max(hot.LastSafeHaven, effects.HotSeat.LastSafeHaven)
	hot.Eliminated = hot.Eliminated || effects.HotSeat.Eliminated
	for _, j := range effects.Judges {
		judge, err := s.findPlayer(j.PlayerID)
		if err != nil {
			continue
		}
		judge.TotalVotes++
		if j.CorrectRead {
			judge.CorrectReads++
		}
	}
	if effects.Outcome != nil {
		c := *effects.Outcome
		s.outcomes = append(s.outcomes, &c)
	}
	return true, nil
}

func (s *MemoryStore) ListRoundOutcomes(_ context.Context, roomID string) ([]models.RoundOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RoundOutcome
	for _, o := range s.outcomes {
		if o.RoomID == roomID {
			out = append(out, *o)
		}
	}
	slices.SortFunc(out, func(a, b models.RoundOutcome) int { return a.Round - b.Round })
	return out, nil
}
