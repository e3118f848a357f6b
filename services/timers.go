package services

import (
	"context"
	"log"
	"sync"
	"time"

	"hotseat/game"

	"github.com/gin-gonic/gin"
)

// TimerKey identifies the phase a deadline belongs to.
type TimerKey struct {
	RoomID string
	Phase  game.Phase
	Round  int
}

func phaseOrder(p game.Phase) int {
	switch p {
	case game.PhaseQuestion:
		return 1
	case game.PhaseStory:
		return 2
	case game.PhaseVote:
		return 3
	case game.PhaseReveal:
		return 4
	case game.PhaseGameEnd:
		return 5
	}
	return 0
}

// supersedes reports whether k belongs to a later point of the match than o.
func (k TimerKey) supersedes(o TimerKey) bool {
	if k.Round != o.Round {
		return k.Round > o.Round
	}
	return phaseOrder(k.Phase) > phaseOrder(o.Phase)
}

// Scheduler runs phase deadlines. A room has at most one pending deadline;
// scheduling a later phase replaces the earlier one and scheduling an
// earlier or equal one is ignored.
type Scheduler interface {
	Schedule(key TimerKey, after time.Duration, fire func())
	Stop(roomID string)
}

type phaseTimer struct {
	key       TimerKey
	startedAt time.Time
	duration  time.Duration
	cancel    context.CancelFunc
}

// PhaseTimers is the in-process Scheduler. Each deadline runs in its own
// goroutine and broadcasts the remaining time every tick.
type PhaseTimers struct {
	mu       sync.Mutex
	timers   map[string]*phaseTimer
	notifier Notifier
	tick     time.Duration
}

func NewPhaseTimers(notifier Notifier, tick time.Duration) *PhaseTimers {
	return &PhaseTimers{
		timers:   make(map[string]*phaseTimer),
		notifier: notifier,
		tick:     tick,
	}
}

func (t *PhaseTimers) Schedule(key TimerKey, after time.Duration, fire func()) {
	t.mu.Lock()
	if cur, ok := t.timers[key.RoomID]; ok {
		if !key.supersedes(cur.key) {
			t.mu.Unlock()
			return
		}
		cur.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), after)
	pt := &phaseTimer{key: key, startedAt: time.Now(), duration: after, cancel: cancel}
	t.timers[key.RoomID] = pt
	t.mu.Unlock()

	log.Printf("[PhaseTimers] room %s: %s round %d deadline in %v", key.RoomID, key.Phase, key.Round, after)
	go t.run(ctx, pt, fire)
}

func (t *PhaseTimers) run(ctx context.Context, pt *phaseTimer, fire func()) {
	var tick <-chan time.Time
	if t.tick > 0 && t.notifier != nil {
		ticker := time.NewTicker(t.tick)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-tick:
			t.broadcastRemaining(pt)
		case <-ctx.Done():
			t.mu.Lock()
			active := t.timers[pt.key.RoomID] == pt
			if active {
				delete(t.timers, pt.key.RoomID)
			}
			t.mu.Unlock()

			if active && ctx.Err() == context.DeadlineExceeded {
				fire()
			}
			return
		}
	}
}

func (t *PhaseTimers) broadcastRemaining(pt *phaseTimer) {
	remaining := max(pt.duration-time.Since(pt.startedAt), 0)
	err := t.notifier.Publish(context.Background(), Event{
		Type:   EventTimerUpdate,
		RoomID: pt.key.RoomID,
		Payload: gin.H{
			"phase":        pt.key.Phase,
			"round":        pt.key.Round,
			"time_left":    int((remaining + time.Second - 1) / time.Second),
			"time_left_ms": remaining.Milliseconds(),
		},
	})
	if err != nil {
		log.Printf("[PhaseTimers] room %s: %v", pt.key.RoomID, err)
	}
}

// Stop drops the room's pending deadline without firing it.
func (t *PhaseTimers) Stop(roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.timers[roomID]; ok {
		cur.cancel()
		delete(t.timers, roomID)
	}
}

// Pending returns the key of the room's pending deadline.
func (t *PhaseTimers) Pending(roomID string) (TimerKey, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cur, ok := t.timers[roomID]
	if !ok {
		return TimerKey{}, false
	}
	return cur.key, true
}

// Close stops every pending deadline.
func (t *PhaseTimers) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cur := range t.timers {
		cur.cancel()
		delete(t.timers, id)
	}
}
