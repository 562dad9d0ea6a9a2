package server

import (
	"context"
	"sync"
	"time"

	"github.com/jokebattles/backend/internal/arena"
)

const (
	RealtimeEventScoresChanged = "scores-changed"
	realtimeEventHeartbeat     = "heartbeat"
)

// ScoresMessage carries a leaderboard snapshot to stream subscribers.
type ScoresMessage struct {
	EventType string
	Entries   []arena.LeaderboardEntry
	Timestamp time.Time
}

// ScoreDispatcher fans leaderboard updates out to every open stream. The
// leaderboard is global, so every subscriber receives every update.
type ScoreDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*scoreSubscriber
	nextID      int64
	bufferSize  int
}

type scoreSubscriber struct {
	id     int64
	stream chan ScoresMessage
}

func NewScoreDispatcher() *ScoreDispatcher {
	return &ScoreDispatcher{
		subscribers: make(map[int64]*scoreSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that is torn down when ctx is cancelled. The
// returned cleanup is idempotent and safe to call alongside the cancellation.
func (d *ScoreDispatcher) Subscribe(ctx context.Context) (<-chan ScoresMessage, func()) {
	subscriber := &scoreSubscriber{
		id:     d.nextSequence(),
		stream: make(chan ScoresMessage, d.bufferSize),
	}
	d.registerSubscriber(subscriber)
	cleanup := func() {
		d.unregisterSubscriber(subscriber.id)
	}
	go func() {
		<-ctx.Done()
		cleanup()
	}()
	return subscriber.stream, cleanup
}

// Publish delivers the message to every subscriber. Slow consumers are
// skipped rather than blocking the voting path.
func (d *ScoreDispatcher) Publish(message ScoresMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*scoreSubscriber, 0, len(d.subscribers))
	for _, subscriber := range d.subscribers {
		copies = append(copies, subscriber)
	}
	d.mu.RUnlock()
	for _, subscriber := range copies {
		select {
		case subscriber.stream <- message:
		default:
		}
	}
}

// PublishScores implements arena.ScorePublisher.
func (d *ScoreDispatcher) PublishScores(entries []arena.LeaderboardEntry) {
	d.Publish(ScoresMessage{
		EventType: RealtimeEventScoresChanged,
		Entries:   entries,
		Timestamp: time.Now().UTC(),
	})
}

func (d *ScoreDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *ScoreDispatcher) registerSubscriber(subscriber *scoreSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *ScoreDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}

func (d *ScoreDispatcher) subscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subscribers)
}
