package app

import (
	"sync"
	"time"
)

// LeaderboardUpdate tells subscribers that rankings changed. TopicID is empty for attempts on
// generated (inline) topics, which only affect the global board.
type LeaderboardUpdate struct {
	TopicID string    `json:"topicId,omitempty"`
	At      time.Time `json:"at"`
}

// LeaderboardFeed fans out change notifications to websocket clients.
type LeaderboardFeed struct {
	now func() time.Time

	mu          sync.Mutex
	subscribers map[chan LeaderboardUpdate]struct{}
}

func NewLeaderboardFeed() *LeaderboardFeed {
	return &LeaderboardFeed{
		now:         time.Now,
		subscribers: make(map[chan LeaderboardUpdate]struct{}),
	}
}

// Subscribe returns a channel of updates. The caller must invoke cancel to avoid leaks.
func (f *LeaderboardFeed) Subscribe() (<-chan LeaderboardUpdate, func()) {
	ch := make(chan LeaderboardUpdate, 8)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish notifies every subscriber without blocking on slow ones.
func (f *LeaderboardFeed) Publish(topicID string) {
	update := LeaderboardUpdate{TopicID: topicID, At: f.now()}

	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- update:
		default:
			// drop the oldest pending update so the newest one always lands
			select {
			case <-ch:
			default:
			}
			ch <- update
		}
	}
}

// Subscribers reports the number of live subscriptions.
func (f *LeaderboardFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}
