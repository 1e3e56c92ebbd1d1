package services

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names the resource family an event is about.
type Topic string

const (
	TopicSession Topic = "session"
	TopicEntries Topic = "entries"
	TopicFoods   Topic = "foods"
	TopicMeals   Topic = "meals"
	TopicRecipes Topic = "recipes"
	TopicUser    Topic = "user"
)

// Action is what happened to the resource.
type Action string

const (
	ActionCreated  Action = "created"
	ActionUpdated  Action = "updated"
	ActionDeleted  Action = "deleted"
	ActionLogin    Action = "login"
	ActionLogout   Action = "logout"
	ActionImported Action = "imported"
)

// Event announces a server-side change. Views re-fetch the resources they
// show when a matching event arrives instead of being told by the caller.
type Event struct {
	Topic  Topic  `json:"topic"`
	Action Action `json:"action"`
	ID     int64  `json:"id,omitempty"`
	Date   string `json:"date,omitempty"` // diary date for entry events
	Remote bool   `json:"-"`              // arrived through the live feed
}

const subscriberBuffer = 16

type subscriber struct {
	ch     chan Event
	topics map[Topic]struct{}
}

func (s *subscriber) wants(t Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// RefreshBus fans change events out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full already has a refresh pending,
// so the event is dropped for it.
type RefreshBus struct {
	mu     sync.RWMutex
	subs   map[*subscriber]struct{}
	log    *zap.Logger
	closed bool
}

func NewRefreshBus(log *zap.Logger) *RefreshBus {
	if log == nil {
		log = zap.NewNop()
	}
	return &RefreshBus{subs: make(map[*subscriber]struct{}), log: log}
}

// Subscribe returns a channel of events for the given topics (all topics
// when none are given) and a func that unsubscribes and closes it.
func (b *RefreshBus) Subscribe(topics ...Topic) (<-chan Event, func()) {
	s := &subscriber{ch: make(chan Event, subscriberBuffer), topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return s.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[s]; ok {
				delete(b.subs, s)
				close(s.ch)
			}
			b.mu.Unlock()
		})
	}
}

// Publish delivers e to every interested subscriber. Safe on a nil bus.
func (b *RefreshBus) Publish(e Event) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		if !s.wants(e.Topic) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			b.log.Debug("refresh event coalesced", zap.String("topic", string(e.Topic)))
		}
	}
}

// Close closes every subscriber channel. Later subscriptions get a closed
// channel.
func (b *RefreshBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}
