package learnpath

import (
	"fmt"
	"sync"
	"time"
)

// Event records a progress-affecting action for analytics and live feeds.
type Event struct {
	Type      string    `json:"type"` // "path_created", "path_assigned", "topic_toggled"
	StudentID string    `json:"student_id,omitempty"`
	PathID    string    `json:"path_id"`
	Category  string    `json:"category,omitempty"`
	TopicID   string    `json:"topic_id,omitempty"`
	Completed bool      `json:"completed,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EventLog defines event recording behavior.
type EventLog interface {
	LogEvent(event Event) error
}

// NopEventLog ignores all events.
type NopEventLog struct{}

func (NopEventLog) LogEvent(Event) error {
	return nil
}

// MemoryEventLog stores events in memory for tests and the dev setup.
type MemoryEventLog struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLog() *MemoryEventLog {
	return &MemoryEventLog{
		events: []Event{},
	}
}

func (l *MemoryEventLog) LogEvent(event Event) error {
	if event.Type == "" {
		return fmt.Errorf("event type is required")
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()

	return nil
}

func (l *MemoryEventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event{}, l.events...)
}

// Broadcaster fans events out to live subscribers (the websocket watch
// endpoint). Slow subscribers drop events rather than block mutations.
type Broadcaster struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[int]chan Event),
	}
}

// Subscribe returns a channel of future events and a cancel func that must
// be called to release the subscription.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if sub, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with buffer room.
func (b *Broadcaster) Publish(event Event) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- event:
		default:
		}
	}
}
