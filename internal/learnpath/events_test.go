package learnpath_test

import (
	"testing"
	"time"

	"github.com/prepdesk/prepdesk/internal/learnpath"
)

func TestMemoryEventLog(t *testing.T) {
	log := learnpath.NewMemoryEventLog()

	err := log.LogEvent(learnpath.Event{
		Type:    "topic_toggled",
		PathID:  "LP1",
		TopicID: "t1",
	})
	if err != nil {
		t.Fatalf("LogEvent() error = %v", err)
	}

	events := log.Events()
	if len(events) != 1 {
		t.Fatalf("event count = %d, want 1", len(events))
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt should be stamped")
	}
}

func TestMemoryEventLog_RequiresType(t *testing.T) {
	log := learnpath.NewMemoryEventLog()

	if err := log.LogEvent(learnpath.Event{PathID: "LP1"}); err == nil {
		t.Fatal("LogEvent() should reject an event without a type")
	}
}

func TestBroadcaster_Subscribe(t *testing.T) {
	b := learnpath.NewBroadcaster()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(learnpath.Event{Type: "topic_toggled", PathID: "LP1"})

	select {
	case event := <-ch:
		if event.Type != "topic_toggled" {
			t.Errorf("Type = %q, want %q", event.Type, "topic_toggled")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcaster_CancelClosesChannel(t *testing.T) {
	b := learnpath.NewBroadcaster()
	ch, cancel := b.Subscribe()
	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}

	// Publishing after cancel must not panic.
	b.Publish(learnpath.Event{Type: "topic_toggled", PathID: "LP1"})
}

func TestBroadcaster_SlowSubscriberDropsEvents(t *testing.T) {
	b := learnpath.NewBroadcaster()
	_, cancel := b.Subscribe()
	defer cancel()

	// Far more events than the subscription buffer; must not block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(learnpath.Event{Type: "topic_toggled", PathID: "LP1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}
