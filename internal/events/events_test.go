package events

import (
	"testing"
	"time"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(nil)
	defer sub.Close()

	bus.Publish(Event{Topic: TopicDocumentCreated, Scope: "s1", Payload: "d1"})

	select {
	case e := <-sub.Events():
		if e.Topic != TopicDocumentCreated || e.Payload != "d1" {
			t.Fatalf("unexpected event: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(nil)
	defer sub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberQueueSize+10; i++ {
			bus.Publish(Event{Topic: TopicTodoCreated, Scope: "s1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a full subscriber queue")
	}

	if bus.Stats().Dropped == 0 {
		t.Fatal("expected some events to be dropped once the queue filled")
	}
}

func TestFilterRestrictsDelivery(t *testing.T) {
	bus := New()
	sub := bus.Subscribe(func(e Event) bool { return e.Scope == "wanted" })
	defer sub.Close()

	bus.Publish(Event{Topic: TopicDocumentCreated, Scope: "other"})
	bus.Publish(Event{Topic: TopicDocumentCreated, Scope: "wanted"})

	select {
	case e := <-sub.Events():
		if e.Scope != "wanted" {
			t.Fatalf("filter leaked event from wrong scope: %+v", e)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for filtered event")
	}

	select {
	case e := <-sub.Events():
		t.Fatalf("unexpected second event: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
