// Package events implements the process-wide event bus: asynchronous,
// best-effort fan-out of typed events to any number of in-process
// subscribers, each with a bounded queue so a slow subscriber drops
// events with a warning rather than back-pressuring the producer.
package events

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// Topic names a category of event. Concrete topics are formed as
// "<family>:<verb>", e.g. "document:created",
// "resource:lock.changed".
type Topic string

const (
	TopicDocumentCreated Topic = "document:created"
	TopicDocumentUpdated Topic = "document:updated"
	TopicDocumentDeleted Topic = "document:deleted"
	TopicTodoCreated     Topic = "todo:created"
	TopicTodoUpdated     Topic = "todo:updated"
	TopicTodoDeleted     Topic = "todo:deleted"
	TopicScheduleCreated Topic = "schedule:created"
	TopicScheduleUpdated Topic = "schedule:updated"
	TopicScheduleDeleted Topic = "schedule:deleted"
	TopicLockChanged     Topic = "resource:lock.changed"
	TopicWorkflowStarted Topic = "workflow:started"
	TopicWorkflowStep    Topic = "workflow:step.changed"
	TopicWorkflowFailed  Topic = "workflow:step.failed"
	TopicWorkflowDone    Topic = "workflow:completed"
	TopicSessionCreated  Topic = "session:created"
	TopicSessionDeleted  Topic = "session:deleted"
	TopicCronCreated     Topic = "cron:created"
	TopicCronUpdated     Topic = "cron:updated"
	TopicCronDeleted     Topic = "cron:deleted"
	TopicCronFired       Topic = "cron:fired"
)

// Event is one fan-out message: a topic plus an arbitrary payload, scoped
// to one scope root so multi-scope daemons never cross-deliver.
type Event struct {
	Topic   Topic
	Scope   string
	Payload any
}

// subscriberQueueSize bounds each subscriber's delivery channel. A full
// channel means the subscriber is behind; the event is dropped rather
// than blocking the producer.
const subscriberQueueSize = 256

type subscriber struct {
	id     uint64
	ch     chan Event
	filter func(Event) bool
}

// Bus is the process-wide event bus. One instance is constructed at
// startup and shared by every ScopeStore.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uint64]*subscriber
	nextID      atomic.Uint64

	delivered atomic.Int64
	dropped   atomic.Int64
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{subscribers: make(map[uint64]*subscriber)}
}

// Subscription is a live subscriber handle. Callers must range over
// Events() (or drain it in a goroutine) and call Close when done.
type Subscription struct {
	bus *Bus
	id  uint64
	ch  chan Event
}

// Events returns the channel events are delivered on.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Close unregisters the subscription and closes its channel.
func (s *Subscription) Close() {
	s.bus.mu.Lock()
	delete(s.bus.subscribers, s.id)
	s.bus.mu.Unlock()
	close(s.ch)
}

// Subscribe registers a new subscriber. If filter is non-nil, only
// events for which it returns true are delivered.
func (b *Bus) Subscribe(filter func(Event) bool) *Subscription {
	id := b.nextID.Add(1)
	sub := &subscriber{id: id, ch: make(chan Event, subscriberQueueSize), filter: filter}

	b.mu.Lock()
	b.subscribers[id] = sub
	b.mu.Unlock()

	return &Subscription{bus: b, id: id, ch: sub.ch}
}

// Publish fans e out to every matching subscriber. Delivery is
// asynchronous: Publish itself never blocks on a subscriber, and a
// subscriber whose queue is full drops the event and a warning is
// printed — there is no synchronous guarantee of delivery.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, sub := range b.subscribers {
		if sub.filter != nil && !sub.filter(e) {
			continue
		}
		select {
		case sub.ch <- e:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
			fmt.Fprintf(os.Stderr, "events: dropping %s for slow subscriber %d\n", e.Topic, sub.id)
		}
	}
}

// Stats reports cumulative delivery counters, for internal/rpc's
// OpMetrics handler.
type Stats struct {
	Delivered int64
	Dropped   int64
}

// Stats returns a snapshot of cumulative delivery counters.
func (b *Bus) Stats() Stats {
	return Stats{Delivered: b.delivered.Load(), Dropped: b.dropped.Load()}
}

// SubscriberCount returns the number of currently registered subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers)
}
