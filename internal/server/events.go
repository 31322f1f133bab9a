package server

import (
	"context"
	"sync"
	"time"
)

const (
	EventDocumentAdded   = "document-added"
	EventDocumentRemoved = "document-removed"
	EventHistoryCleared  = "history-cleared"
	EventProfileSwitched = "profile-switched"
	EventProfileApplied  = "profile-applied"

	eventHeartbeat = "heartbeat"
	eventSource    = "docgen-backend"
)

// EventMessage notifies connected screens that shared state changed and a
// re-pull is warranted.
type EventMessage struct {
	EventType  string
	DocumentID string
	ProfileID  string
	Timestamp  time.Time
}

// EventDispatcher fans state-change events out to every subscribed
// client. Slow subscribers are skipped rather than blocking the writer.
type EventDispatcher struct {
	mu          sync.RWMutex
	subscribers map[int64]*eventSubscriber
	nextID      int64
	bufferSize  int
}

type eventSubscriber struct {
	id     int64
	stream chan EventMessage
}

func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		subscribers: make(map[int64]*eventSubscriber),
		bufferSize:  16,
	}
}

// Subscribe registers a stream that receives events until the context is
// cancelled or the returned cleanup runs.
func (d *EventDispatcher) Subscribe(ctx context.Context) (<-chan EventMessage, func()) {
	subscriber := &eventSubscriber{
		id:     d.nextSequence(),
		stream: make(chan EventMessage, d.bufferSize),
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

// Publish delivers the message to every subscriber with room in its buffer.
func (d *EventDispatcher) Publish(message EventMessage) {
	if message.EventType == "" {
		return
	}
	d.mu.RLock()
	copies := make([]*eventSubscriber, 0, len(d.subscribers))
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

func (d *EventDispatcher) nextSequence() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	return d.nextID
}

func (d *EventDispatcher) registerSubscriber(subscriber *eventSubscriber) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subscribers[subscriber.id] = subscriber
}

func (d *EventDispatcher) unregisterSubscriber(subscriberID int64) {
	d.mu.Lock()
	delete(d.subscribers, subscriberID)
	d.mu.Unlock()
}
