// Package pubsub broadcasts contest state-change events to websocket
// subscribers. Topics are contest slugs.
package pubsub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// maxCached bounds the per-topic replay cache so a long contest cannot
// exhaust memory.
const maxCached = 256

// Event is one state-change notification for a contest.
type Event struct {
	Stream string `json:"stream"`
	Data   string `json:"data"`
}

// subscriber owns one delivery channel. quit stops an in-flight history
// replay; replayDone signals that the replay goroutine no longer touches ch,
// so ch may only be closed after replayDone.
type subscriber struct {
	ch         chan []byte
	quit       chan struct{}
	replayDone chan struct{}
}

// Broker is an in-memory pub/sub hub. New subscribers first receive the
// topic's cached history, then live events.
type Broker struct {
	mu          sync.RWMutex
	subscribers map[string][]*subscriber
	cache       map[string][][]byte
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[string][]*subscriber),
		cache:       make(map[string][][]byte),
	}
}

// Subscribe registers a subscriber for a topic and returns its channel plus
// an unsubscribe func. The cached history is replayed asynchronously so the
// broker is never blocked on a slow consumer; a subscriber that leaves
// mid-replay is torn down cleanly. Unsubscribing twice is a no-op.
func (b *Broker) Subscribe(topic string) (<-chan []byte, func()) {
	sub := &subscriber{
		ch:         make(chan []byte, 128),
		quit:       make(chan struct{}),
		replayDone: make(chan struct{}),
	}

	b.mu.Lock()
	history := make([][]byte, len(b.cache[topic]))
	copy(history, b.cache[topic])
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	go func() {
		defer close(sub.replayDone)
		for _, msg := range history {
			select {
			case sub.ch <- msg:
			case <-sub.quit:
				return
			}
		}
	}()

	unsubscribe := func() {
		if !b.detach(topic, sub) {
			return
		}
		sub.teardown()
		zap.S().Debugf("unsubscribed from topic %s", topic)
	}

	zap.S().Debugf("new subscription to topic %s, replaying %d cached events", topic, len(history))
	return sub.ch, unsubscribe
}

// detach removes a subscriber from a topic under the lock, so Publish can no
// longer reach its channel. Reports whether the subscriber was still
// attached.
func (b *Broker) detach(topic string, sub *subscriber) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subscribers[topic]
	for i, s := range subs {
		if s == sub {
			b.subscribers[topic] = append(subs[:i], subs[i+1:]...)
			return true
		}
	}
	return false
}

// teardown stops the replay, waits for it to exit, then closes the delivery
// channel. Must only run after the subscriber is detached.
func (s *subscriber) teardown() {
	close(s.quit)
	<-s.replayDone
	close(s.ch)
}

// Publish fans an event out to a topic's subscribers and appends it to the
// replay cache. Subscribers with a full channel miss the event rather than
// blocking the publisher.
func (b *Broker) Publish(topic string, msg []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.cache[topic] = append(b.cache[topic], msg)
	if len(b.cache[topic]) > maxCached {
		b.cache[topic] = b.cache[topic][len(b.cache[topic])-maxCached:]
	}

	for _, sub := range b.subscribers[topic] {
		select {
		case sub.ch <- msg:
		default:
		}
	}
}

// CloseTopic drops a topic: all subscriber channels close and the cache is
// freed.
func (b *Broker) CloseTopic(topic string) {
	b.mu.Lock()
	subs := b.subscribers[topic]
	delete(b.subscribers, topic)
	delete(b.cache, topic)
	b.mu.Unlock()

	for _, sub := range subs {
		sub.teardown()
	}
	zap.S().Infof("closed pubsub topic %s", topic)
}

// FormatEvent encodes a stream/data pair into the wire envelope.
func FormatEvent(stream, data string) []byte {
	msg, err := json.Marshal(Event{Stream: stream, Data: data})
	if err != nil {
		return []byte(`{"stream":"error","data":"json format error"}`)
	}
	return msg
}
