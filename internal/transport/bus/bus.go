// Package bus is an in-process topic bus. Slow subscribers lose the newest
// messages instead of stalling the publisher.
package bus

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/surgisim/fusion/internal/transport"
)

var (
	ErrSubscriberExists   = errors.New("bus: subscriber already exists")
	ErrSubscriberNotFound = errors.New("bus: subscriber not found")
	ErrNilChannel         = errors.New("bus: nil channel provided")
)

type subscriber struct {
	ch      chan<- []byte
	sent    atomic.Uint64
	dropped atomic.Uint64
}

// Bus fans messages out to every subscriber of a topic.
type Bus struct {
	mu        sync.RWMutex
	topics    map[string]map[string]*subscriber
	published atomic.Uint64
	closed    bool
}

func New() *Bus {
	return &Bus{topics: make(map[string]map[string]*subscriber)}
}

// Subscribe registers ch under id on topic.
func (b *Bus) Subscribe(topic, id string, ch chan<- []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return transport.ErrClosed
	}
	if ch == nil {
		return ErrNilChannel
	}
	subs, ok := b.topics[topic]
	if !ok {
		subs = make(map[string]*subscriber)
		b.topics[topic] = subs
	}
	if _, exists := subs[id]; exists {
		return ErrSubscriberExists
	}
	subs[id] = &subscriber{ch: ch}
	return nil
}

func (b *Bus) Unsubscribe(topic, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.topics[topic][id]; !ok {
		return ErrSubscriberNotFound
	}
	delete(b.topics[topic], id)
	return nil
}

// Publish copies data to every subscriber of topic.
func (b *Bus) Publish(topic string, data []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return transport.ErrClosed
	}
	b.published.Add(1)

	for _, s := range b.topics[topic] {
		msg := make([]byte, len(data))
		copy(msg, data)
		select {
		case s.ch <- msg:
			s.sent.Add(1)
		default:
			s.dropped.Add(1)
		}
	}
	return nil
}

// Published returns the number of messages accepted by the bus.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

func (b *Bus) Stats(topic, id string) (transport.Stats, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s, ok := b.topics[topic][id]
	if !ok {
		return transport.Stats{}, ErrSubscriberNotFound
	}
	return transport.Stats{Sent: s.sent.Load(), Dropped: s.dropped.Load()}, nil
}

// Close drops every subscriber. Subscriber channels are owned by their
// callers and are left open.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	b.topics = nil
}

// Publisher binds the bus to one topic.
func (b *Bus) Publisher(topic string) *TopicPublisher {
	return &TopicPublisher{bus: b, topic: topic}
}

// TopicPublisher implements transport.Publisher for a single topic.
type TopicPublisher struct {
	bus   *Bus
	topic string
}

var _ transport.Publisher = (*TopicPublisher)(nil)

func (p *TopicPublisher) Send(data []byte) (int, error) {
	if err := p.bus.Publish(p.topic, data); err != nil {
		return 0, err
	}
	return len(data), nil
}

// Close closes the underlying bus.
func (p *TopicPublisher) Close() error {
	p.bus.Close()
	return nil
}
