package docstore

import (
	"context"
	"sync"
)

// MemoryNotifier fans change signals out to in-process subscribers.
type MemoryNotifier struct {
	mu   sync.Mutex
	subs map[string]map[*memorySubscription]struct{}
}

// NewMemoryNotifier creates a [MemoryNotifier].
func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string]map[*memorySubscription]struct{})}
}

func (n *MemoryNotifier) Publish(ctx context.Context, topic string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	for s := range n.subs[topic] {
		signal(s.ch)
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s := &memorySubscription{n: n, topic: topic, ch: make(chan struct{}, 1)}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[*memorySubscription]struct{})
	}
	n.subs[topic][s] = struct{}{}
	return s, nil
}

// Disconnect drops every subscription on topic as if the connection was lost.
func (n *MemoryNotifier) Disconnect(topic string) {
	n.mu.Lock()
	subs := n.subs[topic]
	delete(n.subs, topic)
	n.mu.Unlock()

	for s := range subs {
		s.once.Do(func() { close(s.ch) })
	}
}

// Subscribers reports the number of live subscriptions on topic.
func (n *MemoryNotifier) Subscribers(topic string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs[topic])
}

type memorySubscription struct {
	n     *MemoryNotifier
	topic string
	ch    chan struct{}
	once  sync.Once
}

func (s *memorySubscription) C() <-chan struct{} { return s.ch }

func (s *memorySubscription) Close() error {
	s.n.mu.Lock()
	delete(s.n.subs[s.topic], s)
	s.n.mu.Unlock()
	s.once.Do(func() { close(s.ch) })
	return nil
}
