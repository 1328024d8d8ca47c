package docstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisChannelPrefix = "tubetrack:"

// RedisNotifier delivers change signals over Redis pub/sub, so every process sharing the
// remote store sees writes made by the others.
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier wraps rdb.
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// NewRedisClient creates a client and verifies the server is reachable.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string) error {
	if err := n.rdb.Publish(ctx, redisChannelPrefix+topic, "changed").Err(); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	ps := n.rdb.Subscribe(ctx, redisChannelPrefix+topic)
	// Receive blocks until the server confirms, so no publish after Subscribe returns is missed.
	if _, err := ps.Receive(ctx); err != nil {
		ps.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	s := &redisSubscription{ps: ps, ch: make(chan struct{}, 1), done: make(chan struct{})}
	go s.run(ps.Channel())
	return s, nil
}

type redisSubscription struct {
	ps   *redis.PubSub
	ch   chan struct{}
	done chan struct{}
	once sync.Once
}

func (s *redisSubscription) run(msgs <-chan *redis.Message) {
	defer close(s.ch)
	for {
		select {
		case _, ok := <-msgs:
			if !ok {
				return
			}
			signal(s.ch)
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) C() <-chan struct{} { return s.ch }

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.ps.Close()
	})
	return err
}
