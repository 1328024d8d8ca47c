package docstore

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoNotifier derives change signals from a MongoDB change stream. It requires a replica set.
//
// Topics are "<prefix><value>" and select documents whose field equals value.
// Deletes carry no document, so every delete wakes every subscriber.
type MongoNotifier struct {
	coll   *mongo.Collection
	prefix string
	field  string
}

// NewMongoNotifier watches coll, mapping topics with prefix onto equality on field.
func NewMongoNotifier(coll *mongo.Collection, prefix, field string) *MongoNotifier {
	return &MongoNotifier{coll: coll, prefix: prefix, field: field}
}

// Publish is a no-op: the change stream observes the write itself.
func (n *MongoNotifier) Publish(context.Context, string) error { return nil }

func (n *MongoNotifier) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	value, ok := strings.CutPrefix(topic, n.prefix)
	if !ok {
		return nil, fmt.Errorf("topic %q does not start with %q", topic, n.prefix)
	}

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"fullDocument." + n.field: value},
			bson.M{"operationType": "delete"},
		}}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cs, err := n.coll.Watch(watchCtx, pipeline, opts)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to watch %s: %w", n.coll.Name(), err)
	}

	s := &changeStreamSubscription{cs: cs, cancel: cancel, ch: make(chan struct{}, 1), stopped: make(chan struct{})}
	go s.run(watchCtx)
	return s, nil
}

type changeStreamSubscription struct {
	cs      *mongo.ChangeStream
	cancel  context.CancelFunc
	ch      chan struct{}
	stopped chan struct{}
	once    sync.Once
	err     error
}

// run owns cs; the stream is not safe for concurrent use.
func (s *changeStreamSubscription) run(ctx context.Context) {
	defer close(s.stopped)
	defer close(s.ch)
	for s.cs.Next(ctx) {
		signal(s.ch)
	}
	s.err = s.cs.Close(context.Background())
}

func (s *changeStreamSubscription) C() <-chan struct{} { return s.ch }

func (s *changeStreamSubscription) Close() error {
	s.once.Do(s.cancel)
	<-s.stopped
	return s.err
}
