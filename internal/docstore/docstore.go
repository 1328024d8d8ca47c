// Package docstore provides the remote document collections and change notifiers behind the authenticated playlist store.
//
// [Collection] is the narrow set of per-document calls the application needs
// (no transactions, no batches). [MongoCollection] backs it with MongoDB and
// [MemoryCollection] with an in-process map for development and tests.
//
// [Notifier] pushes "something changed" signals for a topic. Subscribers
// re-query the collection on every signal, so notifications carry no payload
// and bursts may be coalesced.
package docstore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrNoDocument is returned when a filter matches nothing.
var ErrNoDocument = errors.New("no matching document")

// Collection is a remote document collection.
//
// Filters are equality matches on top-level fields. Documents must carry a string "_id".
type Collection interface {
	Name() string
	Insert(ctx context.Context, doc any) error
	// Patch sets fields on the first document matching filter.
	Patch(ctx context.Context, filter, fields bson.M) error
	// Remove deletes the first document matching filter.
	Remove(ctx context.Context, filter bson.M) error
	FindOne(ctx context.Context, filter bson.M, out any) error
	// Find decodes all matches, ordered by sort, into the slice pointed to by out.
	Find(ctx context.Context, filter bson.M, sort bson.D, out any) error
	// Upsert creates the document with id from setOnInsert and set, or applies set to the existing one.
	Upsert(ctx context.Context, id string, setOnInsert, set bson.M) error
}

// NewID returns a store-assigned document id.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// Subscription receives change signals for one topic.
//
// C is closed when the underlying connection is lost or Close is called.
type Subscription interface {
	C() <-chan struct{}
	Close() error
}

// Notifier publishes and delivers change signals.
type Notifier interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(ctx context.Context, topic string) (Subscription, error)
}

// signal performs a non-blocking send so pending signals coalesce.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
