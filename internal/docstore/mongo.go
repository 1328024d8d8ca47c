package docstore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// MongoCollection implements [Collection] over a MongoDB collection.
type MongoCollection struct {
	coll *mongo.Collection
}

// NewMongoCollection wraps coll.
func NewMongoCollection(coll *mongo.Collection) *MongoCollection {
	return &MongoCollection{coll: coll}
}

// ConnectMongo opens a client and verifies the deployment is reachable.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

func (c *MongoCollection) Name() string { return c.coll.Name() }

func (c *MongoCollection) Insert(ctx context.Context, doc any) error {
	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection) Patch(ctx context.Context, filter, fields bson.M) error {
	res, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", c.coll.Name(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNoDocument
	}
	return nil
}

func (c *MongoCollection) Remove(ctx context.Context, filter bson.M) error {
	res, err := c.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNoDocument
	}
	return nil
}

func (c *MongoCollection) FindOne(ctx context.Context, filter bson.M, out any) error {
	err := c.coll.FindOne(ctx, filter).Decode(out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocument
	}
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection) Find(ctx context.Context, filter bson.M, sort bson.D, out any) error {
	opts := options.Find()
	if len(sort) > 0 {
		opts.SetSort(sort)
	}

	cursor, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", c.coll.Name(), err)
	}
	if err := cursor.All(ctx, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", c.coll.Name(), err)
	}
	return nil
}

func (c *MongoCollection) Upsert(ctx context.Context, id string, setOnInsert, set bson.M) error {
	update := bson.M{}
	if len(setOnInsert) > 0 {
		update["$setOnInsert"] = setOnInsert
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(update) == 0 {
		return nil
	}

	opts := options.UpdateOne().SetUpsert(true)
	if _, err := c.coll.UpdateOne(ctx, bson.M{"_id": id}, update, opts); err != nil {
		return fmt.Errorf("failed to upsert %s/%s: %w", c.coll.Name(), id, err)
	}
	return nil
}
