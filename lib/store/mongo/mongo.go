// Package mongo implements the store interface for MongoDB.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/balcheck/lib/store"
)

const (
	database   = "audit"
	collection = "decisions"
	timeout    = 5 * time.Second
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// CloseMongo will close a database connection. Must be called at termination time.
func (m *Mongo) CloseMongo() error {
	return m.c.Disconnect(context.Background())
}

// SaveDecision inserts a decision, or replaces the one with the same id.
func (m *Mongo) SaveDecision(d store.Decision) error {
	if d.ID == "" {
		return store.ErrNoID
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := m.c.Database(database).Collection(collection).ReplaceOne(ctx, bson.M{"_id": d.ID}, d,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("could not save decision in db: %w", err)
	}

	return nil
}

// GetDecisions returns the latest decisions for chainID, or all chains if chainID is 0.
func (m *Mongo) GetDecisions(chainID int64, limit int) ([]store.Decision, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	filter := bson.M{}
	if chainID != 0 {
		filter["chainId"] = chainID
	}

	opts := options.Find().SetSort(bson.D{{Key: "ts", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := m.c.Database(database).Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error getting mongo DB object: %w", err)
	}
	defer cur.Close(ctx)

	ds := []store.Decision{}
	if err = cur.All(ctx, &ds); err != nil {
		return nil, fmt.Errorf("error decoding decisions: %w", err)
	}

	return ds, nil
}

// DeleteDecisions deletes the decisions of chainID.
func (m *Mongo) DeleteDecisions(chainID int64) (err error) {
	_, err = m.c.Database(database).Collection(collection).DeleteMany(context.Background(), bson.M{"chainId": chainID})

	return
}
