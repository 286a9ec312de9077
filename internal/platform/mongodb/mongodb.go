// Package mongodb opens the MongoDB client used by the comment store.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"
)

const defaultDatabase = "comments"

// Options configures Open.
type Options struct {
	URI         string
	MaxPoolSize uint64 // 0 keeps the driver default
}

// Open connects to MongoDB, pings the primary and returns the client with
// the database named in the URI path ("comments" when the path is empty).
func Open(ctx context.Context, opts Options) (*mongo.Client, *mongo.Database, error) {
	uri := strings.TrimSpace(opts.URI)
	if uri == "" {
		return nil, nil, errors.New("MONGODB_CONNECTION_STRING is required")
	}
	name, err := DatabaseName(uri)
	if err != nil {
		return nil, nil, err
	}

	co := options.Client().ApplyURI(uri).SetServerSelectionTimeout(5 * time.Second)
	if opts.MaxPoolSize > 0 {
		co.SetMaxPoolSize(opts.MaxPoolSize)
	}
	client, err := mongo.Connect(ctx, co)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, client.Database(name), nil
}

// DatabaseName returns the database named in uri's path, or the default.
func DatabaseName(uri string) (string, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return "", fmt.Errorf("parse mongo uri: %w", err)
	}
	if cs.Database == "" {
		return defaultDatabase, nil
	}
	return cs.Database, nil
}
