package infra

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// NewMongoClient connects to MongoDB and verifies the primary is reachable.
func NewMongoClient(ctx context.Context, uri, appName string) (*mongo.Client, error) {
	if uri == "" {
		return nil, errors.New("mongo: MONGO_URI is empty")
	}

	clientOpts := options.Client().ApplyURI(uri)
	if appName != "" {
		clientOpts.SetAppName(appName)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping primary: %w", err)
	}
	return client, nil
}
