package database

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// DefaultMongoDatabase is used when the connection URI names no database.
const DefaultMongoDatabase = "otpauth"

const mongoConnectTimeout = 10 * time.Second

// OpenMongo connects to MongoDB, verifies the primary is reachable and
// returns the database named by the URI path.
func OpenMongo(ctx context.Context, cfg Config) (*mongo.Database, error) {
	uri := strings.TrimSpace(cfg.URL)
	if uri == "" {
		return nil, errors.New("mongodb configuration requires a connection url")
	}

	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		name = MongoDatabaseName(uri)
	}

	connectCtx, cancel := context.WithTimeout(ctx, mongoConnectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(mongoConnectTimeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb %s: %w", redact(uri), err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb %s: %w", redact(uri), err)
	}

	return client.Database(name), nil
}

// MongoDatabaseName extracts the database from a mongodb:// URI path.
func MongoDatabaseName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return DefaultMongoDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultMongoDatabase
	}
	return name
}
