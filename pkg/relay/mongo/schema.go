package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the indexes used by Acquire and ListByStatus.
// Idempotent.
func EnsureIndexes(ctx context.Context, coll *mongodriver.Collection) error {
	name := coll.Name()
	indexes := []mongodriver.IndexModel{
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "availableAt", Value: 1},
				{Key: "createdAt", Value: 1},
			},
			Options: options.Index().SetName(name + "_status_availableAt"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "leaseExpiresAt", Value: 1},
			},
			Options: options.Index().SetName(name + "_status_leaseExpiresAt"),
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "createdAt", Value: 1},
				{Key: "_id", Value: 1},
			},
			Options: options.Index().SetName(name + "_status_createdAt"),
		},
	}

	if _, err := coll.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes on %s: %w", name, err)
	}
	return nil
}
