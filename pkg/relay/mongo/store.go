// Package mongo stores relay records in MongoDB. A lease is claimed one
// document at a time with FindOneAndUpdate, which is atomic per document.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store implements relay.Store on one collection. Insert must run inside a
// session transaction started by the mongo persistence.TxManager.
type Store struct {
	coll *mongodriver.Collection
}

var _ relay.Store = (*Store)(nil)

func NewStore(coll *mongodriver.Collection) *Store {
	return &Store{coll: coll}
}

// CollectionName maps a relay table name to a collection name: the schema
// prefix is dropped, so "app.outbox_messages" becomes "outbox_messages".
func CollectionName(table string) string {
	if i := strings.LastIndex(table, "."); i >= 0 {
		return table[i+1:]
	}
	return table
}

func (s *Store) Insert(ctx context.Context, rec *relay.Record) error {
	if mongodriver.SessionFromContext(ctx) == nil {
		return relay.ErrNoTransaction
	}

	if _, err := s.coll.InsertOne(ctx, toDocument(rec)); err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", relay.ErrDuplicateRecord, rec.ID)
		}
		return err
	}
	return nil
}

func claimFilter(req relay.AcquireRequest) bson.M {
	return bson.M{"$or": []bson.M{
		{"status": string(relay.StatusPending), "availableAt": bson.M{"$lte": req.Now}},
		{"status": string(relay.StatusLeased), "leaseExpiresAt": bson.M{"$lt": req.Now}},
	}}
}

// Acquire claims documents one by one. Each claim re-checks the filter
// atomically, so concurrent workers never take the same live lease.
func (s *Store) Acquire(ctx context.Context, req relay.AcquireRequest) ([]*relay.Record, error) {
	filter := claimFilter(req)
	update := bson.M{"$set": bson.M{
		"status":         string(relay.StatusLeased),
		"leaseOwner":     req.Owner,
		"leaseExpiresAt": req.LeaseUntil,
	}}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "availableAt", Value: 1}, {Key: "createdAt", Value: 1}}).
		SetReturnDocument(options.Before)

	records := make([]*relay.Record, 0, req.Limit)
	for len(records) < req.Limit {
		var before document
		err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			break
		}
		if err != nil {
			return records, err
		}

		rec, err := before.toRecord()
		if err != nil {
			return records, err
		}
		if rec.Status == relay.StatusLeased {
			rec.ReclaimedFrom = rec.LeaseOwner
		}
		leaseUntil := req.LeaseUntil.UTC()
		rec.Status = relay.StatusLeased
		rec.LeaseOwner = req.Owner
		rec.LeaseExpiresAt = &leaseUntil
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) Apply(ctx context.Context, t relay.Transition) error {
	set := bson.M{
		"status":      string(t.To),
		"attempts":    t.Attempts,
		"availableAt": t.AvailableAt,
		"lastError":   t.LastError,
	}
	unset := bson.M{"leaseOwner": "", "leaseExpiresAt": ""}
	if t.ProcessedAt != nil {
		set["processedAt"] = *t.ProcessedAt
	} else {
		unset["processedAt"] = ""
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": t.ID.String(), "status": string(relay.StatusLeased), "leaseOwner": t.Owner},
		bson.M{"$set": set, "$unset": unset},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return relay.ErrLeaseExpired
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*relay.Record, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return nil, relay.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toRecord()
}

func (s *Store) ListByStatus(ctx context.Context, status relay.Status, limit int) ([]*relay.Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, bson.M{"status": string(status)}, opts)
	if err != nil {
		return nil, err
	}

	var docs []document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	records := make([]*relay.Record, 0, len(docs))
	for _, doc := range docs {
		rec, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) Purge(ctx context.Context) error {
	_, err := s.coll.DeleteMany(ctx, bson.M{})
	return err
}
