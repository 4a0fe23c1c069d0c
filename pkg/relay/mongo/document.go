package mongo

import (
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type document struct {
	ID             string            `bson:"_id"`
	Type           string            `bson:"type"`
	Payload        []byte            `bson:"payload"`
	Headers        map[string]string `bson:"headers"`
	Status         string            `bson:"status"`
	LeaseOwner     string            `bson:"leaseOwner,omitempty"`
	LeaseExpiresAt *time.Time        `bson:"leaseExpiresAt,omitempty"`
	Attempts       int               `bson:"attempts"`
	AvailableAt    time.Time         `bson:"availableAt"`
	LastError      string            `bson:"lastError,omitempty"`
	CreatedAt      time.Time         `bson:"createdAt"`
	ProcessedAt    *time.Time        `bson:"processedAt,omitempty"`
}

func toDocument(rec *relay.Record) document {
	headers := rec.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return document{
		ID:          rec.ID.String(),
		Type:        rec.Type,
		Payload:     lo.Ternary(rec.Payload == nil, []byte{}, rec.Payload),
		Headers:     headers,
		Status:      string(relay.StatusPending),
		AvailableAt: rec.AvailableAt,
		CreatedAt:   rec.CreatedAt,
	}
}

func (d document) toRecord() (*relay.Record, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	status, err := relay.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}

	return &relay.Record{
		ID:             id,
		Type:           d.Type,
		Payload:        d.Payload,
		Headers:        d.Headers,
		Status:         status,
		LeaseOwner:     d.LeaseOwner,
		LeaseExpiresAt: utcPtr(d.LeaseExpiresAt),
		Attempts:       d.Attempts,
		AvailableAt:    d.AvailableAt.UTC(),
		LastError:      d.LastError,
		CreatedAt:      d.CreatedAt.UTC(),
		ProcessedAt:    utcPtr(d.ProcessedAt),
	}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return lo.ToPtr(t.UTC())
}
