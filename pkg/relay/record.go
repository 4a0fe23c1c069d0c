package relay

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
)

// Record is one row of the outbox or internal-command table.
//
// For commands AvailableAt doubles as the scheduled-at time; for both tables
// it is the earliest instant the record may be leased.
type Record struct {
	ID             uuid.UUID
	Type           string
	Payload        []byte
	Headers        map[string]string
	Status         Status
	LeaseOwner     string
	LeaseExpiresAt *time.Time
	Attempts       int
	AvailableAt    time.Time
	LastError      string
	CreatedAt      time.Time
	ProcessedAt    *time.Time

	// ReclaimedFrom is set by Acquire when the record was taken over from
	// this owner's expired lease. It is not persisted.
	ReclaimedFrom string
}

// LeaseExpired reports whether the record is leased and its lease ended before now.
func (r *Record) LeaseExpired(now time.Time) bool {
	return r.Status == StatusLeased && r.LeaseExpiresAt != nil && r.LeaseExpiresAt.Before(now)
}

// Clone returns a deep copy, so stores never hand out shared mutable state.
func (r *Record) Clone() *Record {
	c := *r
	c.Payload = append([]byte(nil), r.Payload...)
	c.Headers = maps.Clone(r.Headers)
	if r.LeaseExpiresAt != nil {
		t := *r.LeaseExpiresAt
		c.LeaseExpiresAt = &t
	}
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

// DecodePayload unmarshals the JSON payload into v.
func (r *Record) DecodePayload(v any) error {
	if err := json.Unmarshal(r.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload of record %s: %w", r.Type, r.ID, err)
	}
	return nil
}

// Message is what a caller appends. Zero ID gets a fresh UUID; zero
// AvailableAt means "now".
type Message struct {
	ID          uuid.UUID
	Type        string
	Payload     []byte
	Headers     map[string]string
	AvailableAt time.Time
}

// NewJSONMessage encodes v as the payload of a message of the given type.
func NewJSONMessage(msgType string, v any) (Message, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: payload}, nil
}

// Transition is a conditional state change applied by the lease holder.
// Stores apply it only while the record is LEASED by Owner and clear the
// lease columns in the same write.
type Transition struct {
	ID          uuid.UUID
	Owner       string
	To          Status
	Attempts    int
	AvailableAt time.Time
	LastError   string
	ProcessedAt *time.Time
}

// AcquireRequest asks a store to lease up to Limit eligible records.
type AcquireRequest struct {
	Owner      string
	Limit      int
	Now        time.Time
	LeaseUntil time.Time
}
