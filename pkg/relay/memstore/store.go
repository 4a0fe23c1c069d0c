// Package memstore keeps relay records in process memory. It backs unit
// tests and the "memory" storage mode; records do not survive a restart.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
)

// Store is safe for concurrent use. A single mutex makes Acquire atomic,
// which is what the database claim gives the other backends.
type Store struct {
	mu      sync.Mutex
	records map[uuid.UUID]*relay.Record
	// reserved holds ids inserted by transactions that are still open.
	reserved map[uuid.UUID]struct{}
}

func New() *Store {
	return &Store{
		records:  make(map[uuid.UUID]*relay.Record),
		reserved: make(map[uuid.UUID]struct{}),
	}
}

var _ relay.Store = (*Store)(nil)

// Insert stages rec in the transaction carried by ctx. The record becomes
// visible when the transaction commits.
func (s *Store) Insert(ctx context.Context, rec *relay.Record) error {
	t, ok := txFromContext(ctx)
	if !ok {
		return relay.ErrNoTransaction
	}

	s.mu.Lock()
	_, exists := s.records[rec.ID]
	_, staged := s.reserved[rec.ID]
	if exists || staged {
		s.mu.Unlock()
		return relay.ErrDuplicateRecord
	}
	s.reserved[rec.ID] = struct{}{}
	s.mu.Unlock()

	stored := rec.Clone()
	commit := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.reserved, stored.ID)
		s.records[stored.ID] = stored
	}
	rollback := func() { s.release(stored.ID) }

	if err := t.add(commit, rollback); err != nil {
		s.release(stored.ID)
		return err
	}
	return nil
}

func (s *Store) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reserved, id)
}

func (s *Store) Acquire(ctx context.Context, req relay.AcquireRequest) ([]*relay.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eligible := make([]*relay.Record, 0, req.Limit)
	for _, rec := range s.records {
		if claimable(rec, req.Now) {
			eligible = append(eligible, rec)
		}
	}
	slices.SortFunc(eligible, byAvailability)
	if len(eligible) > req.Limit {
		eligible = eligible[:req.Limit]
	}

	out := make([]*relay.Record, 0, len(eligible))
	for _, rec := range eligible {
		var previousOwner string
		if rec.Status == relay.StatusLeased {
			previousOwner = rec.LeaseOwner
		}
		leaseUntil := req.LeaseUntil
		rec.Status = relay.StatusLeased
		rec.LeaseOwner = req.Owner
		rec.LeaseExpiresAt = &leaseUntil

		claimed := rec.Clone()
		claimed.ReclaimedFrom = previousOwner
		out = append(out, claimed)
	}
	return out, nil
}

func claimable(rec *relay.Record, now time.Time) bool {
	switch rec.Status {
	case relay.StatusPending:
		return !rec.AvailableAt.After(now)
	case relay.StatusLeased:
		return rec.LeaseExpired(now)
	}
	return false
}

func byAvailability(a, b *relay.Record) int {
	if c := a.AvailableAt.Compare(b.AvailableAt); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return slices.Compare(a.ID[:], b.ID[:])
}

func (s *Store) Apply(ctx context.Context, t relay.Transition) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[t.ID]
	if !ok || rec.Status != relay.StatusLeased || rec.LeaseOwner != t.Owner {
		return relay.ErrLeaseExpired
	}

	rec.Status = t.To
	rec.Attempts = t.Attempts
	rec.AvailableAt = t.AvailableAt
	rec.LastError = t.LastError
	rec.ProcessedAt = nil
	if t.ProcessedAt != nil {
		processed := *t.ProcessedAt
		rec.ProcessedAt = &processed
	}
	rec.LeaseOwner = ""
	rec.LeaseExpiresAt = nil
	return nil
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*relay.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, relay.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *Store) ListByStatus(ctx context.Context, status relay.Status, limit int) ([]*relay.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*relay.Record, 0)
	for _, rec := range s.records {
		if rec.Status == status {
			out = append(out, rec.Clone())
		}
	}
	slices.SortFunc(out, func(a, b *relay.Record) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return slices.Compare(a.ID[:], b.ID[:])
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Purge(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.records)
	return nil
}

// Len returns the number of committed records.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
