package relay

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// mockStore is a hand-written Store double that records calls.
type mockStore struct {
	mu sync.Mutex

	inserted    []*Record
	insertErr   error
	acquireReqs []AcquireRequest
	acquireFunc func(ctx context.Context, req AcquireRequest) ([]*Record, error)
	applied     []Transition
	applyErr    error
	records     map[uuid.UUID]*Record
	listed      []Status
}

func newMockStore() *mockStore {
	return &mockStore{records: make(map[uuid.UUID]*Record)}
}

func (m *mockStore) Insert(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.inserted = append(m.inserted, rec.Clone())
	return nil
}

func (m *mockStore) Acquire(ctx context.Context, req AcquireRequest) ([]*Record, error) {
	m.mu.Lock()
	m.acquireReqs = append(m.acquireReqs, req)
	fn := m.acquireFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return nil, nil
}

func (m *mockStore) Apply(ctx context.Context, t Transition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.applyErr != nil {
		return m.applyErr
	}
	m.applied = append(m.applied, t)
	return nil
}

func (m *mockStore) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (m *mockStore) ListByStatus(ctx context.Context, status Status, limit int) ([]*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listed = append(m.listed, status)
	var out []*Record
	for _, rec := range m.records {
		if rec.Status == status && len(out) < limit {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

func (m *mockStore) Purge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.records)
	return nil
}

func (m *mockStore) Applied() []Transition {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Transition, len(m.applied))
	copy(out, m.applied)
	return out
}

// mockSink returns errs in order, then nil.
type mockSink struct {
	mu    sync.Mutex
	calls []*Record
	errs  []error
	fn    func(ctx context.Context, rec *Record) error
}

func (s *mockSink) Deliver(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	s.calls = append(s.calls, rec)
	fn := s.fn
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	s.mu.Unlock()

	if fn != nil {
		return fn(ctx, rec)
	}
	return err
}

func (s *mockSink) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
