package testutil

import (
	"context"
	"sync"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
)

// RecordingSink keeps every delivered record. FailWith makes the next
// deliveries fail.
type RecordingSink struct {
	mu        sync.Mutex
	delivered []*relay.Record
	attempts  map[uuid.UUID]int
	failures  []error
	failAll   error
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{attempts: make(map[uuid.UUID]int)}
}

var _ relay.Sink = (*RecordingSink)(nil)

func (s *RecordingSink) Deliver(ctx context.Context, rec *relay.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts[rec.ID]++
	if s.failAll != nil {
		return s.failAll
	}
	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return err
	}
	s.delivered = append(s.delivered, rec.Clone())
	return nil
}

// FailWith queues errors returned by the next deliveries, one per call.
func (s *RecordingSink) FailWith(errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, errs...)
}

// FailAlways makes every delivery return err until called with nil.
func (s *RecordingSink) FailAlways(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = err
}

func (s *RecordingSink) Delivered() []*relay.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*relay.Record, len(s.delivered))
	copy(out, s.delivered)
	return out
}

// Attempts returns how many times id was handed to the sink.
func (s *RecordingSink) Attempts(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[id]
}

func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delivered = nil
	s.failures = nil
	s.failAll = nil
	clear(s.attempts)
}
