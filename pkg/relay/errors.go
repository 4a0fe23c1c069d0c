package relay

import (
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	"github.com/google/uuid"
)

var (
	// ErrStorage matches every *StorageError.
	ErrStorage = errors.New("relay storage error")

	// ErrDeliveryFailed matches every *DeliveryFailure.
	ErrDeliveryFailed = errors.New("delivery failed")

	// ErrUnknownCommandType is returned by CommandSink when no handler is
	// registered for a command type. The record goes DEAD immediately.
	ErrUnknownCommandType = errors.New("unknown command type")

	// ErrLeaseExpired is returned by a store when a conditional transition
	// finds the record no longer leased by the caller.
	ErrLeaseExpired = errors.New("lease expired or taken over")

	// ErrNoTransaction is returned by Writer.Append outside a transaction.
	ErrNoTransaction = persistence.ErrNoTransaction

	// ErrDuplicateRecord is returned when a record id already exists.
	ErrDuplicateRecord = persistence.ErrDuplicateKey

	// ErrRecordNotFound is returned by lookups of unknown ids.
	ErrRecordNotFound = persistence.ErrEntityNotFound

	// ErrPermanent marks a sink failure that retrying cannot fix.
	// Wrap it to dead-letter a record on the first attempt.
	ErrPermanent = errors.New("permanent delivery failure")

	// ErrSinkUnavailable means the sink refused the call without trying
	// (circuit breaker open). The attempt is not counted.
	ErrSinkUnavailable = errors.New("sink unavailable")

	// ErrInvalidArgument is returned for bad call arguments and config.
	ErrInvalidArgument = errors.New("invalid argument")
)

// StorageError wraps a failure of the backing database.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("relay storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

func (e *StorageError) Is(target error) bool { return target == ErrStorage }

func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// DeliveryFailure describes one failed sink call.
type DeliveryFailure struct {
	RecordID uuid.UUID
	Err      error
	TimedOut bool
}

func (e *DeliveryFailure) Error() string {
	if e.TimedOut {
		return fmt.Sprintf("delivery of %s timed out: %v", e.RecordID, e.Err)
	}
	return fmt.Sprintf("delivery of %s failed: %v", e.RecordID, e.Err)
}

func (e *DeliveryFailure) Unwrap() error { return e.Err }

func (e *DeliveryFailure) Is(target error) bool { return target == ErrDeliveryFailed }

// Permanent wraps err so the dispatcher dead-letters the record without retrying.
func Permanent(err error) error {
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// IsPermanent reports whether err must not be retried.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent) || errors.Is(err, ErrUnknownCommandType)
}
