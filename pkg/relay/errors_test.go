package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestStorageError(t *testing.T) {
	cause := errors.New("connection reset")

	err := storageError("acquire", cause)

	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "relay storage acquire: connection reset", err.Error())
	assert.Nil(t, storageError("acquire", nil))
	assert.Same(t, err, storageError("apply", err), "already wrapped errors are kept")
}

func TestDeliveryFailure(t *testing.T) {
	id := uuid.MustParse("7f1c1f64-1b9d-4e43-9d1e-5a6c8f0b2a11")

	err := error(&DeliveryFailure{RecordID: id, Err: context.DeadlineExceeded, TimedOut: true})

	assert.ErrorIs(t, err, ErrDeliveryFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out")
	assert.Contains(t, err.Error(), id.String())
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(Permanent(errors.New("bad payload"))))
	assert.True(t, IsPermanent(&DeliveryFailure{Err: ErrUnknownCommandType}))
	assert.False(t, IsPermanent(errors.New("timeout")))
	assert.False(t, IsPermanent(ErrSinkUnavailable))
}
