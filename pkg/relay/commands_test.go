package relay

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRegistry(t *testing.T) {
	t.Run("routes by type", func(t *testing.T) {
		registry := NewCommandRegistry()
		var handled []string
		require.NoError(t, registry.Register("send-confirmation-email", CommandHandlerFunc(func(_ context.Context, rec *Record) error {
			handled = append(handled, rec.Type)
			return nil
		})))

		err := NewCommandSink(registry).Deliver(context.Background(), &Record{Type: "send-confirmation-email"})

		require.NoError(t, err)
		assert.Equal(t, []string{"send-confirmation-email"}, handled)
	})

	t.Run("unknown type is permanent", func(t *testing.T) {
		registry := NewCommandRegistry()

		err := NewCommandSink(registry).Deliver(context.Background(), &Record{Type: "missing"})

		assert.ErrorIs(t, err, ErrUnknownCommandType)
		assert.True(t, IsPermanent(err))
	})

	t.Run("handler error is returned", func(t *testing.T) {
		registry := NewCommandRegistry()
		boom := errors.New("smtp timeout")
		require.NoError(t, registry.Register("notify", CommandHandlerFunc(func(context.Context, *Record) error { return boom })))

		err := registry.Handle(context.Background(), &Record{Type: "notify"})

		assert.ErrorIs(t, err, boom)
		assert.False(t, IsPermanent(err))
	})

	t.Run("rejects duplicate and invalid registrations", func(t *testing.T) {
		registry := NewCommandRegistry()
		noop := CommandHandlerFunc(func(context.Context, *Record) error { return nil })

		require.NoError(t, registry.Register("a", noop))
		assert.ErrorIs(t, registry.Register("a", noop), ErrInvalidArgument)
		assert.ErrorIs(t, registry.Register("", noop), ErrInvalidArgument)
		assert.ErrorIs(t, registry.Register("b", nil), ErrInvalidArgument)
		assert.Equal(t, []string{"a"}, registry.Types())
	})
}
