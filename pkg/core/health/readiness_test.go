package health

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddComponent(t *testing.T) {
	t.Run("registers component as pending", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		r.AddComponent("postgres")

		assert.Equal(t, []string{"postgres"}, r.Pending())
		assert.False(t, r.IsReady())
	})

	t.Run("panics on empty name", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		assert.Panics(t, func() { r.AddComponent("") })
	})

	t.Run("duplicate registration keeps one entry", func(t *testing.T) {
		r := newReadiness(zap.NewNop())

		r.AddComponent("postgres")
		r.AddComponent("postgres")

		assert.Len(t, r.components, 1)
	})
}

func TestMarkReady(t *testing.T) {
	t.Run("ready only after all components", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		markDB := r.AddComponent("postgres")
		markKafka := r.AddComponent("kafka-producer")

		markDB()
		assert.False(t, r.IsReady())
		assert.Equal(t, []string{"kafka-producer"}, r.Pending())

		markKafka()
		assert.True(t, r.IsReady())
		assert.Empty(t, r.Pending())
	})

	t.Run("mark func is idempotent", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		mark := r.AddComponent("postgres")

		mark()
		mark()

		assert.True(t, r.IsReady())
	})
}

func TestPending_Sorted(t *testing.T) {
	r := newReadiness(zap.NewNop())
	r.AddComponent("redis")
	markApp := r.AddComponent("app")
	r.AddComponent("kafka-producer")
	markApp()

	assert.Equal(t, []string{"kafka-producer", "redis"}, r.Pending())
}

func TestWaitReady(t *testing.T) {
	t.Run("unblocks when ready", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		mark := r.AddComponent("postgres")

		done := make(chan error, 1)
		go func() { done <- r.WaitReady(context.Background()) }()

		mark()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(time.Second):
			t.Fatal("WaitReady did not return")
		}
	})

	t.Run("returns context error on cancel", func(t *testing.T) {
		r := newReadiness(zap.NewNop())
		r.AddComponent("postgres")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.ErrorIs(t, r.WaitReady(ctx), context.Canceled)
	})
}

func TestConcurrentMarkReady(t *testing.T) {
	r := newReadiness(zap.NewNop())
	marks := make([]func(), 20)
	for i := range marks {
		marks[i] = r.AddComponent(fmt.Sprintf("component-%d", i))
	}

	var wg sync.WaitGroup
	for _, mark := range marks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mark()
		}()
	}
	wg.Wait()

	require.True(t, r.IsReady())
	assert.Empty(t, r.Pending())
}
