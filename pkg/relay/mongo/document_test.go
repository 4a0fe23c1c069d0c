package mongo

import (
	"testing"
	"time"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionName(t *testing.T) {
	assert.Equal(t, "outbox_messages", CollectionName("app.outbox_messages"))
	assert.Equal(t, "commands", CollectionName("commands"))
}

func TestDocument_RoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := &relay.Record{
		ID:          uuid.New(),
		Type:        "order.placed",
		Payload:     []byte(`{"orderId":1}`),
		Headers:     map[string]string{"traceparent": "00-abc"},
		AvailableAt: now,
		CreatedAt:   now,
	}

	doc := toDocument(rec)
	back, err := doc.toRecord()

	require.NoError(t, err)
	assert.Equal(t, rec.ID.String(), doc.ID)
	assert.Equal(t, string(relay.StatusPending), doc.Status)
	assert.Equal(t, rec.ID, back.ID)
	assert.Equal(t, relay.StatusPending, back.Status)
	assert.Equal(t, rec.Headers, back.Headers)
	assert.Equal(t, rec.Payload, back.Payload)
}

func TestDocument_Defaults(t *testing.T) {
	doc := toDocument(&relay.Record{ID: uuid.New(), Type: "a"})

	assert.NotNil(t, doc.Payload)
	assert.NotNil(t, doc.Headers)
}

func TestDocument_RejectsCorruptStatus(t *testing.T) {
	doc := document{ID: uuid.NewString(), Status: "SENT"}

	_, err := doc.toRecord()

	assert.Error(t, err)
}
