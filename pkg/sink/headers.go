package sink

import (
	"context"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
)

// Headers set on every published message so consumers can deduplicate.
const (
	HeaderRecordID   = "relay-record-id"
	HeaderRecordType = "relay-record-type"
)

// MessageHeaders returns the record headers with the current trace context
// and the relay identity headers added.
func MessageHeaders(ctx context.Context, rec *relay.Record) map[string]string {
	headers := relay.InjectTraceContext(ctx, rec.Headers)
	headers[HeaderRecordID] = rec.ID.String()
	headers[HeaderRecordType] = rec.Type
	return headers
}
