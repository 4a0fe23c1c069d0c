// Package kafka publishes relay records to Kafka topics.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Sokol111/ecommerce-relay/pkg/relay"
	"github.com/Sokol111/ecommerce-relay/pkg/sink"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/samber/lo"
)

// Sink produces each record to the topic routed for its type and waits for
// the broker's delivery report. The record id is used as message key.
type Sink struct {
	producer     Producer
	routes       map[string]string
	defaultTopic string
}

func NewSink(p Producer, cfg Config) *Sink {
	return &Sink{
		producer:     p,
		routes:       lo.SliceToMap(cfg.Routes, func(r Route) (string, string) { return r.Type, r.Topic }),
		defaultTopic: cfg.DefaultTopic,
	}
}

func (s *Sink) topicFor(recordType string) (string, bool) {
	if topic, ok := s.routes[recordType]; ok {
		return topic, true
	}
	return s.defaultTopic, s.defaultTopic != ""
}

func (s *Sink) Deliver(ctx context.Context, rec *relay.Record) error {
	topic, ok := s.topicFor(rec.Type)
	if !ok {
		return relay.Permanent(fmt.Errorf("no kafka topic routed for record type %q", rec.Type))
	}

	msg := &kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &topic, Partition: kafka.PartitionAny},
		Key:            []byte(rec.ID.String()),
		Value:          rec.Payload,
		Headers:        toKafkaHeaders(sink.MessageHeaders(ctx, rec)),
		Opaque:         rec.ID,
	}

	deliveryChan := make(chan kafka.Event, 1)
	if err := s.producer.Produce(msg, deliveryChan); err != nil {
		return classify(fmt.Errorf("failed to send message to topic %s: %w", topic, err))
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-deliveryChan:
		switch e := ev.(type) {
		case *kafka.Message:
			if e.TopicPartition.Error != nil {
				return classify(fmt.Errorf("delivery to topic %s failed: %w", topic, e.TopicPartition.Error))
			}
			return nil
		case kafka.Error:
			return classify(fmt.Errorf("delivery to topic %s failed: %w", topic, e))
		default:
			return fmt.Errorf("unexpected kafka delivery event %T", ev)
		}
	}
}

// classify marks errors that a retry cannot fix as permanent.
func classify(err error) error {
	var kerr kafka.Error
	if !errors.As(err, &kerr) {
		return err
	}
	switch kerr.Code() {
	case kafka.ErrMsgSizeTooLarge, kafka.ErrUnknownTopicOrPart, kafka.ErrTopicAuthorizationFailed, kafka.ErrInvalidArg:
		return relay.Permanent(err)
	}
	if kerr.IsFatal() {
		return relay.Permanent(err)
	}
	return err
}

func toKafkaHeaders(headers map[string]string) []kafka.Header {
	out := lo.MapToSlice(headers, func(k, v string) kafka.Header {
		return kafka.Header{Key: k, Value: []byte(v)}
	})
	slices.SortFunc(out, func(a, b kafka.Header) int { return strings.Compare(a.Key, b.Key) })
	return out
}
