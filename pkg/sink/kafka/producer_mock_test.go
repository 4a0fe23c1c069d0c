package kafka

import (
	"sync"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// mockProducer acknowledges every message unless produceFunc or report is set.
type mockProducer struct {
	mu sync.Mutex

	produceFunc     func(msg *kafka.Message, deliveryChan chan kafka.Event) error
	getMetadataFunc func(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
	// report overrides the delivery report sent for each message.
	report func(msg *kafka.Message) kafka.Event

	produced []*kafka.Message
	flushed  bool
	closed   bool
}

func (m *mockProducer) Produce(msg *kafka.Message, deliveryChan chan kafka.Event) error {
	m.mu.Lock()
	m.produced = append(m.produced, msg)
	m.mu.Unlock()

	if m.produceFunc != nil {
		return m.produceFunc(msg, deliveryChan)
	}
	if m.report != nil {
		deliveryChan <- m.report(msg)
		return nil
	}
	deliveryChan <- msg
	return nil
}

func (m *mockProducer) GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error) {
	if m.getMetadataFunc != nil {
		return m.getMetadataFunc(topic, allTopics, timeoutMs)
	}
	return &kafka.Metadata{Brokers: []kafka.BrokerMetadata{{ID: 1}}}, nil
}

func (m *mockProducer) Flush(int) int {
	m.flushed = true
	return 0
}

func (m *mockProducer) Close() {
	m.closed = true
}

func (m *mockProducer) Produced() []*kafka.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*kafka.Message(nil), m.produced...)
}
