package kafka

import (
	"context"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"go.uber.org/zap"
)

type metadataProvider interface {
	GetMetadata(topic *string, allTopics bool, timeoutMs int) (*kafka.Metadata, error)
}

const metadataTimeoutMs = 5000

func waitForBrokers(ctx context.Context, p metadataProvider, log *zap.Logger, timeout time.Duration, failOnError bool) error {
	log.Info("waiting for kafka brokers", zap.Duration("timeout", timeout))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := pollBrokers(ctx, p); err != nil {
		if failOnError {
			return err
		}
		log.Warn("brokers not ready, continuing", zap.Error(err))
		return nil
	}

	log.Info("producer ready")
	return nil
}

func pollBrokers(ctx context.Context, p metadataProvider) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if meta, err := p.GetMetadata(nil, false, metadataTimeoutMs); err == nil && len(meta.Brokers) > 0 {
			return nil
		}
	}
}
