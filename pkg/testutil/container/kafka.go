package container

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	kafkaPort       = "9092/tcp"
	advertisedFile  = "/tmp/advertised-kafka-addr"
	redpandaStarter = `while [ ! -s ` + advertisedFile + ` ]; do sleep 0.1; done
exec /usr/bin/rpk redpanda start --mode dev-container --smp 1 --memory 512M \
  --overprovisioned --node-id 0 \
  --kafka-addr PLAINTEXT://0.0.0.0:9092 \
  --advertise-kafka-addr PLAINTEXT://$(cat ` + advertisedFile + `)`
)

// KafkaContainer is a single-node Redpanda broker speaking the Kafka protocol.
type KafkaContainer struct {
	Container testcontainers.Container
	Brokers   string
}

type KafkaContainerOption func(*kafkaContainerOptions)

type kafkaContainerOptions struct {
	image string
}

func WithKafkaImage(image string) KafkaContainerOption {
	return func(o *kafkaContainerOptions) {
		o.image = image
	}
}

// StartKafkaContainer starts Redpanda and waits until it accepts clients.
// The broker must advertise the host-mapped port, which is only known after
// the container starts, so the entrypoint blocks until that address is copied in.
func StartKafkaContainer(ctx context.Context, opts ...KafkaContainerOption) (*KafkaContainer, error) {
	o := &kafkaContainerOptions{
		image: "redpandadata/redpanda:v24.1.1",
	}
	for _, opt := range opts {
		opt(o)
	}

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        o.image,
			ExposedPorts: []string{kafkaPort},
			Entrypoint:   []string{"/bin/sh", "-c", redpandaStarter},
		},
		Started: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start redpanda container: %w", err)
	}

	brokers, err := hostAddress(ctx, c)
	if err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, err
	}

	if err := c.CopyToContainer(ctx, []byte(brokers), advertisedFile, 0o644); err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("failed to publish advertised address: %w", err)
	}

	ready := wait.ForLog("Successfully started Redpanda!").WithStartupTimeout(time.Minute)
	if err := ready.WaitUntilReady(ctx, c); err != nil {
		_ = testcontainers.TerminateContainer(c)
		return nil, fmt.Errorf("redpanda not ready: %w", err)
	}

	return &KafkaContainer{Container: c, Brokers: brokers}, nil
}

func hostAddress(ctx context.Context, c testcontainers.Container) (string, error) {
	host, err := c.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := c.MappedPort(ctx, kafkaPort)
	if err != nil {
		return "", fmt.Errorf("failed to get kafka port: %w", err)
	}
	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func (k *KafkaContainer) Terminate(ctx context.Context) error {
	if k.Container != nil {
		if err := testcontainers.TerminateContainer(k.Container); err != nil {
			return fmt.Errorf("failed to terminate redpanda container: %w", err)
		}
	}
	return nil
}
