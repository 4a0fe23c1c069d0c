package kafka

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func readYAML(t *testing.T, content string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	require.NoError(t, v.ReadConfig(bytes.NewBufferString(content)))
	return v
}

func TestNewConfig_ValidYAML(t *testing.T) {
	v := readYAML(t, `
kafka:
  brokers: "localhost:9092,localhost:9093"
  default-topic: "relay.events"
  routes:
    - type: "order.created"
      topic: "orders"
    - type: "order.cancelled"
      topic: "orders"
  readiness-timeout: 30s
  circuit-breaker:
    failure-threshold: 10
`)

	cfg, err := newConfig(v, zap.NewNop())

	require.NoError(t, err)
	assert.Equal(t, "localhost:9092,localhost:9093", cfg.Brokers)
	assert.Equal(t, "relay.events", cfg.DefaultTopic)
	assert.Equal(t, []Route{{Type: "order.created", Topic: "orders"}, {Type: "order.cancelled", Topic: "orders"}}, cfg.Routes)
	assert.Equal(t, 30*time.Second, cfg.ReadinessTimeout)
	assert.Equal(t, uint32(10), cfg.CircuitBreaker.FailureThreshold)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, "all", cfg.Acks)
	assert.True(t, cfg.FailOnBrokerError)
}

func TestNewConfig_MissingBrokers(t *testing.T) {
	v := readYAML(t, `
kafka:
  default-topic: "relay.events"
`)

	_, err := newConfig(v, zap.NewNop())

	assert.ErrorContains(t, err, "brokers")
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "no topics", cfg: Config{Brokers: "b"}, wantErr: "default-topic or routes"},
		{name: "empty route", cfg: Config{Brokers: "b", Routes: []Route{{Type: "x"}}}, wantErr: "type and topic"},
		{
			name:    "duplicate route",
			cfg:     Config{Brokers: "b", Routes: []Route{{Type: "x", Topic: "t"}, {Type: "x", Topic: "u"}}},
			wantErr: "duplicate",
		},
		{name: "routes only", cfg: Config{Brokers: "b", Routes: []Route{{Type: "x", Topic: "t"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
