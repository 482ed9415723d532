package events

import (
	"testing"
	"time"

	"github.com/relevance-labs/cal-engine/pkg/config"
	"github.com/relevance-labs/cal-engine/pkg/kafka"
)

func newTestCollector(t *testing.T, batchSize int) *Collector {
	t.Helper()
	producer := kafka.NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "test-topic")
	return NewCollector(producer, batchSize, time.Minute)
}

func TestCollectorTrackBuffersWithoutFlushing(t *testing.T) {
	c := newTestCollector(t, 10)

	c.Track("key-1", IterationEvent{Type: EventIterationComplete, Iteration: 1})
	c.Track("key-2", IterationEvent{Type: EventIterationComplete, Iteration: 2})

	if got := c.BufferLen(); got != 2 {
		t.Fatalf("BufferLen() = %d, want 2", got)
	}
}

func TestNewCollectorAppliesDefaults(t *testing.T) {
	producer := kafka.NewProducer(config.KafkaConfig{Brokers: []string{"localhost:9092"}}, "test-topic")
	c := NewCollector(producer, 0, 0)

	if c.batchSize != 100 {
		t.Fatalf("batchSize = %d, want default 100", c.batchSize)
	}
	if c.flushInterval != 5*time.Second {
		t.Fatalf("flushInterval = %v, want default 5s", c.flushInterval)
	}
}
