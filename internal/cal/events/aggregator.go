package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/relevance-labs/cal-engine/pkg/kafka"
)

// AggregatedStats is the current snapshot of the control loop's own
// counters, independent of any single Controller instance in memory (it is
// reconstructed from the event stream so a restarted process can resume
// reporting without rereading controller state).
type AggregatedStats struct {
	IterationsTotal       int64   `json:"iterations_total"`
	TrainingStepsTotal    int64   `json:"training_steps_total"`
	JudgmentsPositive     int64   `json:"judgments_positive"`
	JudgmentsNegative     int64   `json:"judgments_negative"`
	RefillsTotal          int64   `json:"refills_total"`
	HorizonDoublingsTotal int64   `json:"horizon_doublings_total"`
	DiscardedUnitsTotal   int64   `json:"discarded_units_total"`
	AvgIterationLatencyMs float64 `json:"avg_iteration_latency_ms"`
	LastQueueLength       int64   `json:"last_queue_length"`
	LastBatchSize         int64   `json:"last_batch_size"`
	LastHorizon           int64   `json:"last_horizon"`
}

// Aggregator consumes CAL session events off Kafka and maintains
// running counters describing the control loop's progress.
type Aggregator struct {
	mu sync.RWMutex

	iterationsTotal       atomic.Int64
	trainingStepsTotal    atomic.Int64
	judgmentsPositive     atomic.Int64
	judgmentsNegative     atomic.Int64
	refillsTotal          atomic.Int64
	horizonDoublingsTotal atomic.Int64
	discardedUnitsTotal   atomic.Int64

	iterationLatencies []int64
	lastQueueLength    int64
	lastBatchSize      int64
	lastHorizon        int64

	consumer *kafka.Consumer
	logger   *slog.Logger
}

// NewAggregator creates an Aggregator that reads off the given consumer.
func NewAggregator(consumer *kafka.Consumer) *Aggregator {
	return &Aggregator{
		iterationLatencies: make([]int64, 0, 1000),
		consumer:           consumer,
		logger:             slog.Default().With("component", "events-aggregator"),
	}
}

// Start begins consuming events. It blocks until ctx is cancelled.
func (a *Aggregator) Start(ctx context.Context) error {
	a.logger.Info("events aggregator starting")
	return a.consumer.Start(ctx)
}

// HandleEvent returns a kafka.MessageHandler that decodes an event's type
// tag before dispatching to the matching record* method.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		var tagged struct {
			Type EventType `json:"type"`
		}
		if err := json.Unmarshal(value, &tagged); err != nil {
			agg.logger.Error("failed to decode event envelope", "error", err)
			return nil
		}

		switch tagged.Type {
		case EventIterationComplete:
			ev, err := kafka.DecodeJSON[IterationEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode iteration event", "error", err)
				return nil
			}
			agg.recordIterationEvent(ev)
		case EventJudgmentRecorded:
			ev, err := kafka.DecodeJSON[JudgmentEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode judgment event", "error", err)
				return nil
			}
			agg.recordJudgmentEvent(ev)
		case EventBatchRefilled, EventHorizonDoubled:
			ev, err := kafka.DecodeJSON[RefillEvent](value)
			if err != nil {
				agg.logger.Error("failed to decode refill event", "error", err)
				return nil
			}
			agg.recordRefillEvent(ev)
		default:
			agg.logger.Warn("unrecognized event type", "type", tagged.Type)
		}
		return nil
	}
}

func (a *Aggregator) recordIterationEvent(ev IterationEvent) {
	a.iterationsTotal.Add(1)
	a.trainingStepsTotal.Add(int64(ev.TrainingSteps))

	a.mu.Lock()
	a.iterationLatencies = append(a.iterationLatencies, ev.LatencyMs)
	a.lastQueueLength = int64(ev.QueueLength)
	a.mu.Unlock()
}

func (a *Aggregator) recordJudgmentEvent(ev JudgmentEvent) {
	if ev.Label > 0 {
		a.judgmentsPositive.Add(1)
	} else {
		a.judgmentsNegative.Add(1)
	}
}

func (a *Aggregator) recordRefillEvent(ev RefillEvent) {
	a.refillsTotal.Add(1)
	a.discardedUnitsTotal.Add(int64(ev.Discarded))
	if ev.Doubled {
		a.horizonDoublingsTotal.Add(1)
	}

	a.mu.Lock()
	a.lastBatchSize = int64(ev.BatchSize)
	a.lastHorizon = int64(ev.Horizon)
	a.mu.Unlock()
}

// Stats returns the current aggregated snapshot.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		IterationsTotal:       a.iterationsTotal.Load(),
		TrainingStepsTotal:    a.trainingStepsTotal.Load(),
		JudgmentsPositive:     a.judgmentsPositive.Load(),
		JudgmentsNegative:     a.judgmentsNegative.Load(),
		RefillsTotal:          a.refillsTotal.Load(),
		HorizonDoublingsTotal: a.horizonDoublingsTotal.Load(),
		DiscardedUnitsTotal:   a.discardedUnitsTotal.Load(),
		LastQueueLength:       a.lastQueueLength,
		LastBatchSize:         a.lastBatchSize,
		LastHorizon:           a.lastHorizon,
	}
	if len(a.iterationLatencies) > 0 {
		var sum int64
		for _, l := range a.iterationLatencies {
			sum += l
		}
		stats.AvgIterationLatencyMs = float64(sum) / float64(len(a.iterationLatencies))
	}
	return stats
}
