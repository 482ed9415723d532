package events

import (
	"context"
	"encoding/json"
	"testing"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestAggregatorRecordsIterationEvent(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	ev := IterationEvent{
		Type:          EventIterationComplete,
		TrainingSteps: 10,
		QueueLength:   5,
		LatencyMs:     42,
	}
	if err := handle(context.Background(), nil, mustMarshal(t, ev)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stats := agg.Stats()
	if stats.IterationsTotal != 1 {
		t.Fatalf("IterationsTotal = %d, want 1", stats.IterationsTotal)
	}
	if stats.TrainingStepsTotal != 10 {
		t.Fatalf("TrainingStepsTotal = %d, want 10", stats.TrainingStepsTotal)
	}
	if stats.LastQueueLength != 5 {
		t.Fatalf("LastQueueLength = %d, want 5", stats.LastQueueLength)
	}
	if stats.AvgIterationLatencyMs != 42 {
		t.Fatalf("AvgIterationLatencyMs = %v, want 42", stats.AvgIterationLatencyMs)
	}
}

func TestAggregatorSplitsJudgmentsByLabel(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	positive := JudgmentEvent{Type: EventJudgmentRecorded, Key: "a", Label: 1}
	negative := JudgmentEvent{Type: EventJudgmentRecorded, Key: "b", Label: -1}

	if err := handle(context.Background(), nil, mustMarshal(t, positive)); err != nil {
		t.Fatalf("handle positive: %v", err)
	}
	if err := handle(context.Background(), nil, mustMarshal(t, negative)); err != nil {
		t.Fatalf("handle negative: %v", err)
	}

	stats := agg.Stats()
	if stats.JudgmentsPositive != 1 || stats.JudgmentsNegative != 1 {
		t.Fatalf("got positive=%d negative=%d, want 1,1", stats.JudgmentsPositive, stats.JudgmentsNegative)
	}
}

func TestAggregatorRecordsRefillAndHorizonDoubling(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	refill := RefillEvent{Type: EventBatchRefilled, BatchSize: 20, Horizon: 100, Discarded: 3, Doubled: false}
	doubled := RefillEvent{Type: EventHorizonDoubled, BatchSize: 22, Horizon: 200, Discarded: 1, Doubled: true}

	if err := handle(context.Background(), nil, mustMarshal(t, refill)); err != nil {
		t.Fatalf("handle refill: %v", err)
	}
	if err := handle(context.Background(), nil, mustMarshal(t, doubled)); err != nil {
		t.Fatalf("handle doubled: %v", err)
	}

	stats := agg.Stats()
	if stats.RefillsTotal != 2 {
		t.Fatalf("RefillsTotal = %d, want 2", stats.RefillsTotal)
	}
	if stats.HorizonDoublingsTotal != 1 {
		t.Fatalf("HorizonDoublingsTotal = %d, want 1", stats.HorizonDoublingsTotal)
	}
	if stats.DiscardedUnitsTotal != 4 {
		t.Fatalf("DiscardedUnitsTotal = %d, want 4", stats.DiscardedUnitsTotal)
	}
	if stats.LastBatchSize != 22 || stats.LastHorizon != 200 {
		t.Fatalf("LastBatchSize=%d LastHorizon=%d, want 22,200", stats.LastBatchSize, stats.LastHorizon)
	}
}

func TestAggregatorIgnoresMalformedEvent(t *testing.T) {
	agg := NewAggregator(nil)
	handle := HandleEvent(agg)

	if err := handle(context.Background(), nil, []byte("not json")); err != nil {
		t.Fatalf("handle should swallow decode errors, got %v", err)
	}
	if stats := agg.Stats(); stats.IterationsTotal != 0 {
		t.Fatalf("expected no counters touched, got %+v", stats)
	}
}
