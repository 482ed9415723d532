// Package events defines the CAL session event types published to Kafka as
// the controller runs, and a batch-oriented collector/aggregator pair that
// mirrors the platform's analytics pipeline for the control loop's own
// counters (iterations, judgments, refills, horizon doublings).
package events

import "time"

type EventType string

const (
	EventIterationComplete EventType = "iteration_complete"
	EventJudgmentRecorded  EventType = "judgment_recorded"
	EventBatchRefilled     EventType = "batch_refilled"
	EventHorizonDoubled    EventType = "horizon_doubled"
)

// IterationEvent reports the outcome of one train-score-select iteration.
type IterationEvent struct {
	Type            EventType `json:"type"`
	Iteration       int       `json:"iteration"`
	TrainingSize    int       `json:"training_size"`
	TrainingSteps   int       `json:"training_steps"`
	CandidatesFound int       `json:"candidates_found"`
	QueueLength     int       `json:"queue_length"`
	LatencyMs       int64     `json:"latency_ms"`
	Timestamp       time.Time `json:"timestamp"`
}

// JudgmentEvent reports a single judgment folded into the labeled cache by
// RecordJudgmentBatch.
type JudgmentEvent struct {
	Type      EventType `json:"type"`
	Key       string    `json:"key"`
	Label     float32   `json:"label"`
	R         int       `json:"cumulative_relevants"`
	Timestamp time.Time `json:"timestamp"`
}

// RefillEvent reports a scalability-policy refill: the batch size and
// horizon in effect, and whether T doubled this round.
type RefillEvent struct {
	Type       EventType `json:"type"`
	BatchSize  int       `json:"batch_size"`
	Horizon    int       `json:"horizon"`
	Subsampled int       `json:"subsampled"`
	Discarded  int       `json:"discarded"`
	Doubled    bool      `json:"doubled"`
	Timestamp  time.Time `json:"timestamp"`
}
