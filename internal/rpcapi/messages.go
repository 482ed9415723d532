// Package rpcapi exposes the controller's session operations over the
// platform's lightweight JSON-over-TCP RPC framework (pkg/grpc), so
// assessor clients can drive a running CAL session without an HTTP layer.
package rpcapi

// JudgeRequest names a single judgment submitted by an assessor: the
// document key from a batch returned by Session.GetBatch, and its label
// (+1 relevant, -1 not relevant).
type JudgeRequest struct {
	Key   string  `json:"key"`
	Label float32 `json:"label"`
}

// RecordJudgmentsRequest is the payload for Session.RecordJudgments.
type RecordJudgmentsRequest struct {
	Judgments []JudgeRequest `json:"judgments"`
}

// RecordJudgmentsResponse reports how many judgments the request carried
// and the resulting cumulative relevant count. Accepted counts every
// judgment in the request, including any whose key the controller skipped
// as unknown.
type RecordJudgmentsResponse struct {
	Accepted            int `json:"accepted"`
	CumulativeRelevants int `json:"cumulative_relevants"`
}

// GetBatchRequest is the (empty) payload for Session.GetBatch.
type GetBatchRequest struct{}

// GetBatchResponse carries the current judgment batch: document keys
// awaiting assessment.
type GetBatchResponse struct {
	Keys []string `json:"keys"`
}

// StatusRequest is the (empty) payload for Session.Status.
type StatusRequest struct{}

// StatusResponse reports the controller's current progress.
type StatusResponse struct {
	CumulativeRelevants int `json:"cumulative_relevants"`
	QueueLength         int `json:"queue_length"`
}
