package rpcapi

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/relevance-labs/cal-engine/internal/cal/controller"
	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

func buildTestController(t *testing.T, n int) *controller.Controller {
	t.Helper()
	keys := make([]string, n)
	vectors := make([]*vector.Sparse, n)
	documentOf := make([]int, n)
	for i := 0; i < n; i++ {
		keys[i] = "D" + string(rune('0'+i))
		v1 := float32(i % 2) * 2
		v2 := float32((i + 1) % 2)
		vectors[i] = vector.NewSparse([]int32{0, 1}, []float32{v1, v2}, 0)
		documentOf[i] = i
	}
	documents, err := dataset.NewMemoryDataset(keys, vectors, 2)
	if err != nil {
		t.Fatalf("NewMemoryDataset: %v", err)
	}
	paragraphMap := dataset.NewParagraphMap(documentOf)
	paragraphs, err := dataset.NewMemoryParagraphDataset(keys, vectors, 2, paragraphMap)
	if err != nil {
		t.Fatalf("NewMemoryParagraphDataset: %v", err)
	}
	c, err := controller.New(1, documents, paragraphs, 2, 20, 5)
	if err != nil {
		t.Fatalf("controller.New: %v", err)
	}
	return c
}

func callHandler(t *testing.T, s *Service, method string, raw any) any {
	t.Helper()
	s2 := newMethod(s, method)
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := s2(context.Background(), data)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	return resp
}

func newMethod(s *Service, method string) func(context.Context, json.RawMessage) (any, error) {
	switch method {
	case "Session.RecordJudgments":
		return s.recordJudgments
	case "Session.GetBatch":
		return s.getBatch
	case "Session.Status":
		return s.status
	}
	return nil
}

func TestServiceGetBatchWithoutCache(t *testing.T) {
	ctrl := buildTestController(t, 5)
	s := NewService(ctrl, nil, nil, 0, false)

	resp := callHandler(t, s, "Session.GetBatch", GetBatchRequest{})
	batch, ok := resp.(GetBatchResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	if len(batch.Keys) != 5 {
		t.Fatalf("len(Keys) = %d, want 5", len(batch.Keys))
	}
}

func TestServiceRecordJudgmentsUpdatesStatus(t *testing.T) {
	ctrl := buildTestController(t, 5)
	s := NewService(ctrl, nil, nil, 0, false)

	req := RecordJudgmentsRequest{Judgments: []JudgeRequest{
		{Key: "D0", Label: 1},
		{Key: "D1", Label: -1},
	}}
	resp := callHandler(t, s, "Session.RecordJudgments", req)
	recordResp, ok := resp.(RecordJudgmentsResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", resp)
	}
	if recordResp.Accepted != 2 {
		t.Fatalf("Accepted = %d, want 2", recordResp.Accepted)
	}
	if recordResp.CumulativeRelevants != 1 {
		t.Fatalf("CumulativeRelevants = %d, want 1", recordResp.CumulativeRelevants)
	}

	statusResp := callHandler(t, s, "Session.Status", StatusRequest{})
	status, ok := statusResp.(StatusResponse)
	if !ok {
		t.Fatalf("unexpected response type %T", statusResp)
	}
	if status.CumulativeRelevants != 1 {
		t.Fatalf("Status CumulativeRelevants = %d, want 1", status.CumulativeRelevants)
	}
}

func TestServiceRecordJudgmentsRejectsBadJSON(t *testing.T) {
	ctrl := buildTestController(t, 3)
	s := NewService(ctrl, nil, nil, 0, false)
	if _, err := s.recordJudgments(context.Background(), json.RawMessage("not json")); err == nil {
		t.Fatal("expected decode error for malformed request")
	}
}
