package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func TestHandlerHealth(t *testing.T) {
	h := New(buildTestController(t, 3), nil)
	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q, want ok", body["status"])
	}
}

func TestHandlerStatus(t *testing.T) {
	ctrl := buildTestController(t, 4)
	h := New(ctrl, nil)

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if _, ok := body["queue_length"]; !ok {
		t.Fatal("expected queue_length field in status response")
	}
	if _, ok := body["cumulative_relevants"]; !ok {
		t.Fatal("expected cumulative_relevants field in status response")
	}
}
