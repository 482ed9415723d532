package rpcapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/relevance-labs/cal-engine/internal/cal/controller"
	"github.com/relevance-labs/cal-engine/internal/cache/batchcache"
	"github.com/relevance-labs/cal-engine/internal/store/auditlog"
	"github.com/relevance-labs/cal-engine/pkg/grpc"
	"github.com/relevance-labs/cal-engine/pkg/resilience"
	"github.com/relevance-labs/cal-engine/pkg/tracing"
)

// Service wires Controller operations onto the RPC server under the
// "Session." method namespace.
type Service struct {
	ctrl           *controller.Controller
	cache          *batchcache.BatchCache
	audit          *auditlog.Store
	requestTimeout time.Duration
	tracingEnabled bool
	logger         *slog.Logger
	nextTraceID    atomic.Int64
}

// NewService creates a Service backed by the given controller. cache and
// audit are both optional — pass nil to skip Redis caching of GetBatch
// responses, or to skip persisting a judgment audit trail, respectively.
// requestTimeout bounds each handler call; pass 0 to disable the bound.
// tracingEnabled turns each RecordJudgments/GetBatch call into a logged
// tracing.Span.
func NewService(ctrl *controller.Controller, cache *batchcache.BatchCache, audit *auditlog.Store, requestTimeout time.Duration, tracingEnabled bool) *Service {
	return &Service{
		ctrl:           ctrl,
		cache:          cache,
		audit:          audit,
		requestTimeout: requestTimeout,
		tracingEnabled: tracingEnabled,
		logger:         slog.Default().With("component", "rpc-session-service"),
	}
}

// startSpan begins a tracing.Span for the given RPC method, or returns a
// no-op ender if tracing is disabled.
func (s *Service) startSpan(ctx context.Context, method string) (context.Context, func()) {
	if !s.tracingEnabled {
		return ctx, func() {}
	}
	traceID := fmt.Sprintf("rpc-%d", s.nextTraceID.Add(1))
	spanCtx, span := tracing.StartSpan(ctx, method, traceID)
	return spanCtx, func() {
		span.End()
		span.Log()
	}
}

// Register attaches this service's handlers to the RPC server.
func (s *Service) Register(server *grpc.Server) {
	server.Register("Session.RecordJudgments", s.recordJudgments)
	server.Register("Session.GetBatch", s.getBatch)
	server.Register("Session.Status", s.status)
}

func (s *Service) recordJudgments(ctx context.Context, raw json.RawMessage) (any, error) {
	var req RecordJudgmentsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decoding RecordJudgments request: %w", err)
	}

	judgments := make([]controller.Judgment, 0, len(req.Judgments))
	for _, j := range req.Judgments {
		judgments = append(judgments, controller.Judgment{Key: j.Key, Label: j.Label})
	}

	ctx, endSpan := s.startSpan(ctx, "Session.RecordJudgments")
	defer endSpan()

	var resp RecordJudgmentsResponse
	err := resilience.WithTimeout(ctx, s.requestTimeout, "Session.RecordJudgments", func(ctx context.Context) error {
		if err := s.ctrl.RecordJudgmentBatch(judgments); err != nil {
			return fmt.Errorf("recording judgment batch: %w", err)
		}
		if s.cache != nil {
			if err := s.cache.Invalidate(ctx); err != nil {
				s.logger.Warn("batch cache invalidation failed", "error", err)
			}
		}
		r := s.ctrl.CumulativeRelevants()
		if s.audit != nil {
			entries := make([]auditlog.Entry, len(judgments))
			for i, j := range judgments {
				entries[i] = auditlog.Entry{Key: j.Key, Label: j.Label, CumulativeRelevants: r}
			}
			if err := s.audit.AppendBatch(ctx, entries); err != nil {
				s.logger.Warn("audit log append failed", "error", err)
			}
		}
		resp = RecordJudgmentsResponse{
			Accepted:            len(judgments),
			CumulativeRelevants: r,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) getBatch(ctx context.Context, raw json.RawMessage) (any, error) {
	ctx, endSpan := s.startSpan(ctx, "Session.GetBatch")
	defer endSpan()

	var resp GetBatchResponse
	err := resilience.WithTimeout(ctx, s.requestTimeout, "Session.GetBatch", func(ctx context.Context) error {
		if s.cache != nil {
			keys, _, err := s.cache.GetOrCompute(ctx, func() ([]string, error) {
				return s.ctrl.GetCurrentBatch()
			})
			if err != nil {
				return fmt.Errorf("resolving current batch: %w", err)
			}
			resp = GetBatchResponse{Keys: keys}
			return nil
		}
		keys, err := s.ctrl.GetCurrentBatch()
		if err != nil {
			return fmt.Errorf("resolving current batch: %w", err)
		}
		resp = GetBatchResponse{Keys: keys}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) status(ctx context.Context, raw json.RawMessage) (any, error) {
	return StatusResponse{
		CumulativeRelevants: s.ctrl.CumulativeRelevants(),
		QueueLength:         s.ctrl.QueueLength(),
	}, nil
}
