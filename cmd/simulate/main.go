// Command simulate drives a running cal engine's RPC session API the way a
// real assessor client would: repeatedly fetch the current judgment batch,
// label a fraction of it relevant, submit the judgments, and repeat until
// the configured duration elapses. It reports throughput and judgment
// round-trip latency, the same way cmd/loadtest reports HTTP request
// latency against the search platform this module was adapted from.
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/relevance-labs/cal-engine/internal/rpcapi"
	"github.com/relevance-labs/cal-engine/pkg/grpc"
)

type config struct {
	addr          string
	concurrency   int
	duration      time.Duration
	relevantRatio float64
	batchCap      int
}

type stats struct {
	totalRounds    atomic.Int64
	successRounds  atomic.Int64
	errorRounds    atomic.Int64
	judgmentsTotal atomic.Int64
	latencies      []time.Duration
	latenciesMu    sync.Mutex
}

func newStats() *stats {
	return &stats{latencies: make([]time.Duration, 0, 10000)}
}

func (s *stats) recordRound(duration time.Duration, judged int, err error) {
	s.totalRounds.Add(1)
	if err != nil {
		s.errorRounds.Add(1)
		return
	}
	s.successRounds.Add(1)
	s.judgmentsTotal.Add(int64(judged))

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()
}

func main() {
	addr := flag.String("addr", "localhost:7070", "cal engine RPC address")
	concurrency := flag.Int("concurrency", 4, "number of concurrent simulated assessors")
	duration := flag.Duration("duration", 30*time.Second, "simulation duration")
	relevantRatio := flag.Float64("relevant-ratio", 0.2, "fraction of each batch labeled relevant")
	batchCap := flag.Int("batch-cap", 20, "max units judged per round, per assessor")
	flag.Parse()

	cfg := config{
		addr:          *addr,
		concurrency:   *concurrency,
		duration:      *duration,
		relevantRatio: *relevantRatio,
		batchCap:      *batchCap,
	}

	fmt.Println("=== CAL Assessor Simulation ===")
	fmt.Printf("Target:          %s\n", cfg.addr)
	fmt.Printf("Assessors:       %d\n", cfg.concurrency)
	fmt.Printf("Duration:        %s\n", cfg.duration)
	fmt.Printf("Relevant ratio:  %.0f%%\n", cfg.relevantRatio*100)
	fmt.Println()

	st := runSimulation(cfg)
	printReport(st, cfg.duration)
}

func runSimulation(cfg config) *stats {
	st := newStats()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			client, err := grpc.Dial(cfg.addr)
			if err != nil {
				st.recordRound(0, 0, err)
				return
			}
			defer client.Close()

			rng := rand.New(rand.NewSource(int64(workerID) + 1))
			for {
				select {
				case <-ctx.Done():
					return
				default:
				}
				duration, judged, err := runRound(client, rng, cfg)
				st.recordRound(duration, judged, err)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return st
}

// runRound performs one GetBatch/judge/RecordJudgments cycle, simulating an
// assessor who relevance-judges a capped prefix of the current batch.
func runRound(client *grpc.Client, rng *rand.Rand, cfg config) (time.Duration, int, error) {
	start := time.Now()

	var batch rpcapi.GetBatchResponse
	if err := client.Call("Session.GetBatch", rpcapi.GetBatchRequest{}, &batch); err != nil {
		return time.Since(start), 0, fmt.Errorf("Session.GetBatch: %w", err)
	}
	if len(batch.Keys) == 0 {
		return time.Since(start), 0, nil
	}

	n := len(batch.Keys)
	if n > cfg.batchCap {
		n = cfg.batchCap
	}

	judgments := make([]rpcapi.JudgeRequest, n)
	for i := 0; i < n; i++ {
		label := float32(-1)
		if rng.Float64() < cfg.relevantRatio {
			label = 1
		}
		judgments[i] = rpcapi.JudgeRequest{Key: batch.Keys[i], Label: label}
	}

	var recorded rpcapi.RecordJudgmentsResponse
	req := rpcapi.RecordJudgmentsRequest{Judgments: judgments}
	if err := client.Call("Session.RecordJudgments", req, &recorded); err != nil {
		return time.Since(start), 0, fmt.Errorf("Session.RecordJudgments: %w", err)
	}

	return time.Since(start), recorded.Accepted, nil
}

func printReport(st *stats, duration time.Duration) {
	total := st.totalRounds.Load()
	success := st.successRounds.Load()
	errors := st.errorRounds.Load()
	judgments := st.judgmentsTotal.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Rounds:     %d\n", total)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Errors:           %d\n", errors)
	fmt.Printf("Judgments Submitted: %d\n", judgments)

	if total > 0 {
		errorRate := float64(errors) / float64(total) * 100
		fmt.Printf("Error Rate:       %.2f%%\n", errorRate)
		rps := float64(total) / duration.Seconds()
		fmt.Printf("Rounds/sec:       %.2f\n", rps)
	}

	st.latenciesMu.Lock()
	latencies := make([]time.Duration, len(st.latencies))
	copy(latencies, st.latencies)
	st.latenciesMu.Unlock()

	if len(latencies) == 0 {
		return
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	avg := sum / time.Duration(len(latencies))

	fmt.Println()
	fmt.Println("=== Round Latency ===")
	fmt.Printf("Min:    %s\n", latencies[0])
	fmt.Printf("Avg:    %s\n", avg)
	fmt.Printf("P50:    %s\n", percentile(latencies, 50))
	fmt.Printf("P90:    %s\n", percentile(latencies, 90))
	fmt.Printf("P99:    %s\n", percentile(latencies, 99))
	fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
