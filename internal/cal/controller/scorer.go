package controller

import (
	"container/heap"
	"sync"

	"github.com/relevance-labs/cal-engine/internal/cal/dataset"
	"github.com/relevance-labs/cal-engine/internal/cal/learner"
	"github.com/relevance-labs/cal-engine/internal/cal/vector"
)

// Scored pairs a unit index with the margin the trained weight vector
// assigned it.
type Scored struct {
	UnitIdx int
	Score   float32
}

// excludeFunc reports whether unitIdx must be skipped during scoring
// (already in the labeled cache, or its parent document already judged).
type excludeFunc func(unitIdx int) (bool, error)

// ScoreTopK scores every unit in ds across numThreads workers, each
// computing a disjoint contiguous slice against the read-only w and
// reducing to a local top-limit min-heap; the per-worker heaps are then
// merged serially. Excluded units never enter a heap. Ties break toward
// the lower unit id, matching the reference's stable tie-break.
func ScoreTopK(ds dataset.Dataset, w *vector.Weight, numThreads, limit int, exclude excludeFunc) ([]Scored, error) {
	if numThreads < 1 {
		numThreads = 1
	}
	n := ds.Size()
	if n == 0 || limit <= 0 {
		return nil, nil
	}

	shardSize := (n + numThreads - 1) / numThreads
	shardHeaps := make([]*scoredHeap, numThreads)
	shardErrs := make([]error, numThreads)
	var wg sync.WaitGroup

	for t := 0; t < numThreads; t++ {
		start := t * shardSize
		end := start + shardSize
		if start >= n {
			continue
		}
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(shardIdx, start, end int) {
			defer wg.Done()
			h := &scoredHeap{}
			heap.Init(h)
			for i := start; i < end; i++ {
				if exclude != nil {
					skip, err := exclude(i)
					if err != nil {
						shardErrs[shardIdx] = err
						return
					}
					if skip {
						continue
					}
				}
				x := ds.VectorAt(i)
				score := learner.SingleSvmPrediction(x, w)
				heap.Push(h, Scored{UnitIdx: i, Score: score})
				if h.Len() > limit {
					heap.Pop(h)
				}
			}
			shardHeaps[shardIdx] = h
		}(t, start, end)
	}
	wg.Wait()

	for _, err := range shardErrs {
		if err != nil {
			return nil, err
		}
	}

	merged := &scoredHeap{}
	heap.Init(merged)
	for _, h := range shardHeaps {
		if h == nil {
			continue
		}
		for _, s := range *h {
			heap.Push(merged, s)
			if merged.Len() > limit {
				heap.Pop(merged)
			}
		}
	}

	result := make([]Scored, merged.Len())
	for i := len(result) - 1; i >= 0; i-- {
		result[i] = heap.Pop(merged).(Scored)
	}
	return result, nil
}

// scoredHeap is a min-heap on Score, tied scores broken so the higher
// unit id sorts as "smaller" (popped first); combined with ScoreTopK's
// fill-from-the-end loop, this leaves lower unit ids ranked ahead of
// equal-scoring higher ones in the final slice.
type scoredHeap []Scored

func (h scoredHeap) Len() int { return len(h) }

func (h scoredHeap) Less(i, j int) bool {
	if h[i].Score != h[j].Score {
		return h[i].Score < h[j].Score
	}
	return h[i].UnitIdx > h[j].UnitIdx
}

func (h scoredHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *scoredHeap) Push(x any) {
	*h = append(*h, x.(Scored))
}

func (h *scoredHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
