package controller

// JudgmentQueue is the ordered sequence of paragraph-unit ids currently
// displayed to the assessor. Every id appears at most once; no id in the
// queue may also appear in the labeled cache. It is mutated only while
// the controller's judgment mutex is held.
type JudgmentQueue struct {
	items []int
	inQueue map[int]struct{}
}

// NewJudgmentQueue returns an empty queue.
func NewJudgmentQueue() *JudgmentQueue {
	return &JudgmentQueue{inQueue: make(map[int]struct{})}
}

// Enqueue appends paragraphIdx to the tail of the queue. Callers must
// ensure it is not already present in the queue or the labeled cache.
func (q *JudgmentQueue) Enqueue(paragraphIdx int) {
	q.items = append(q.items, paragraphIdx)
	q.inQueue[paragraphIdx] = struct{}{}
}

// Contains reports whether paragraphIdx is currently queued.
func (q *JudgmentQueue) Contains(paragraphIdx int) bool {
	_, ok := q.inQueue[paragraphIdx]
	return ok
}

// Len reports the number of paragraphs currently queued.
func (q *JudgmentQueue) Len() int { return len(q.items) }

// Items returns the queue contents in presentation (enqueue) order. The
// returned slice is owned by the caller.
func (q *JudgmentQueue) Items() []int {
	out := make([]int, len(q.items))
	copy(out, q.items)
	return out
}

// RemoveFirstMatchingParentTailToHead scans from tail to head and removes
// the first (most recently enqueued) queued paragraph whose parent
// document equals documentIdx, per translateIndex. Only one entry is
// removed per call, even if multiple queued paragraphs share the same
// parent document — preserving the source's exact tail-to-head,
// single-removal behavior (see the design notes on why this is kept as
// observed rather than "fixed" to remove all matches).
//
// Returns the removed paragraph index and true, or (0, false) if no
// queued paragraph resolves to documentIdx.
func (q *JudgmentQueue) RemoveFirstMatchingParentTailToHead(documentIdx int, translateIndex func(paragraphIdx int) (int, error)) (int, bool, error) {
	for i := len(q.items) - 1; i >= 0; i-- {
		paragraphIdx := q.items[i]
		parent, err := translateIndex(paragraphIdx)
		if err != nil {
			return 0, false, err
		}
		if parent == documentIdx {
			q.items = append(q.items[:i], q.items[i+1:]...)
			delete(q.inQueue, paragraphIdx)
			return paragraphIdx, true, nil
		}
	}
	return 0, false, nil
}
