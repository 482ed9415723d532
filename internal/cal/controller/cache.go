package controller

// DiscardedLabel is the sentinel value meaning "sampled-and-discarded":
// the unit was considered by the scalability refill but not selected for
// judgment, and must not be reconsidered in future scoring passes.
const DiscardedLabel float32 = -2

// LabeledCache maps a unit index to a label in {-1, +1, DiscardedLabel}.
// It never shrinks within a session: Set only
// ever adds or overwrites an entry, mirroring the monotonic-cache
// invariant of the source control loop.
type LabeledCache struct {
	labels map[int]float32
}

// NewLabeledCache returns an empty cache.
func NewLabeledCache() *LabeledCache {
	return &LabeledCache{labels: make(map[int]float32)}
}

// Get reports the label for unitIdx and whether it has been set at all
// (judged or discarded).
func (c *LabeledCache) Get(unitIdx int) (float32, bool) {
	label, ok := c.labels[unitIdx]
	return label, ok
}

// Set records a label for unitIdx, overwriting any prior value. A
// resubmitted contradictory label overwrites but the caller is
// responsible for not decrementing R on overwrite.
func (c *LabeledCache) Set(unitIdx int, label float32) {
	c.labels[unitIdx] = label
}

// IsSet reports whether unitIdx has any entry (judged +1/-1 or
// discarded).
func (c *LabeledCache) IsSet(unitIdx int) bool {
	_, ok := c.labels[unitIdx]
	return ok
}

// Positives returns the unit indices currently labeled +1.
func (c *LabeledCache) Positives() []int {
	var indices []int
	for idx, label := range c.labels {
		if label == 1 {
			indices = append(indices, idx)
		}
	}
	return indices
}

// Negatives returns the unit indices currently labeled -1 (discarded
// sentinels are not negatives).
func (c *LabeledCache) Negatives() []int {
	var indices []int
	for idx, label := range c.labels {
		if label == -1 {
			indices = append(indices, idx)
		}
	}
	return indices
}

// Len returns the number of entries in the cache (judged plus
// discarded).
func (c *LabeledCache) Len() int { return len(c.labels) }
