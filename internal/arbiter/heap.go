package arbiter

// entry wraps a [Request] with scheduling metadata for the priority queue.
// The seq field provides FIFO ordering within the same priority level.
type entry struct {
	req Request
	seq uint64 // monotonic insertion order for FIFO tie-breaking
}

// requestHeap implements [container/heap.Interface] as a max-heap ordered by
// priority (descending), with FIFO tie-breaking on seq (ascending).
type requestHeap []entry

func (h requestHeap) Len() int { return len(h) }

// Less reports whether element i should be dequeued before element j.
// Higher priority wins; equal priority falls back to insertion order.
func (h requestHeap) Less(i, j int) bool {
	if h[i].req.Priority != h[j].req.Priority {
		return h[i].req.Priority > h[j].req.Priority
	}
	return h[i].seq < h[j].seq
}

func (h requestHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

// Push appends x to the heap. Called by [container/heap.Push]; callers must
// not invoke this directly.
func (h *requestHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

// Pop removes and returns the last element. Called by [container/heap.Pop];
// callers must not invoke this directly.
func (h *requestHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

// find returns the index of the queued entry with the given dedup key, or -1.
// Linear scan: the queue is bounded and small.
func (h requestHeap) find(key string) int {
	for i := range h {
		if h[i].req.DedupKey == key {
			return i
		}
	}
	return -1
}

// victim returns the index of the entry to shed on overflow: the newest entry
// among those with the lowest priority.
func (h requestHeap) victim() int {
	v := -1
	for i := range h {
		if v < 0 ||
			h[i].req.Priority < h[v].req.Priority ||
			(h[i].req.Priority == h[v].req.Priority && h[i].seq > h[v].seq) {
			v = i
		}
	}
	return v
}
