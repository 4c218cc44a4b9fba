package scheduler

import "container/heap"

// deadlineHeap implements container/heap.Interface for deadlineEntry,
// sorted by TriggerAt (earliest first, i.e. a min-heap).
type deadlineHeap []deadlineEntry

func (h deadlineHeap) Len() int           { return len(h) }
func (h deadlineHeap) Less(i, j int) bool { return h[i].TriggerAt.Before(h[j].TriggerAt) }
func (h deadlineHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *deadlineHeap) Push(x any) {
	*h = append(*h, x.(deadlineEntry))
}

func (h *deadlineHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// heapPush adds a deadlineEntry to the heap, maintaining heap invariant.
func heapPush(h *deadlineHeap, e deadlineEntry) {
	heap.Push(h, e)
}

// heapPop removes and returns the entry with the earliest TriggerAt.
// Panics if the heap is empty.
func heapPop(h *deadlineHeap) deadlineEntry {
	return heap.Pop(h).(deadlineEntry)
}

// heapRemoveByJobID removes the first entry with the given job id.
// Returns true if the entry was found and removed, false otherwise.
func heapRemoveByJobID(h *deadlineHeap, jobID string) bool {
	for i, e := range *h {
		if e.JobID == jobID {
			heap.Remove(h, i)
			return true
		}
	}
	return false
}
