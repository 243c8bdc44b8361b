package engine

import "container/heap"

// readyItem is one entry in the scheduler's ready-task priority queue,
// ordered by (priority, task id) ascending — lower priority value schedules
// first, ties broken by ascending task id (spec.md §4.5).
type readyItem struct {
	taskID   int
	priority float64
}

type readyQueue []readyItem

func (q readyQueue) Len() int { return len(q) }

func (q readyQueue) Less(i, j int) bool {
	if q[i].priority != q[j].priority {
		return q[i].priority < q[j].priority
	}
	return q[i].taskID < q[j].taskID
}

func (q readyQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *readyQueue) Push(x any) {
	*q = append(*q, x.(readyItem))
}

func (q *readyQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

var _ heap.Interface = (*readyQueue)(nil)
