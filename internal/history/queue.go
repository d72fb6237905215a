package history

import (
	"container/heap"

	"github.com/temirov/transplant/internal/vcs"
)

// commitQueue is a priority queue of commits ordered by (timestamp, identifier).
// newestFirst inverts the order.
type commitQueue struct {
	records     []vcs.CommitRecord
	newestFirst bool
}

func newCommitQueue(newestFirst bool) *commitQueue {
	return &commitQueue{newestFirst: newestFirst}
}

func (queue *commitQueue) Len() int {
	return len(queue.records)
}

func (queue *commitQueue) Less(leftIndex int, rightIndex int) bool {
	if queue.newestFirst {
		return commitPrecedes(queue.records[rightIndex], queue.records[leftIndex])
	}
	return commitPrecedes(queue.records[leftIndex], queue.records[rightIndex])
}

func (queue *commitQueue) Swap(leftIndex int, rightIndex int) {
	queue.records[leftIndex], queue.records[rightIndex] = queue.records[rightIndex], queue.records[leftIndex]
}

func (queue *commitQueue) Push(value any) {
	queue.records = append(queue.records, value.(vcs.CommitRecord))
}

func (queue *commitQueue) Pop() any {
	lastIndex := len(queue.records) - 1
	record := queue.records[lastIndex]
	queue.records = queue.records[:lastIndex]
	return record
}

func (queue *commitQueue) push(record vcs.CommitRecord) {
	heap.Push(queue, record)
}

func (queue *commitQueue) pop() vcs.CommitRecord {
	return heap.Pop(queue).(vcs.CommitRecord)
}

// commitPrecedes orders commits by timestamp, then by identifier.
func commitPrecedes(left vcs.CommitRecord, right vcs.CommitRecord) bool {
	leftTimestamp := left.Timestamp()
	rightTimestamp := right.Timestamp()
	if !leftTimestamp.Equal(rightTimestamp) {
		return leftTimestamp.Before(rightTimestamp)
	}
	return left.ID < right.ID
}
