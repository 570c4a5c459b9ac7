package adjuster

import (
	"container/heap"

	"github.com/viant/oomadj/model/record"
)

type queueItem struct {
	process *record.Process
	key     int
	order   uint64
	index   int
}

type items []*queueItem

func (q items) Len() int { return len(q) }

func (q items) Less(i, j int) bool {
	if q[i].key != q[j].key {
		return q[i].key < q[j].key
	}
	return q[i].order < q[j].order
}

func (q items) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *items) Push(x any) {
	item := x.(*queueItem)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *items) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*q = old[:n-1]
	return item
}

// queue polls processes by ascending key; equal keys come out in offer order.
// Offering a queued process moves it behind its new equals.
type queue struct {
	items   items
	byID    map[int]*queueItem
	keyOf   func(p *record.Process) int
	counter uint64
}

func newQueue(keyOf func(p *record.Process) int) *queue {
	return &queue{byID: map[int]*queueItem{}, keyOf: keyOf}
}

func (q *queue) offer(p *record.Process) {
	q.counter++
	if item, ok := q.byID[p.ID]; ok {
		item.key = q.keyOf(p)
		item.order = q.counter
		heap.Fix(&q.items, item.index)
		return
	}
	item := &queueItem{process: p, key: q.keyOf(p), order: q.counter}
	heap.Push(&q.items, item)
	q.byID[p.ID] = item
}

func (q *queue) poll() *record.Process {
	if len(q.items) == 0 {
		return nil
	}
	item := heap.Pop(&q.items).(*queueItem)
	delete(q.byID, item.process.ID)
	return item.process
}

func (q *queue) remove(p *record.Process) {
	if item, ok := q.byID[p.ID]; ok {
		heap.Remove(&q.items, item.index)
		delete(q.byID, p.ID)
	}
}

func (q *queue) reset() {
	q.items = q.items[:0]
	q.byID = map[int]*queueItem{}
}

func (q *queue) len() int {
	return len(q.items)
}
