package engine

import (
	"container/heap"
	"sync"

	"github.com/NamanBalaji/bulkdl/internal/logger"
	"github.com/google/uuid"
)

// TaskItem wraps a task ID with its priority for the heap.
type TaskItem struct {
	ID       uuid.UUID
	Priority int
	index    int
}

// taskHeap implements heap.Interface as a max-heap by Priority.
type taskHeap []*TaskItem

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].Priority > h[j].Priority }
func (h taskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index, h[j].index = i, j
}

func (h *taskHeap) Push(x any) {
	item := x.(*TaskItem)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	item.index = -1
	*h = old[:n-1]
	return item
}

// QueueProcessor runs prioritized tasks with at most maxConcurrent active at once,
// and will exit its dispatchLoop when stopCh is closed.
type QueueProcessor struct {
	mu            sync.Mutex
	cond          *sync.Cond
	heap          taskHeap
	startFn       func(uuid.UUID) error
	maxConcurrent int
	activeCount   int
	stopCh        <-chan struct{}
	pending       sync.WaitGroup
}

// NewQueueProcessor creates and starts the processor loop.
// When stopCh is closed, dispatchLoop will wake up and return.
func NewQueueProcessor(maxConcurrent int, startFn func(uuid.UUID) error, stopCh <-chan struct{}) *QueueProcessor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	qp := &QueueProcessor{
		heap:          make(taskHeap, 0),
		startFn:       startFn,
		maxConcurrent: maxConcurrent,
		stopCh:        stopCh,
	}
	qp.cond = sync.NewCond(&qp.mu)

	go qp.dispatchLoop()

	// Also watch stopCh so we can wake any waiting cond.Wait()
	go func() {
		<-stopCh
		qp.cond.L.Lock()
		qp.cond.Broadcast()
		qp.cond.L.Unlock()
	}()

	return qp
}

// Enqueue adds a task ID with its priority into the queue.
func (q *QueueProcessor) Enqueue(id uuid.UUID, priority int) {
	q.mu.Lock()
	q.pending.Add(1)
	heap.Push(&q.heap, &TaskItem{ID: id, Priority: priority})
	logger.Debugf("Enqueued task %s (priority %d)", id, priority)
	q.cond.Signal()
	q.mu.Unlock()
}

// Wait blocks until every enqueued task has returned from startFn.
// Tasks still queued when stopCh closes are never started, so callers
// must not close stopCh before Wait returns.
func (q *QueueProcessor) Wait() {
	q.pending.Wait()
}

// Active returns the number of tasks currently running.
func (q *QueueProcessor) Active() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.activeCount
}

// dispatchLoop pops items when slots free and starts workers.
// It will return as soon as stopCh is closed.
func (q *QueueProcessor) dispatchLoop() {
	for {
		q.mu.Lock()
		// Wait until: a slot is free AND there's work OR we've been asked to stop.
		for q.activeCount >= q.maxConcurrent || len(q.heap) == 0 {
			q.cond.Wait()
			select {
			case <-q.stopCh:
				q.mu.Unlock()
				return
			default:
			}
		}

		select {
		case <-q.stopCh:
			q.mu.Unlock()
			return
		default:
		}

		// Pop highest-priority item and consume a slot
		item := heap.Pop(&q.heap).(*TaskItem)
		q.activeCount++
		q.mu.Unlock()

		// Launch the task; when done, free the slot and signal.
		go func(id uuid.UUID) {
			defer q.pending.Done()
			defer func() {
				q.mu.Lock()
				q.activeCount--
				q.cond.Signal()
				q.mu.Unlock()
			}()

			logger.Debugf("Starting task %s", id)
			if err := q.startFn(id); err != nil {
				logger.Debugf("Task %s finished with error: %v", id, err)
			}
		}(item.ID)
	}
}
