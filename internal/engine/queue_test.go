package engine

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessor_PriorityAndBlocking(t *testing.T) {
	var mu sync.Mutex
	doneMap := make(map[uuid.UUID]chan struct{})
	startedCh := make(chan uuid.UUID, 2)

	startFn := func(id uuid.UUID) error {
		d := make(chan struct{})
		mu.Lock()
		doneMap[id] = d
		mu.Unlock()
		startedCh <- id
		<-d
		return nil
	}

	stopCh := make(chan struct{})
	qp := NewQueueProcessor(1, startFn, stopCh)
	defer close(stopCh)

	first := uuid.New()
	second := uuid.New()

	qp.Enqueue(second, 1)
	qp.Enqueue(first, 2)

	select {
	case id := <-startedCh:
		require.Equal(t, first, id, "higher priority task should start first")
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for first start")
	}

	select {
	case id := <-startedCh:
		t.Fatalf("unexpected start before slot freed: %v", id)
	case <-time.After(50 * time.Millisecond):
	}

	mu.Lock()
	close(doneMap[first])
	mu.Unlock()

	select {
	case id := <-startedCh:
		require.Equal(t, second, id)
	case <-time.After(500 * time.Millisecond):
		t.Fatal("timeout waiting for second start")
	}

	mu.Lock()
	close(doneMap[second])
	mu.Unlock()

	qp.Wait()
	assert.Equal(t, 0, qp.Active())
}

func TestQueueProcessor_WaitRunsEveryTask(t *testing.T) {
	const tasks = 50

	var (
		ran       atomic.Int32
		active    atomic.Int32
		maxActive atomic.Int32
	)

	startFn := func(id uuid.UUID) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		active.Add(-1)
		ran.Add(1)
		return nil
	}

	stopCh := make(chan struct{})
	qp := NewQueueProcessor(4, startFn, stopCh)

	for i := 0; i < tasks; i++ {
		qp.Enqueue(uuid.New(), i)
	}
	qp.Wait()
	close(stopCh)

	assert.Equal(t, int32(tasks), ran.Load())
	assert.LessOrEqual(t, maxActive.Load(), int32(4))
	assert.GreaterOrEqual(t, maxActive.Load(), int32(1))
}

func TestQueueProcessor_InputOrderDispatch(t *testing.T) {
	ids := make([]uuid.UUID, 10)
	for i := range ids {
		ids[i] = uuid.New()
	}

	var mu sync.Mutex
	var order []uuid.UUID
	startFn := func(id uuid.UUID) error {
		mu.Lock()
		order = append(order, id)
		mu.Unlock()
		return nil
	}

	stopCh := make(chan struct{})
	defer close(stopCh)

	gate := make(chan struct{})
	qp := NewQueueProcessor(1, func(id uuid.UUID) error {
		if id == ids[0] {
			<-gate
		}
		return startFn(id)
	}, stopCh)

	for i, id := range ids {
		qp.Enqueue(id, len(ids)-i)
	}
	close(gate)
	qp.Wait()

	require.Len(t, order, len(ids))
	assert.Equal(t, ids[1:], order[1:])
}
