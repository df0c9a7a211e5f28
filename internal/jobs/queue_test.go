package jobs

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue()

	for _, id := range []string{"A", "B", "C"} {
		require.True(t, q.enqueue(Job{OperationID: id}))
	}

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.tryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.OperationID)
	}
}

func TestQueue_TryDequeueEmpty(t *testing.T) {
	q := newQueue()

	_, ok := q.tryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestQueue_EnqueueAfterClose(t *testing.T) {
	q := newQueue()
	q.close()

	assert.False(t, q.enqueue(Job{Kind: KindPlayerUpdated}))
	assert.True(t, q.isClosed())
}

func TestQueue_CloseIdempotent(t *testing.T) {
	q := newQueue()
	q.close()
	assert.NotPanics(t, q.close)
}

func TestQueue_SignalCoalesces(t *testing.T) {
	q := newQueue()
	q.enqueue(Job{OperationID: "1"})
	q.enqueue(Job{OperationID: "2"})

	<-q.wait()
	select {
	case <-q.wait():
		t.Fatal("signal should coalesce to one pending wakeup")
	default:
	}
	assert.Equal(t, 2, q.len())
}

func TestQueue_ConcurrentEnqueue(t *testing.T) {
	q := newQueue()
	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	wg.Add(producers)
	for i := 0; i < producers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				q.enqueue(Job{Kind: KindSyncAchievements})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, producers*perProducer, q.len())
}
