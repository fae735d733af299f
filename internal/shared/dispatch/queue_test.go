package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainRunsInOrder(t *testing.T) {
	q := NewQueue()
	var got []int
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, q.Post(func() { got = append(got, i) }))
	}

	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 3, q.Drain())
	assert.Equal(t, []int{0, 1, 2}, got)
	assert.Equal(t, 0, q.Drain())
}

func TestPostDuringDrainRunsNextDrain(t *testing.T) {
	q := NewQueue()
	var got []string
	q.Post(func() {
		got = append(got, "outer")
		q.Post(func() { got = append(got, "inner") })
	})

	q.Drain()
	assert.Equal(t, []string{"outer"}, got)
	q.Drain()
	assert.Equal(t, []string{"outer", "inner"}, got)
}

func TestInvokeWaitsForDrain(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			case <-q.Ready():
				q.Drain()
			case <-time.After(time.Millisecond):
				q.Drain()
			}
		}
	}()

	ran := false
	require.NoError(t, q.Invoke(ctx, func() { ran = true }))
	assert.True(t, ran)

	err := q.Invoke(ctx, func() { panic("boom") })
	assert.ErrorContains(t, err, "boom")

	close(stop)
	wg.Wait()
}

func TestInvokeHonoursContext(t *testing.T) {
	q := NewQueue()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := q.Invoke(ctx, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClosedQueueRejectsWork(t *testing.T) {
	q := NewQueue()
	q.Close()

	assert.ErrorIs(t, q.Post(func() {}), ErrClosed)
	assert.ErrorIs(t, q.Invoke(context.Background(), func() {}), ErrClosed)
}
