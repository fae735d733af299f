package future

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletedFuture(t *testing.T) {
	f := Completed(42)

	require.True(t, f.IsDone())
	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFailedFuture(t *testing.T) {
	boom := errors.New("boom")
	f := Failed[string](boom)

	_, err := f.Result()
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, f.Err(), boom)
}

func TestPendingResult(t *testing.T) {
	f := New[int]()

	_, err := f.Result()
	assert.ErrorIs(t, err, ErrPending)
	assert.False(t, f.IsDone())
}

func TestCompletesOnce(t *testing.T) {
	f := New[int]()

	assert.True(t, f.Resolve(1))
	assert.False(t, f.Resolve(2))
	assert.False(t, f.Reject(errors.New("late")))

	v, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestRejectWithNilError(t *testing.T) {
	f := New[int]()
	f.Reject(nil)
	assert.Error(t, f.Err())
}

func TestOnCompleteOrdering(t *testing.T) {
	f := New[string]()
	var got []string

	f.OnComplete(func(v string, err error) { got = append(got, "first:"+v) })
	f.OnComplete(func(v string, err error) { got = append(got, "second:"+v) })
	assert.Empty(t, got)

	f.Resolve("ok")
	assert.Equal(t, []string{"first:ok", "second:ok"}, got)

	f.OnComplete(func(v string, err error) { got = append(got, "late:"+v) })
	assert.Equal(t, []string{"first:ok", "second:ok", "late:ok"}, got)
}

func TestAwait(t *testing.T) {
	f := New[int]()
	go func() {
		time.Sleep(5 * time.Millisecond)
		f.Resolve(7)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := f.Await(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestAwaitContextCancelled(t *testing.T) {
	f := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Await(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
