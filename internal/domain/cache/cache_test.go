package cache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/formstack/internal/domain/form"
)

type countingRoot struct {
	name      string
	destroyed *[]string
}

func (r *countingRoot) Name() string { return r.name }
func (r *countingRoot) Destroy()     { *r.destroyed = append(*r.destroyed, r.name) }

func newInstance(serial int64, asset string, destroyed *[]string) *form.Instance {
	f := form.New(nil)
	f.Init(serial, asset, "", false, form.BaseLogic{}, &countingRoot{name: asset, destroyed: destroyed})
	return f
}

func TestInsertEvictsLeastRecentlyUsed(t *testing.T) {
	var released []string
	c, err := New(2, nil, nil)
	require.NoError(t, err)

	x := newInstance(1, "X", &released)
	c.Insert(x)
	c.Insert(newInstance(2, "Y", &released))
	c.Insert(newInstance(3, "Z", &released))

	assert.Equal(t, []string{"X"}, released)
	assert.True(t, x.IsReleased())
	assert.False(t, c.Contains("X"))
	assert.True(t, c.Contains("Y"))
	assert.True(t, c.Contains("Z"))
	assert.Equal(t, 1, c.Evictions())
}

func TestTryGetTouchesRecency(t *testing.T) {
	var released []string
	c, err := New(2, nil, nil)
	require.NoError(t, err)

	c.Insert(newInstance(1, "X", &released))
	c.Insert(newInstance(2, "Y", &released))

	got, ok := c.TryGet("X")
	require.True(t, ok)
	assert.Equal(t, int64(1), got.SerialID())

	c.Insert(newInstance(3, "Z", &released))
	assert.Equal(t, []string{"Y"}, released)

	_, ok = c.TryGet("missing")
	assert.False(t, ok)
}

func TestResizeEvictsOldestFirst(t *testing.T) {
	var released []string
	c, err := New(5, nil, nil)
	require.NoError(t, err)

	c.Insert(newInstance(1, "A", &released))
	c.Insert(newInstance(2, "B", &released))
	c.Insert(newInstance(3, "C", &released))

	require.NoError(t, c.Resize(1))

	assert.Equal(t, []string{"A", "B"}, released)
	assert.Equal(t, 1, c.Len())
	assert.True(t, c.Contains("C"))

	require.NoError(t, c.Resize(10))
	assert.Equal(t, 1, c.Len())
	assert.Len(t, released, 2)
}

func TestResizeRejectsNegative(t *testing.T) {
	c, err := New(1, nil, nil)
	require.NoError(t, err)

	err = c.Resize(-1)
	assert.True(t, errors.Is(err, form.ErrValidation))
	assert.Equal(t, 1, c.Capacity())

	_, err = New(-3, nil, nil)
	assert.True(t, errors.Is(err, form.ErrValidation))
}

func TestZeroCapacityKeepsOnlyNewest(t *testing.T) {
	var released []string
	c, err := New(0, nil, nil)
	require.NoError(t, err)

	a := newInstance(1, "A", &released)
	c.Insert(a)
	assert.False(t, a.IsReleased())

	c.Insert(newInstance(2, "B", &released))
	assert.Equal(t, []string{"A"}, released)
	assert.Equal(t, 1, c.Len())
}

func TestEvictCallbackRunsBeforeRelease(t *testing.T) {
	var released []string
	var seenReleased []bool
	c, err := New(1, func(f *form.Instance) {
		seenReleased = append(seenReleased, f.IsReleased())
	}, nil)
	require.NoError(t, err)

	c.Insert(newInstance(1, "A", &released))
	c.Insert(newInstance(2, "B", &released))

	assert.Equal(t, []bool{false}, seenReleased)
	assert.Equal(t, []string{"A"}, released)
}

func TestEntriesMostRecentFirst(t *testing.T) {
	var released []string
	c, err := New(3, nil, nil)
	require.NoError(t, err)

	c.Insert(newInstance(1, "A", &released))
	c.Insert(newInstance(2, "B", &released))
	c.Insert(newInstance(3, "C", &released))
	c.TryGet("A")

	var names []string
	for _, f := range c.Entries() {
		names = append(names, f.AssetName())
	}
	assert.Equal(t, []string{"A", "C", "B"}, names)
}

func TestPurgeReleasesEverythingOnce(t *testing.T) {
	var released []string
	c, err := New(3, nil, nil)
	require.NoError(t, err)

	a := newInstance(1, "A", &released)
	c.Insert(a)
	c.Insert(newInstance(2, "B", &released))

	c.Purge()
	assert.Equal(t, []string{"A", "B"}, released)
	assert.Equal(t, 0, c.Len())

	a.Release()
	assert.Equal(t, []string{"A", "B"}, released)
}

func TestDoubleReleaseLogsWarning(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	f := form.New(zap.New(core))
	f.Init(7, "Dialog", "", false, form.BaseLogic{}, nil)

	f.Release()
	f.Release()

	require.Equal(t, 1, logs.FilterMessage("form already released").Len())
}
