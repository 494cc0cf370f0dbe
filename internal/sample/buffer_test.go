package sample_test

import (
	"testing"

	"codeberg.org/mutker/thermochart/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(ts int64, temp float64) sample.Sample {
	return sample.Sample{Time: ts, CurrentTemp: temp, DesiredTemp: 20, OutsideTemp: 5, OutsideTempCollectionTime: ts}
}

func TestAppendKeepsPriorEntries(t *testing.T) {
	b := sample.NewBuffer()

	for i := int64(0); i < 5; i++ {
		before := b.Snapshot()
		b.Append(at(1000+i*15, 20+float64(i)))

		after := b.Snapshot()
		require.Len(t, after, len(before)+1)
		assert.Equal(t, before, after[:len(before)], "append must not touch earlier samples")
		assert.Equal(t, int64(1000+i*15), after[len(after)-1].Time)
	}
}

func TestReplaceAll(t *testing.T) {
	b := sample.NewBuffer()
	b.Append(at(1, 1))
	b.Append(at(2, 2))

	fetched := []sample.Sample{at(10, 10), at(20, 20), at(30, 30)}
	b.ReplaceAll(fetched)

	assert.Equal(t, fetched, b.Snapshot())

	// the buffer keeps its own copy
	fetched[0].CurrentTemp = 99
	assert.InDelta(t, 10.0, b.Snapshot()[0].CurrentTemp, 1e-9)
}

func TestSnapshotIsACopy(t *testing.T) {
	b := sample.NewBuffer()
	b.Append(at(1, 1))

	snap := b.Snapshot()
	snap[0].CurrentTemp = 42
	b.Append(at(2, 2))

	assert.InDelta(t, 1.0, b.Snapshot()[0].CurrentTemp, 1e-9)
	assert.Len(t, snap, 1)
}

func TestLatest(t *testing.T) {
	b := sample.NewBuffer()
	_, ok := b.Latest()
	assert.False(t, ok)

	b.Append(at(1, 1))
	b.Append(at(2, 2))
	latest, ok := b.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2), latest.Time)
}

func TestPrune(t *testing.T) {
	b := sample.NewBuffer()
	for _, ts := range []int64{100, 200, 300, 400} {
		b.Append(at(ts, 0))
	}

	assert.Equal(t, 0, b.Prune(50))
	assert.Equal(t, 2, b.Prune(300))

	snap := b.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, int64(300), snap[0].Time)
	assert.Equal(t, int64(400), snap[1].Time)

	assert.Equal(t, 2, b.Prune(1000))
	assert.Equal(t, 0, b.Len())
}
