package dispatch

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatcher_RunsEveryItemExactlyOnce(t *testing.T) {
	const nItems = 200
	const nWorkers = 4

	var processed int64

	// Every item and one poison per worker are enqueued before Run starts
	// the workers, so the queue must hold all of them.
	d := NewDispatcher(nItems+nWorkers, nWorkers)
	for i := 0; i < nItems; i++ {
		d.Enqueue(i)
	}
	d.Close()

	err := Run(d, func() WorkFunc {
		return func(sample int) error {
			atomic.AddInt64(&processed, 1)
			return nil
		}
	})
	require.NoError(t, err)
	require.EqualValues(t, nItems, processed)
}

func TestDispatcher_PropagatesFirstError(t *testing.T) {
	d := NewDispatcher(10+2, 2)
	for i := 0; i < 10; i++ {
		d.Enqueue(i)
	}
	d.Close()

	err := Run(d, func() WorkFunc {
		return func(sample int) error {
			if sample == 5 {
				return fmt.Errorf("sample %d failed", sample)
			}
			return nil
		}
	})
	require.Error(t, err)
}

func TestGenotypeAggregator_DisjointConcurrentAdds(t *testing.T) {
	g := NewGenotypeAggregator()
	d := NewDispatcher(50+8, 8)
	for i := 0; i < 50; i++ {
		d.Enqueue(i)
	}
	d.Close()

	err := Run(d, func() WorkFunc {
		return func(sample int) error {
			g.Add(sample, []float32{float32(sample)})
			return nil
		}
	})
	require.NoError(t, err)

	for i := 0; i < 50; i++ {
		got := g.Get(i)
		require.Equal(t, []float32{float32(i)}, got)
	}
}
