// Package dispatch implements the bounded work queue and worker pool that
// fan a batch of per-sample HMM runs out across goroutines (spec §4.9):
// one or more workers, each owning a thread-confined HMM instance, drain a
// bounded FIFO of sample indices until they observe a reserved poison
// value, appending results to thread-safe sinks.
package dispatch

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/dagphase/dagphase"
)

// Poison is the reserved sentinel enqueued once per worker after all real
// work items, telling that worker to exit.
const Poison = -1

// WorkFunc runs one worker's HMM over a single sample index. Each worker
// goroutine calls WorkFunc with its own thread-confined HMM state; WorkFunc
// implementations must not share mutable state across goroutines.
type WorkFunc func(sample int) error

// Dispatcher is a bounded FIFO of sample indices drained by a fixed pool
// of workers. Not safe for concurrent Enqueue/Close calls from multiple
// goroutines; the queue and result sinks it feeds are.
type Dispatcher struct {
	queue      chan int
	numWorkers int
}

// NewDispatcher creates a Dispatcher with the given queue capacity and
// worker count. A zero or negative bufferSize makes the queue unbuffered.
func NewDispatcher(bufferSize, numWorkers int) *Dispatcher {
	if bufferSize < 0 {
		bufferSize = 0
	}
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Dispatcher{
		queue:      make(chan int, bufferSize),
		numWorkers: numWorkers,
	}
}

// Enqueue submits a sample index, blocking if the queue is full.
func (d *Dispatcher) Enqueue(sample int) {
	d.queue <- sample
}

// Close enqueues one Poison per worker, signalling that no further real
// work items will be submitted. Callers must not Enqueue after Close.
func (d *Dispatcher) Close() {
	for i := 0; i < d.numWorkers; i++ {
		d.queue <- Poison
	}
}

// Run starts the worker pool and blocks until every worker has observed
// its poison and exited. newWork is called once per worker to build a
// thread-confined WorkFunc (e.g. closing over a fresh baum/sampler Driver).
// Run collects the first error any worker returns, but lets every worker
// drain to its own poison before returning it.
func Run(d *Dispatcher, newWork func() WorkFunc) error {
	var wg sync.WaitGroup
	var errOnce sync.Once
	var firstErr error

	for w := 0; w < d.numWorkers; w++ {
		wg.Add(1)
		work := newWork()
		go func(workerID int) {
			defer wg.Done()
			for sample := range d.queue {
				if sample == Poison {
					return
				}
				if err := work(sample); err != nil {
					errOnce.Do(func() { firstErr = err })
					if errors.Is(err, dagphase.ErrNoConsistentState) || errors.Is(err, dagphase.ErrHashOverflow) {
						logrus.Errorf("dispatch: worker %d sample %d: unrecoverable: %v", workerID, sample, err)
					} else {
						logrus.Warnf("dispatch: worker %d sample %d failed: %v", workerID, sample, err)
					}
				}
			}
		}(w)
	}

	wg.Wait()
	return firstErr
}
