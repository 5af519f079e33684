package evolve

import "sync"

// observerQueue dispatches progress snapshots to a single Observer
// on one background worker. No retries: a stale progress snapshot is
// never worth re-delivering.
type observerQueue struct {
	observer Observer
	snaps    chan Snapshot
	done     chan struct{}
	wg       sync.WaitGroup
}

// newObserverQueue starts the worker goroutine. A nil observer is a
// valid no-op queue.
func newObserverQueue(observer Observer) *observerQueue {
	q := &observerQueue{
		observer: observer,
		snaps:    make(chan Snapshot, 8),
		done:     make(chan struct{}),
	}
	if observer == nil {
		return q
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *observerQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case <-q.done:
			// Drain whatever is buffered before exiting so the final
			// terminal-status snapshot is never dropped.
			for {
				select {
				case s := <-q.snaps:
					q.observer(s)
				default:
					return
				}
			}
		case s := <-q.snaps:
			q.observer(s)
		}
	}
}

// publish enqueues a snapshot for delivery, dropping it if the buffer
// is full rather than blocking the evolutionary loop (progress
// snapshots are idempotent point-in-time reads; a dropped one is
// superseded by the next). A terminal-status snapshot is never
// dropped: it waits for buffer room instead.
func (q *observerQueue) publish(s Snapshot) {
	if q.observer == nil {
		return
	}
	if s.Status == StatusCompleted || s.Status == StatusEarlyStopped {
		q.snaps <- s
		return
	}
	select {
	case q.snaps <- s:
	default:
	}
}

// stop signals the worker to drain and exit, then waits for it.
func (q *observerQueue) stop() {
	if q.observer == nil {
		return
	}
	close(q.done)
	q.wg.Wait()
}
