package supervisor

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gcrefine/epochsync/kernel/threads/foundation"
)

// OpQueue implements foundation.VMOperationQueue: a buffered channel of
// operation closures drained by a single dedicated goroutine, so every
// operation it runs — in particular foundation.Reset — executes with
// mutual exclusion against every other queued operation, standing in for
// the real VM's single safepoint-operation thread.
type OpQueue struct {
	ops    chan func()
	done   chan struct{}
	wg     sync.WaitGroup
	closed bool
	mu     sync.Mutex
}

// NewOpQueue constructs a queue with the given buffer depth and starts
// its single drain goroutine.
func NewOpQueue(bufferSize int) *OpQueue {
	q := &OpQueue{
		ops:  make(chan func(), bufferSize),
		done: make(chan struct{}),
	}
	q.wg.Add(1)
	go q.run()
	return q
}

func (q *OpQueue) run() {
	defer q.wg.Done()
	for {
		select {
		case op, ok := <-q.ops:
			if !ok {
				return
			}
			op()
		case <-q.done:
			// Run whatever is already queued so no Execute caller is
			// left waiting on an op that never runs.
			for {
				select {
				case op := <-q.ops:
					op()
				default:
					return
				}
			}
		}
	}
}

// Execute implements foundation.VMOperationQueue by enqueuing op to run
// on the drain goroutine, blocking until it has actually completed so the
// caller observes a true safepoint-serialized execution.
func (q *OpQueue) Execute(op func()) {
	result := make(chan struct{})
	q.ops <- func() {
		op()
		close(result)
	}
	<-result
}

// Close stops the drain goroutine and waits for it to exit. Any
// in-flight Execute call already queued still runs to completion.
func (q *OpQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	close(q.done)
	q.wg.Wait()
}

// ScheduleTaskQueue implements foundation.ServiceThread on top of
// benbjohnson/clock, so tests can drive scheduled reset checks with a
// clock.Mock instead of real timers.
type ScheduleTaskQueue struct {
	clock clock.Clock
	mu    sync.Mutex
	tasks map[string]func()
}

// NewScheduleTaskQueue constructs a service-thread stand-in bound to c.
func NewScheduleTaskQueue(c clock.Clock) *ScheduleTaskQueue {
	return &ScheduleTaskQueue{clock: c, tasks: make(map[string]func())}
}

// RegisterTask implements foundation.ServiceThread.
func (s *ScheduleTaskQueue) RegisterTask(name string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[name] = fn
}

// ScheduleTask implements foundation.ServiceThread: it runs the
// previously registered task named name once, after delay, on its own
// goroutine backed by the wrapped clock.
func (s *ScheduleTaskQueue) ScheduleTask(name string, delay time.Duration) {
	s.mu.Lock()
	fn, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.clock.AfterFunc(delay, fn)
}

var _ foundation.VMOperationQueue = (*OpQueue)(nil)
var _ foundation.ServiceThread = (*ScheduleTaskQueue)(nil)
