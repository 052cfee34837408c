package thrower

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Reporter receives errors raised through a Raiser.
type Reporter func(err error)

// LogReporter logs raised errors at error level.
func LogReporter(logger *zap.Logger) Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(err error) {
		logger.Error("uncaught error", zap.Error(err))
	}
}

// Raiser hands errors to a Reporter on a later turn.
type Raiser struct {
	queue  *Queue
	report Reporter
	wg     sync.WaitGroup
}

// NewRaiser builds a raiser on queue. A nil queue gets a private one and a
// nil reporter discards errors.
func NewRaiser(queue *Queue, report Reporter) *Raiser {
	if queue == nil {
		queue = NewQueue()
	}
	if report == nil {
		report = func(error) {}
	}
	return &Raiser{queue: queue, report: report}
}

// Raise queues err for the reporter and returns immediately. A raise that
// is dequeued before it runs is dropped.
func (r *Raiser) Raise(err error) {
	if err == nil {
		return
	}
	r.wg.Add(1)
	r.queue.enqueue(0, func() {
		defer r.wg.Done()
		r.report(err)
	}, r.wg.Done)
}

// Run calls fn and raises whatever it returns or panics with.
func (r *Raiser) Run(fn func() error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.Raise(panicError(rec))
		}
	}()
	if err := fn(); err != nil {
		r.Raise(err)
	}
}

// Wait blocks until every raised error has been reported.
func (r *Raiser) Wait() {
	r.wg.Wait()
}

func panicError(rec any) error {
	if err, ok := rec.(error); ok {
		return fmt.Errorf("thrower: panic: %w", err)
	}
	return fmt.Errorf("thrower: panic: %v", rec)
}
