package thrower

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestQueueRunsAndDequeues(t *testing.T) {
	q := NewQueue()
	ran := make(chan string, 2)

	q.Enqueue(0, func() { ran <- "now" })
	cancelled := q.Enqueue(time.Hour, func() { ran <- "later" })

	select {
	case got := <-ran:
		if got != "now" {
			t.Fatalf("unexpected run %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("queued function did not run")
	}

	if !q.Dequeue(cancelled) {
		t.Fatalf("expected dequeue to cancel pending function")
	}
	if q.Dequeue(cancelled) {
		t.Fatalf("expected second dequeue to report false")
	}
	if q.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", q.Pending())
	}
}

func TestRaiserReportsLater(t *testing.T) {
	var mu sync.Mutex
	var reported []error
	r := NewRaiser(nil, func(err error) {
		mu.Lock()
		defer mu.Unlock()
		reported = append(reported, err)
	})

	errBoom := errors.New("boom")
	r.Raise(errBoom)
	r.Raise(nil)
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || !errors.Is(reported[0], errBoom) {
		t.Fatalf("reported = %v", reported)
	}
}

func TestRunRaisesErrorsAndPanics(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	r := NewRaiser(NewQueue(), func(err error) {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, err.Error())
	})

	r.Run(func() error { return errors.New("returned") })
	r.Run(func() error { panic("thrown") })
	r.Run(func() error { return nil })
	r.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 2 {
		t.Fatalf("expected two reports, got %v", messages)
	}
	joined := strings.Join(messages, "|")
	if !strings.Contains(joined, "returned") || !strings.Contains(joined, "panic: thrown") {
		t.Fatalf("unexpected reports %v", messages)
	}
}

func TestDequeueRunsCancelHook(t *testing.T) {
	q := NewQueue()
	cancelled := 0
	id := q.enqueue(time.Hour, func() { t.Errorf("cancelled function ran") }, func() { cancelled++ })

	if !q.Dequeue(id) {
		t.Fatalf("expected dequeue to stop the function")
	}
	if q.Dequeue(id) {
		t.Fatalf("expected second dequeue to report false")
	}
	if cancelled != 1 {
		t.Fatalf("cancel hook ran %d times, want 1", cancelled)
	}
}

func TestWaitReturnsWhenRaiseIsDequeued(t *testing.T) {
	q := NewQueue()
	r := NewRaiser(q, func(error) {})

	for i := 0; i < 50; i++ {
		r.Raise(errors.New("dropped"))
		// Raise ids are sequential on the shared queue.
		q.Dequeue(ID(i + 1))
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("wait blocked after raises were dequeued")
	}
	if q.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", q.Pending())
	}
}
