package dispatch

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher defers side effects until the data mutation that triggered them
// is durably committed. The store cannot fire hooks itself, so the contract
// is explicit: the caller opens a Pending queue before the transaction,
// schedules work while it runs, and flushes the queue once the store confirms
// durability. Work scheduled without a Pending queue in the context runs
// immediately.
type Dispatcher struct {
	log *logrus.Logger
	wg  sync.WaitGroup
}

func New(log *logrus.Logger) *Dispatcher {
	return &Dispatcher{log: log}
}

type pendingKey struct{}

// Pending collects work scheduled during one write transaction.
type Pending struct {
	d *Dispatcher

	mu     sync.Mutex
	queue  []work
	closed bool
}

type work struct {
	name string
	run  func(context.Context)
}

// Begin attaches a fresh Pending queue to ctx. The caller must finish it with
// exactly one of Commit or Discard.
func (d *Dispatcher) Begin(ctx context.Context) (context.Context, *Pending) {
	p := &Pending{d: d}
	return context.WithValue(ctx, pendingKey{}, p), p
}

// RunAfterCommit schedules fn. With a Pending queue in ctx the work waits for
// Commit; otherwise it runs right away on its own goroutine.
func (d *Dispatcher) RunAfterCommit(ctx context.Context, name string, fn func(context.Context)) {
	if p, ok := ctx.Value(pendingKey{}).(*Pending); ok {
		p.mu.Lock()
		if !p.closed {
			p.queue = append(p.queue, work{name: name, run: fn})
			p.mu.Unlock()
			return
		}
		p.mu.Unlock()
	}
	d.dispatch(ctx, work{name: name, run: fn})
}

// Commit releases the queued work for execution.
func (p *Pending) Commit(ctx context.Context) {
	p.mu.Lock()
	queued := p.queue
	p.queue = nil
	p.closed = true
	p.mu.Unlock()

	for _, w := range queued {
		p.d.dispatch(ctx, w)
	}
}

// Discard drops the queued work. Used when the transaction rolled back, so
// none of its side effects become observable.
func (p *Pending) Discard() {
	p.mu.Lock()
	dropped := len(p.queue)
	p.queue = nil
	p.closed = true
	p.mu.Unlock()

	if dropped > 0 {
		p.d.log.WithField("count", dropped).Debug("discarded after-commit work for rolled back transaction")
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, w work) {
	// Detach from the request's cancellation: the booking is already
	// committed, so its side effects must not be cut short by the caller
	// hanging up.
	ctx = context.WithoutCancel(ctx)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				d.log.WithField("work", w.name).Errorf("after-commit work panicked: %v", rec)
			}
		}()
		w.run(ctx)
	}()
}

// Wait blocks until all dispatched work has finished. Called on shutdown so
// in-flight side effects are not silently abandoned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
