package dispatch

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func newTestDispatcher() *Dispatcher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(logger)
}

func TestDispatcher_RunsImmediatelyWithoutPending(t *testing.T) {
	d := newTestDispatcher()

	var ran atomic.Int32
	d.RunAfterCommit(context.Background(), "work", func(ctx context.Context) {
		ran.Add(1)
	})
	d.Wait()

	assert.Equal(t, int32(1), ran.Load())
}

func TestDispatcher_QueuesUntilCommit(t *testing.T) {
	d := newTestDispatcher()

	ctx, pending := d.Begin(context.Background())

	var ran atomic.Int32
	d.RunAfterCommit(ctx, "first", func(ctx context.Context) { ran.Add(1) })
	d.RunAfterCommit(ctx, "second", func(ctx context.Context) { ran.Add(1) })

	// Nothing may run before the transaction is durable.
	d.Wait()
	assert.Equal(t, int32(0), ran.Load())

	pending.Commit(ctx)
	d.Wait()
	assert.Equal(t, int32(2), ran.Load())
}

func TestDispatcher_DiscardDropsWork(t *testing.T) {
	d := newTestDispatcher()

	ctx, pending := d.Begin(context.Background())

	var ran atomic.Int32
	d.RunAfterCommit(ctx, "work", func(ctx context.Context) { ran.Add(1) })

	pending.Discard()
	d.Wait()

	assert.Equal(t, int32(0), ran.Load())
}

func TestDispatcher_WorkAfterCommitRunsImmediately(t *testing.T) {
	d := newTestDispatcher()

	ctx, pending := d.Begin(context.Background())
	pending.Commit(ctx)

	var ran atomic.Int32
	d.RunAfterCommit(ctx, "late", func(ctx context.Context) { ran.Add(1) })
	d.Wait()

	assert.Equal(t, int32(1), ran.Load())
}

func TestDispatcher_SurvivesCancelledCaller(t *testing.T) {
	d := newTestDispatcher()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var sawCancel atomic.Bool
	d.RunAfterCommit(ctx, "work", func(ctx context.Context) {
		sawCancel.Store(ctx.Err() != nil)
	})
	d.Wait()

	assert.False(t, sawCancel.Load(), "deferred work must not inherit caller cancellation")
}

func TestDispatcher_RecoversPanickingWork(t *testing.T) {
	d := newTestDispatcher()

	var ran atomic.Int32
	d.RunAfterCommit(context.Background(), "panics", func(ctx context.Context) {
		panic("boom")
	})
	d.RunAfterCommit(context.Background(), "runs", func(ctx context.Context) {
		ran.Add(1)
	})
	d.Wait()

	assert.Equal(t, int32(1), ran.Load())
}
