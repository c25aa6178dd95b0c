package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countWorker struct {
	err      error
	name     string
	runs     int32
	block    time.Duration
	panicker bool
}

func (w *countWorker) Name() string { return w.name }

func (w *countWorker) Run(ctx context.Context) error {
	atomic.AddInt32(&w.runs, 1)
	if w.block > 0 {
		time.Sleep(w.block)
	}
	if w.panicker {
		panic("worker blew up")
	}
	return w.err
}

func (w *countWorker) count() int32 { return atomic.LoadInt32(&w.runs) }

func TestPeriodicWorker(t *testing.T) {
	t.Run("runs immediately then on the ticker", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := &countWorker{name: "ticker"}
		pw := NewPeriodicWorker(w, 10*time.Millisecond)
		pw.Start(ctx)

		time.Sleep(5 * time.Millisecond)
		if w.count() < 1 {
			t.Fatal("expected an immediate first run before the first tick")
		}

		time.Sleep(100 * time.Millisecond)
		if got := w.count(); got < 3 {
			t.Fatalf("expected at least 3 runs after ~100ms, got %d", got)
		}

		cancel()
		if !pw.Stop(time.Second) {
			t.Fatal("expected a clean stop")
		}
	})

	t.Run("keeps running after errors", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := &countWorker{name: "flaky", err: errors.New("boom")}
		pw := NewPeriodicWorker(w, 10*time.Millisecond)
		pw.Start(ctx)

		time.Sleep(100 * time.Millisecond)
		cancel()
		pw.Stop(time.Second)

		if got := w.count(); got < 3 {
			t.Fatalf("errors should not break the schedule, got %d runs", got)
		}
	})

	t.Run("keeps running after panics", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		w := &countWorker{name: "panicky", panicker: true}
		pw := NewPeriodicWorker(w, 10*time.Millisecond)
		pw.Start(ctx)

		time.Sleep(100 * time.Millisecond)
		cancel()
		pw.Stop(time.Second)

		if got := w.count(); got < 3 {
			t.Fatalf("panics should not break the schedule, got %d runs", got)
		}
	})

	t.Run("stop reports timeout while an iteration is in flight", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())

		w := &countWorker{name: "slow", block: 300 * time.Millisecond}
		pw := NewPeriodicWorker(w, time.Minute)
		pw.Start(ctx)

		time.Sleep(10 * time.Millisecond)
		cancel()
		if pw.Stop(20 * time.Millisecond) {
			t.Fatal("expected Stop to time out while the iteration sleeps")
		}

		if !pw.Stop(time.Second) {
			t.Fatal("expected the loop to exit once the iteration finished")
		}
	})
}

func TestWorkerGroup(t *testing.T) {
	a := &countWorker{name: "a"}
	b := &countWorker{name: "b"}

	group := NewWorkerGroup(context.Background())
	group.Add(a, 10*time.Millisecond)
	group.Add(b, 10*time.Millisecond)
	group.Start()

	time.Sleep(60 * time.Millisecond)
	group.Stop(time.Second)

	if a.count() < 1 || b.count() < 1 {
		t.Fatalf("expected both workers to run, got a=%d b=%d", a.count(), b.count())
	}

	frozenA, frozenB := a.count(), b.count()
	time.Sleep(50 * time.Millisecond)
	if a.count() != frozenA || b.count() != frozenB {
		t.Fatal("workers kept running after the group stopped")
	}
}

func TestRunBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	w := &countWorker{name: "bg"}
	pw := RunBackground(ctx, w, 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	cancel()
	if !pw.Stop(time.Second) {
		t.Fatal("expected a clean stop")
	}

	if w.count() < 1 {
		t.Fatal("expected at least one run")
	}
}
