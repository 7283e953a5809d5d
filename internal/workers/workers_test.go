// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package workers

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// mockWorker is a test implementation of the Worker interface
// that tracks how many times Run was called.
type mockWorker struct {
	runCount atomic.Int32
}

func (m *mockWorker) Run(ctx context.Context) {
	m.runCount.Add(1)
}

// blockingWorker returns only once its context is cancelled.
type blockingWorker struct {
	started chan struct{}
	stopped atomic.Bool
}

func (b *blockingWorker) Run(ctx context.Context) {
	close(b.started)
	<-ctx.Done()
	b.stopped.Store(true)
}

func TestWorkers_Run_AllWorkersAreCalled(t *testing.T) {
	w1 := &mockWorker{}
	w2 := &mockWorker{}
	w3 := &mockWorker{}

	ws := NewWorkers(w1, w2, w3)
	ws.Run(context.Background())

	for i, w := range []*mockWorker{w1, w2, w3} {
		if got := w.runCount.Load(); got != 1 {
			t.Errorf("worker[%d]: expected runCount=1, got %d", i, got)
		}
	}
}

func TestWorkers_Run_Empty(t *testing.T) {
	ws := NewWorkers()

	// Should not panic on empty workers list
	ws.Run(context.Background())
}

func TestWorkers_Run_Nil(t *testing.T) {
	ws := &Workers{}

	// Should not panic when workers field is nil
	ws.Run(context.Background())
}

func TestWorkers_Run_WaitsForCancellation(t *testing.T) {
	b1 := &blockingWorker{started: make(chan struct{})}
	b2 := &blockingWorker{started: make(chan struct{})}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorkers(b1, b2).Run(ctx)
		close(done)
	}()

	<-b1.started
	<-b2.started

	select {
	case <-done:
		t.Fatal("Run returned before cancellation")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	if !b1.stopped.Load() || !b2.stopped.Load() {
		t.Error("expected every worker to observe cancellation")
	}
}

func TestWorkers_Run_MultipleRuns(t *testing.T) {
	w := &mockWorker{}
	ws := NewWorkers(w)

	ws.Run(context.Background())
	ws.Run(context.Background())
	ws.Run(context.Background())

	if got := w.runCount.Load(); got != 3 {
		t.Errorf("expected runCount=3 after 3 calls, got %d", got)
	}
}

// ── sync job worker ──────────────────────────────────────────────────────────

type fakeJob struct {
	mu       sync.Mutex
	started  []time.Duration
	stops    int
	startedC chan struct{}
}

func (f *fakeJob) Start(ctx context.Context, interval time.Duration) {
	f.mu.Lock()
	f.started = append(f.started, interval)
	f.mu.Unlock()
	close(f.startedC)
}

func (f *fakeJob) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
}

func TestSyncJobWorker_StartsAndStops(t *testing.T) {
	job := &fakeJob{startedC: make(chan struct{})}
	w := NewSyncJobWorker(job, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	<-job.startedC
	cancel()
	<-done

	job.mu.Lock()
	defer job.mu.Unlock()
	if len(job.started) != 1 || job.started[0] != time.Minute {
		t.Errorf("expected one start with 1m interval, got %v", job.started)
	}
	if job.stops != 1 {
		t.Errorf("expected Stop to be called once, got %d", job.stops)
	}
}
