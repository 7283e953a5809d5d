package workers

import (
	"context"
	"time"
)

// SyncJobWorker adapts a [SyncJob] to the [Worker] lifecycle: the job is
// started with the worker and stopped when ctx is cancelled.
type SyncJobWorker struct {
	job      SyncJob
	interval time.Duration
}

func NewSyncJobWorker(job SyncJob, interval time.Duration) *SyncJobWorker {
	return &SyncJobWorker{job: job, interval: interval}
}

func (w *SyncJobWorker) Run(ctx context.Context) {
	w.job.Start(ctx, w.interval)
	<-ctx.Done()
	w.job.Stop()
}
