package workers

import (
	"context"
	"time"

	"github.com/klpod221/kerminal-sub001/internal/service"
)

type syncWorker struct {
	job      service.ClientSyncJob
	interval time.Duration
}

// NewSyncWorker runs job as a [Worker]. A non-positive interval follows the
// sync settings.
func NewSyncWorker(job service.ClientSyncJob, interval time.Duration) Worker {
	return &syncWorker{job: job, interval: interval}
}

func (w *syncWorker) Start(ctx context.Context) {
	w.job.Start(ctx, w.interval)
}

func (w *syncWorker) Stop() {
	w.job.Stop()
}
