package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sevigo/coderag/internal/core"
)

// dispatcher implements core.JobDispatcher and runs a bounded pool of
// worker goroutines over queued Query and Sync jobs, generalizing the
// teacher's GitHub-review job pool to the orchestrator's own request
// types.
type dispatcher struct {
	jobQueue   chan core.Job
	maxWorkers int
	wg         sync.WaitGroup
	logger     *slog.Logger
}

// NewDispatcher starts a dispatcher with maxWorkers goroutines draining a
// bounded job queue. maxWorkers <= 0 defaults to 1.
func NewDispatcher(maxWorkers int, logger *slog.Logger) core.JobDispatcher {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	d := &dispatcher{
		maxWorkers: maxWorkers,
		jobQueue:   make(chan core.Job, 100),
		logger:     logger,
	}
	d.startWorkers()
	return d
}

func (d *dispatcher) startWorkers() {
	for i := 0; i < d.maxWorkers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			d.logger.Info("starting orchestrator worker", "id", workerID)
			for job := range d.jobQueue {
				if err := job.Run(context.Background()); err != nil {
					d.logger.Error("job failed", "worker_id", workerID, "error", err)
				}
			}
			d.logger.Info("shutting down orchestrator worker", "id", workerID)
		}(i)
	}
}

// Dispatch queues job for processing by a worker, returning an error if
// the queue is full.
func (d *dispatcher) Dispatch(ctx context.Context, job core.Job) error {
	select {
	case d.jobQueue <- job:
		return nil
	default:
		return fmt.Errorf("orchestrator: job queue is full")
	}
}

// Stop closes the job queue and waits for every worker to drain it.
func (d *dispatcher) Stop() {
	close(d.jobQueue)
	d.wg.Wait()
}

// QueryJob wraps one Ask call as a core.Job, so it can be dispatched onto
// the worker pool instead of handled synchronously by a caller.
type QueryJob struct {
	Orchestrator *Orchestrator
	Query        string
	Options      AskOptions
	Result       func(core.AnswerResult, error)
}

// Run implements core.Job.
func (j *QueryJob) Run(ctx context.Context) error {
	result, err := j.Orchestrator.Ask(ctx, j.Query, j.Options)
	if j.Result != nil {
		j.Result(result, err)
	}
	return err
}

// SyncJob wraps a sync.Engine's Sync call as a core.Job.
type SyncJob struct {
	Sync   func(ctx context.Context) (core.SyncResult, error)
	Result func(core.SyncResult, error)
}

// Run implements core.Job.
func (j *SyncJob) Run(ctx context.Context) error {
	result, err := j.Sync(ctx)
	if j.Result != nil {
		j.Result(result, err)
	}
	return err
}
