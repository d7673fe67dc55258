package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sourcegraph/conc/pool"

	"github.com/couchcryptid/census-map-service/internal/domain"
	"github.com/couchcryptid/census-map-service/internal/observability"
)

// Queue carries jobs from Enqueue to the workers.
type Queue interface {
	Enqueue(ctx context.Context, job domain.RenderJob) error
	// Dequeue blocks until a job is available or ctx is done.
	Dequeue(ctx context.Context) (domain.RenderJob, error)
}

// StatusStore records the latest state of each job.
type StatusStore interface {
	Upsert(ctx context.Context, status domain.JobStatus) error
	Get(ctx context.Context, id string) (domain.JobStatus, error)
}

// Processor runs a single job. *Pipeline implements it.
type Processor interface {
	Process(ctx context.Context, job domain.RenderJob) (domain.RenderResult, error)
}

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// Dispatcher accepts jobs and runs them on a fixed pool of workers.
type Dispatcher struct {
	queue      Queue
	status     StatusStore
	processor  Processor
	workers    int
	jobTimeout time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	running    atomic.Bool
}

// NewDispatcher creates a Dispatcher. A nil clock selects the real clock.
func NewDispatcher(q Queue, s StatusStore, p Processor, workers int, jobTimeout time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Dispatcher{
		queue:      q,
		status:     s,
		processor:  p,
		workers:    max(workers, 1),
		jobTimeout: jobTimeout,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
	}
}

// Enqueue schedules a render and returns at once. Only the presence of both
// arguments is checked here; unknown states or variables fail in the worker.
func (d *Dispatcher) Enqueue(ctx context.Context, state, variable string) (domain.JobDescriptor, error) {
	state, variable = strings.TrimSpace(state), strings.TrimSpace(variable)
	if state == "" {
		return domain.JobDescriptor{}, fmt.Errorf("%w: state", domain.ErrMissingArgument)
	}
	if variable == "" {
		return domain.JobDescriptor{}, fmt.Errorf("%w: variable", domain.ErrMissingArgument)
	}

	job := domain.RenderJob{
		ID:          uuid.NewString(),
		State:       state,
		Variable:    variable,
		RequestedAt: domain.NowEastern(d.clock),
	}

	if err := d.status.Upsert(ctx, d.statusFor(job, domain.StatusQueued)); err != nil {
		return domain.JobDescriptor{}, fmt.Errorf("record job status: %w", err)
	}
	if err := d.queue.Enqueue(ctx, job); err != nil {
		d.recordFailure(ctx, job, err)
		return domain.JobDescriptor{}, fmt.Errorf("enqueue job: %w", err)
	}

	d.metrics.JobsEnqueued.Inc()
	d.logger.Info("job enqueued", "job_id", job.ID, "state", state, "variable", variable)

	return domain.JobDescriptor{
		ID:           job.ID,
		State:        job.State,
		VariableName: job.Variable,
		RequestedAt:  job.RequestedAt.Format(domain.DescriptorTimeLayout),
	}, nil
}

// Status returns the latest record for a job.
func (d *Dispatcher) Status(ctx context.Context, id string) (domain.JobStatus, error) {
	return d.status.Get(ctx, id)
}

// CheckReadiness reports ready once the workers are running.
func (d *Dispatcher) CheckReadiness(_ context.Context) error {
	if !d.running.Load() {
		return errors.New("workers not running")
	}
	return nil
}

// Run starts the workers and blocks until ctx is cancelled and every
// in-flight job has returned.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "workers", d.workers, "job_timeout", d.jobTimeout)

	p := pool.New().WithMaxGoroutines(d.workers)
	for i := range d.workers {
		p.Go(func() { d.work(ctx, i) })
	}
	d.running.Store(true)
	p.Wait()
	d.running.Store(false)

	d.logger.Info("dispatcher stopped")
	return nil
}

func (d *Dispatcher) work(ctx context.Context, worker int) {
	backoff := minBackoff
	for {
		job, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			d.logger.Error("dequeue failed", "worker", worker, "error", err)
			if !sleepWithContext(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = minBackoff
		d.runJob(ctx, worker, job)
	}
}

func (d *Dispatcher) runJob(ctx context.Context, worker int, job domain.RenderJob) {
	d.metrics.WorkersBusy.Inc()
	defer d.metrics.WorkersBusy.Dec()

	log := d.logger.With("job_id", job.ID, "state", job.State, "variable", job.Variable, "worker", worker)
	log.Info("job started")
	d.upsert(ctx, d.statusFor(job, domain.StatusRunning))

	start := d.clock.Now()
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	res, err := d.processor.Process(jobCtx, job)
	cancel()
	d.metrics.JobDuration.Observe(d.clock.Since(start).Seconds())

	if err != nil {
		log.Error("job failed", "error", err, "code", domain.ErrorCode(err))
		d.recordFailure(ctx, job, err)
		return
	}

	d.metrics.JobsCompleted.Inc()
	d.metrics.ArtifactsCounty.Observe(float64(res.Counties))
	log.Info("job succeeded", "artifact", res.Path, "duration", d.clock.Since(start))

	st := d.statusFor(job, domain.StatusSucceeded)
	st.ArtifactName = filepath.Base(res.Path)
	d.upsert(ctx, st)
}

func (d *Dispatcher) recordFailure(ctx context.Context, job domain.RenderJob, err error) {
	code := domain.ErrorCode(err)
	d.metrics.JobsFailed.WithLabelValues(code).Inc()

	st := d.statusFor(job, domain.StatusFailed)
	st.ErrorCode = code
	st.ErrorMessage = err.Error()
	d.upsert(ctx, st)
}

// upsert writes status even after shutdown has cancelled ctx.
func (d *Dispatcher) upsert(ctx context.Context, st domain.JobStatus) {
	if err := d.status.Upsert(context.WithoutCancel(ctx), st); err != nil {
		d.logger.Warn("job status update failed", "job_id", st.JobID, "status", st.Status, "error", err)
	}
}

func (d *Dispatcher) statusFor(job domain.RenderJob, status string) domain.JobStatus {
	return domain.JobStatus{
		JobID:     job.ID,
		State:     job.State,
		Variable:  job.Variable,
		Status:    status,
		UpdatedAt: d.clock.Now().UTC(),
	}
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
