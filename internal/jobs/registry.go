package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"mediasift/internal/logging"
	"mediasift/internal/pipeline"
	"mediasift/internal/services"
)

// Registry schedules pipeline runs in the background and tracks their
// status. Submissions return immediately; callers poll with Get. A bounded
// semaphore admits at most MaxConcurrent runs at a time; further submissions
// queue rather than being rejected.
type Registry struct {
	store  Store
	videos *pipeline.VideoOrchestrator
	images *pipeline.ImageOrchestrator
	logger *slog.Logger

	// sem is nil when concurrency is unlimited.
	sem chan struct{}

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	submitted atomic.Int64
	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Stats is a point-in-time census of registry activity since startup.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// MaxConcurrent bounds simultaneous background runs. Zero means
	// unlimited.
	MaxConcurrent int
	Logger        *slog.Logger
}

// NewRegistry creates a job registry backed by the given store.
func NewRegistry(store Store, videos *pipeline.VideoOrchestrator, images *pipeline.ImageOrchestrator, opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	var sem chan struct{}
	if opts.MaxConcurrent > 0 {
		sem = make(chan struct{}, opts.MaxConcurrent)
	}
	return &Registry{
		store:   store,
		videos:  videos,
		images:  images,
		logger:  logger.With(logging.String(logging.FieldComponent, "jobs")),
		sem:     sem,
		baseCtx: baseCtx,
		cancel:  cancel,
		cancels: make(map[string]context.CancelFunc),
	}
}

// SubmitVideo schedules a video pipeline run and returns its job ID.
func (r *Registry) SubmitVideo(ctx context.Context, req pipeline.VideoRequest) (string, error) {
	return r.submit(ctx, KindVideo, func(ctx context.Context) (any, error) {
		return r.videos.Process(ctx, req)
	})
}

// SubmitImage schedules an image pipeline run and returns its job ID.
func (r *Registry) SubmitImage(ctx context.Context, req pipeline.ImageRequest) (string, error) {
	return r.submit(ctx, KindImage, func(ctx context.Context) (any, error) {
		return r.images.Process(ctx, req)
	})
}

func (r *Registry) submit(ctx context.Context, kind Kind, run func(context.Context) (any, error)) (string, error) {
	job := &Job{
		ID:        uuid.NewString(),
		State:     StatePending,
		Kind:      kind,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("record pending job: %w", err)
	}

	runCtx, cancelRun := context.WithCancel(r.baseCtx)

	// The closed check, cancel registration, and wg.Add share one critical
	// section so Close cannot slip in between and wait on a zero WaitGroup
	// while this run is still being admitted.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		cancelRun()
		r.abandon(job)
		return "", services.Wrap(services.ErrValidation, "jobs", "submit", "registry is closed", nil)
	}
	r.cancels[job.ID] = cancelRun
	r.submitted.Add(1)
	r.active.Add(1)
	r.wg.Add(1)
	r.mu.Unlock()

	go r.execute(runCtx, job, run)

	r.logger.Info("job submitted",
		logging.String(logging.FieldEventType, "job_submitted"),
		logging.String(logging.FieldJobID, job.ID),
		logging.String("pipeline_type", string(kind)))
	return job.ID, nil
}

func (r *Registry) execute(ctx context.Context, job *Job, run func(context.Context) (any, error)) {
	defer r.wg.Done()
	defer r.releaseCancel(job.ID)

	if r.sem != nil {
		select {
		case r.sem <- struct{}{}:
			defer func() { <-r.sem }()
		case <-ctx.Done():
			r.finish(job, nil, ctx.Err())
			return
		}
	}

	ctx = services.WithJobID(ctx, job.ID)
	logger := logging.WithContext(ctx, r.logger)

	job.State = StateProcessing
	if err := r.store.Put(ctx, job); err != nil {
		logger.Error("record processing state failed", logging.Error(err))
	}

	var (
		result any
		runErr error
	)
	func() {
		// A panicking orchestrator must still leave the job in a terminal
		// state instead of processing forever.
		defer func() {
			if rec := recover(); rec != nil {
				runErr = fmt.Errorf("pipeline panic: %v", rec)
				logger.Error("pipeline panicked",
					logging.String(logging.FieldEventType, "job_panic"),
					logging.Any("panic", rec))
			}
		}()
		result, runErr = run(ctx)
	}()

	r.finish(job, result, runErr)

	if runErr != nil {
		logger.Error("job failed",
			logging.String(logging.FieldEventType, "job_failed"),
			logging.Error(runErr))
		return
	}
	logger.Info("job completed",
		logging.String(logging.FieldEventType, "job_completed"))
}

func (r *Registry) finish(job *Job, result any, runErr error) {
	completed := time.Now().UTC()
	job.CompletedAt = &completed
	if runErr != nil {
		job.State = StateFailed
		job.Error = runErr.Error()
	} else {
		payload, err := json.Marshal(result)
		if err != nil {
			job.State = StateFailed
			job.Error = fmt.Sprintf("encode result: %v", err)
		} else {
			job.State = StateCompleted
			job.Result = payload
		}
	}
	// Counters settle before the terminal state becomes observable so a
	// poller never sees a completed job still counted as active.
	r.active.Add(-1)
	if job.State == StateFailed {
		r.failed.Add(1)
	} else {
		r.completed.Add(1)
	}
	// Store with a fresh context: the run context may already be canceled.
	if err := r.store.Put(context.Background(), job); err != nil {
		r.logger.Error("record terminal job state failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

// abandon marks a pending record terminal when the registry closed before
// its run could be admitted.
func (r *Registry) abandon(job *Job) {
	completed := time.Now().UTC()
	job.CompletedAt = &completed
	job.State = StateFailed
	job.Error = "registry closed before job started"
	if err := r.store.Put(context.Background(), job); err != nil {
		r.logger.Error("record abandoned job failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func (r *Registry) releaseCancel(id string) {
	r.mu.Lock()
	if cancel, ok := r.cancels[id]; ok {
		cancel()
		delete(r.cancels, id)
	}
	r.mu.Unlock()
}

// Stats reports cumulative and in-flight job counts.
func (r *Registry) Stats() Stats {
	return Stats{
		Submitted: r.submitted.Load(),
		Active:    r.active.Load(),
		Completed: r.completed.Load(),
		Failed:    r.failed.Load(),
	}
}

// Get returns a snapshot of the job's current status.
func (r *Registry) Get(ctx context.Context, id string) (*Job, error) {
	return r.store.Get(ctx, id)
}

// Cancel aborts a running job's context. It reports whether a live run was
// found; terminal jobs are unaffected.
func (r *Registry) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.cancels[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Close stops accepting submissions, cancels live runs, and waits for
// their goroutines to record terminal states.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
	return nil
}
