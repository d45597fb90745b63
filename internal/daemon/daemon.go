package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"mediasift/internal/config"
	"mediasift/internal/jobs"
	"mediasift/internal/logging"
	"mediasift/internal/pipeline"
)

// HealthChecker probes the chat-completions backend used by the moderation
// and summarization services.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies carries the composed subsystems the daemon coordinates.
// Composition happens in the entrypoint so tests can substitute fakes.
type Dependencies struct {
	Store    jobs.Store
	Registry *jobs.Registry
	Videos   *pipeline.VideoOrchestrator
	Images   *pipeline.ImageOrchestrator
	Health   HealthChecker
	Logger   *slog.Logger
}

// Daemon owns the HTTP API and the background job registry and enforces
// single-instance execution through a lock file.
type Daemon struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    jobs.Store
	registry *jobs.Registry
	videos   *pipeline.VideoOrchestrator
	images   *pipeline.ImageOrchestrator
	health   HealthChecker

	lockPath string
	lock     *flock.Flock
	api      *apiServer

	startedAt time.Time
	running   atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running          bool      `json:"running"`
	PID              int       `json:"pid"`
	UptimeSeconds    int64      `json:"uptime_seconds"`
	LockFilePath     string     `json:"lock_file_path"`
	JobsDatabasePath string     `json:"jobs_database_path,omitempty"`
	Jobs             jobs.Stats `json:"jobs"`
	LLM              LLMStatus  `json:"llm"`
}

// LLMStatus reports reachability of the chat-completions backend.
type LLMStatus struct {
	Configured bool   `json:"configured"`
	Reachable  bool   `json:"reachable"`
	Detail     string `json:"detail,omitempty"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Dependencies) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Registry == nil {
		return nil, errors.New("daemon requires config, store, and registry")
	}
	if deps.Videos == nil || deps.Images == nil {
		return nil, errors.New("daemon requires video and image orchestrators")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.Paths.LockPath
	return &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    deps.Store,
		registry: deps.Registry,
		videos:   deps.Videos,
		images:   deps.Images,
		health:   deps.Health,
		lockPath: lockPath,
		lock:     flock.New(lockPath),
	}, nil
}

// Start acquires the daemon lock and brings up the HTTP API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another mediasift daemon instance is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	api, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		d.releaseLock()
		return err
	}
	d.api = api
	if err := d.api.start(d.ctx); err != nil {
		d.releaseLock()
		d.api = nil
		return err
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("mediasift daemon started",
		logging.String("lock", d.lockPath),
		logging.String("bind", d.cfg.Paths.APIBind))
	return nil
}

// Stop shuts down the HTTP API and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	d.releaseLock()
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("mediasift daemon stopped")
}

// Close stops the daemon, waits for in-flight jobs, and closes the store.
func (d *Daemon) Close() error {
	d.Stop()
	if d.registry != nil {
		if err := d.registry.Close(); err != nil {
			return err
		}
	}
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

func (d *Daemon) releaseLock() {
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Addr returns the listen address of the HTTP API, or empty when not serving.
func (d *Daemon) Addr() string {
	if d.api == nil {
		return ""
	}
	return d.api.addr()
}

// Status returns the current daemon status, including backend reachability.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:          d.running.Load(),
		PID:              os.Getpid(),
		UptimeSeconds:    d.uptimeSeconds(),
		LockFilePath:     d.lockPath,
		JobsDatabasePath: d.cfg.Jobs.DatabasePath,
		Jobs:             d.registry.Stats(),
	}
	status.LLM.Configured = d.cfg.LLM.APIKey != ""
	if d.health == nil {
		status.LLM.Detail = "health check unavailable"
		return status
	}
	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.health.HealthCheck(checkCtx); err != nil {
		status.LLM.Detail = err.Error()
		return status
	}
	status.LLM.Reachable = true
	return status
}

func (d *Daemon) uptimeSeconds() int64 {
	if !d.running.Load() || d.startedAt.IsZero() {
		return 0
	}
	return int64(time.Since(d.startedAt).Seconds())
}
