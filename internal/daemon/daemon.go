package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"dengbej/internal/config"
	"dengbej/internal/deps"
	"dengbej/internal/dubbing"
	"dengbej/internal/jobs"
	"dengbej/internal/logging"
	"dengbej/internal/metrics"
	"dengbej/internal/notifications"
	"dengbej/internal/preflight"
	"dengbej/internal/progress"
	"dengbej/internal/staging"
)

// Daemon owns the HTTP service lifecycle and enforces single-instance execution.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	controller *dubbing.Controller
	store      *jobs.Store
	hub        *progress.Hub
	metrics    *metrics.Metrics
	notifier   notifications.Service

	lockPath  string
	lock      *flock.Flock
	scheduler *cron.Cron
	api       *apiServer

	sweepMu   sync.Mutex
	running   atomic.Bool
	startedAt time.Time
	cancel    context.CancelFunc
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                    `json:"running"`
	PID          int                     `json:"pid"`
	Mode         string                  `json:"mode"`
	Address      string                  `json:"address,omitempty"`
	Uptime       string                  `json:"uptime,omitempty"`
	JobsDBPath   string                  `json:"jobs_db_path,omitempty"`
	LockFilePath string                  `json:"lock_file_path"`
	Dependencies []deps.Status           `json:"dependencies"`
	Directories  []preflight.Result      `json:"directories"`
	Jobs         map[jobs.Status]int     `json:"jobs,omitempty"`
	LastSweep    *jobs.Sweep             `json:"last_sweep,omitempty"`
	Usage        map[string]DirectoryUse `json:"usage"`
}

// DirectoryUse summarizes the files held in a served or scratch directory.
type DirectoryUse struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Option configures optional Daemon collaborators.
type Option func(*Daemon)

// WithStore attaches the job ledger.
func WithStore(store *jobs.Store) Option {
	return func(d *Daemon) { d.store = store }
}

// WithHub attaches the progress hub served over websockets.
func WithHub(hub *progress.Hub) Option {
	return func(d *Daemon) { d.hub = hub }
}

// WithMetrics attaches the metrics registry served on /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Daemon) { d.metrics = m }
}

// WithNotifier sets the notification service used for sweep failures and tests.
func WithNotifier(notifier notifications.Service) Option {
	return func(d *Daemon) { d.notifier = notifier }
}

// New constructs a daemon around a ready controller.
func New(cfg *config.Config, controller *dubbing.Controller, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil || controller == nil {
		return nil, errors.New("daemon requires config and controller")
	}
	d := &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		controller: controller,
		lockPath:   cfg.LockPath(),
		lock:       flock.New(cfg.LockPath()),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.notifier == nil {
		d.notifier = notifications.NewService(cfg)
	}
	api, err := newAPIServer(cfg, d, logger)
	if err != nil {
		return nil, err
	}
	d.api = api
	return d, nil
}

// Start acquires the instance lock, clears scratch leftovers from a previous
// run, schedules sweeps and starts the HTTP listener.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another dengbej instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	orphans := staging.CleanOrphaned(runCtx, d.cfg.Paths.ScratchDir, nil, d.logger)
	if len(orphans.Removed) > 0 {
		d.logger.Info("removed scratch leftovers",
			logging.Int("count", len(orphans.Removed)),
			logging.Int64("bytes", orphans.RemovedBytes),
			logging.String(logging.FieldEventType, "scratch_orphans_removed"),
		)
	}
	d.logPreflight()

	if err := d.startScheduler(runCtx); err != nil {
		d.release(cancel)
		return err
	}
	if err := d.api.start(runCtx); err != nil {
		if d.scheduler != nil {
			d.scheduler.Stop()
			d.scheduler = nil
		}
		d.release(cancel)
		return fmt.Errorf("start api server: %w", err)
	}

	d.startedAt = time.Now()
	d.running.Store(true)
	d.logger.Info("dengbej daemon started",
		logging.String("lock", d.lockPath),
		logging.String("address", d.api.addr()),
		logging.String("mode", d.cfg.Pipeline.Mode),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	return nil
}

func (d *Daemon) release(cancel context.CancelFunc) {
	cancel()
	d.cancel = nil
	_ = d.lock.Unlock()
}

func (d *Daemon) startScheduler(ctx context.Context) error {
	schedule := d.cfg.Sweep.Schedule
	if schedule == "" {
		return nil
	}
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(schedule, func() { d.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", schedule, err)
	}
	scheduler.Start()
	d.scheduler = scheduler
	d.logger.Info("sweep scheduled", logging.String("schedule", schedule))
	return nil
}

func (d *Daemon) logPreflight() {
	for _, status := range preflight.CheckSystemDeps(d.cfg) {
		if status.Available {
			continue
		}
		impact := "requests needing it will fail"
		if status.Optional {
			impact = "optional feature disabled"
		}
		logging.WarnWithContext(d.logger, "dependency missing", "dependency_missing",
			logging.String("dependency", status.Name),
			logging.String("detail", status.Detail),
			logging.String(logging.FieldImpact, impact),
			logging.String(logging.FieldErrorHint, "install it or set its path in the config"),
		)
	}
	for _, result := range preflight.Failed(preflight.DirectoryChecks(d.cfg)) {
		logging.WarnWithContext(d.logger, "directory check failed", "preflight_failed",
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldImpact, "uploads will fail"),
			logging.String(logging.FieldErrorHint, "fix directory permissions"),
		)
	}
}

// Stop stops the listener and scheduler and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.scheduler != nil {
		<-d.scheduler.Stop().Done()
		d.scheduler = nil
	}
	d.api.stop()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		logging.WarnWithContext(d.logger, "failed to release daemon lock", "lock_release_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "next start may report another instance"),
			logging.String(logging.FieldErrorHint, "remove "+d.lockPath+" if no instance is running"),
		)
	}
	d.running.Store(false)
	d.logger.Info("dengbej daemon stopped", logging.String(logging.FieldEventType, "daemon_stopped"))
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	if d.store != nil {
		return d.store.Close()
	}
	return nil
}

// Addr reports the bound listener address once started.
func (d *Daemon) Addr() string {
	return d.api.addr()
}

// Handler exposes the HTTP routes without starting a listener.
func (d *Daemon) Handler() http.Handler {
	return d.api.server.Handler
}

// Sweep runs one cleanup pass. Overlapping calls wait for the running pass.
func (d *Daemon) Sweep(ctx context.Context) staging.SweepSummary {
	d.sweepMu.Lock()
	defer d.sweepMu.Unlock()

	var ledger staging.Ledger
	if d.store != nil {
		ledger = d.store
	}
	var observer staging.Observer
	if d.metrics != nil {
		observer = d.metrics
	}
	summary := staging.Sweep(ctx, staging.ConfigFromApp(d.cfg), ledger, observer, d.logger)
	if summary.ErrorCount() > 0 && d.notifier != nil {
		err := fmt.Errorf("%d files could not be removed", summary.ErrorCount())
		if nerr := d.notifier.NotifyError(ctx, err, "sweep"); nerr != nil {
			d.logger.Debug("sweep notification failed", logging.Error(nerr))
		}
	}
	return summary
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if d.cfg.Notifications.NtfyTopic == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.TestNotification(ctx); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		Mode:         d.cfg.Pipeline.Mode,
		Address:      d.api.addr(),
		LockFilePath: d.lockPath,
		Dependencies: preflight.CheckSystemDeps(d.cfg),
		Directories:  preflight.DirectoryChecks(d.cfg),
		Usage:        make(map[string]DirectoryUse, 2),
	}
	if status.Running {
		status.Uptime = time.Since(d.startedAt).Round(time.Second).String()
	}
	for area, dir := range map[string]string{
		staging.AreaScratch: d.cfg.Paths.ScratchDir,
		staging.AreaOutputs: d.cfg.Paths.OutputDir,
	} {
		count, bytes, err := staging.Usage(dir)
		if err != nil {
			d.logger.Debug("usage scan failed", logging.String("dir", dir), logging.Error(err))
			continue
		}
		status.Usage[area] = DirectoryUse{Files: count, Bytes: bytes}
	}
	if d.store != nil {
		status.JobsDBPath = d.store.Path()
		if stats, err := d.store.Stats(ctx); err == nil {
			status.Jobs = stats
		}
		if last, err := d.store.LastSweep(ctx); err == nil {
			status.LastSweep = last
		}
	}
	return status
}
