package daemon

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"curator/internal/config"
	"curator/internal/logging"
	"curator/internal/pipeline"
	"curator/internal/store"
)

// ErrNotRunning is returned by TriggerCycle before Start or after Stop.
var ErrNotRunning = errors.New("daemon not running")

// Cycler runs one processing cycle.
type Cycler interface {
	RunCycle(ctx context.Context) (pipeline.CycleSummary, error)
}

// BotRunner is a long-running message loop.
type BotRunner interface {
	Run(ctx context.Context) error
}

// StatsStore reports source counts and recent publications.
type StatsStore interface {
	Stats(ctx context.Context) (store.Stats, error)
	RecentPosts(ctx context.Context, limit int) ([]store.Post, error)
}

// Deps carries the collaborators of a Daemon. Bot is optional.
type Deps struct {
	Store  StatsStore
	Cycler Cycler
	Bot    BotRunner
	Logger *slog.Logger
}

// Daemon schedules cycles and enforces single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger
	store  StatsStore
	cycler Cycler
	bot    BotRunner
	times  []string
	now    func() time.Time

	lockPath string
	unlock   func() error

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	trigger chan struct{}
	api     *apiServer

	mu          sync.Mutex
	cycleActive bool
	lastCycle   *pipeline.CycleSummary
	lastError   string
	nextRun     time.Time
}

// Status represents daemon runtime information.
type Status struct {
	Running      bool                   `json:"running"`
	CycleActive  bool                   `json:"cycle_active"`
	LastCycle    *pipeline.CycleSummary `json:"last_cycle,omitempty"`
	LastError    string                 `json:"last_error,omitempty"`
	NextRun      *time.Time             `json:"next_run,omitempty"`
	Sources      store.Stats            `json:"sources"`
	DatabasePath string                 `json:"database_path"`
	LockFilePath string                 `json:"lock_file_path"`
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, deps Deps) (*Daemon, error) {
	if cfg == nil || deps.Store == nil || deps.Cycler == nil {
		return nil, errors.New("daemon requires config, store, and cycler")
	}
	logger := logging.NewComponentLogger(deps.Logger, "daemon")
	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:      cfg,
		logger:   logger,
		store:    deps.Store,
		cycler:   deps.Cycler,
		bot:      deps.Bot,
		times:    append([]string(nil), cfg.Schedule.Times...),
		now:      time.Now,
		lockPath: lockPath,
	}
	d.api = newAPIServer(cfg.API, d, deps.Logger)
	return d, nil
}

// Start acquires the daemon lock and launches the scheduler, the bot loop,
// and the status API.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	unlock, err := AcquireLock(d.lockPath)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.api.start(runCtx); err != nil {
		cancel()
		_ = unlock()
		return err
	}
	d.unlock = unlock
	d.cancel = cancel
	d.trigger = make(chan struct{}, 1)
	d.running.Store(true)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.schedule(runCtx)
	}()
	if d.bot != nil {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.bot.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				logging.ErrorWithContext(d.logger, "telegram bot stopped", "bot_stopped",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check telegram.token and network access"),
				)
			}
		}()
	}

	d.logger.Info("curator daemon started",
		logging.String("lock", d.lockPath),
		logging.Strings("schedule", d.times),
		logging.Bool("run_on_start", d.cfg.Schedule.RunOnStart),
	)
	return nil
}

// Stop halts the scheduler and the bot, waits for an active cycle to end,
// and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.api.stop()
	d.wg.Wait()
	if err := d.unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("curator daemon stopped")
}

// TriggerCycle queues a cycle to run as soon as the scheduler is free. It
// returns pipeline.ErrCycleRunning when a cycle is already active or queued.
func (d *Daemon) TriggerCycle() error {
	if !d.running.Load() {
		return ErrNotRunning
	}
	d.mu.Lock()
	active := d.cycleActive
	d.mu.Unlock()
	if active {
		return pipeline.ErrCycleRunning
	}
	select {
	case d.trigger <- struct{}{}:
		return nil
	default:
		return pipeline.ErrCycleRunning
	}
}

// Status reports the daemon state. Source counts are best effort.
func (d *Daemon) Status(ctx context.Context) Status {
	d.mu.Lock()
	status := Status{
		Running:      d.running.Load(),
		CycleActive:  d.cycleActive,
		LastError:    d.lastError,
		DatabasePath: d.cfg.Paths.Database,
		LockFilePath: d.lockPath,
	}
	if d.lastCycle != nil {
		summary := *d.lastCycle
		status.LastCycle = &summary
	}
	if !d.nextRun.IsZero() {
		next := d.nextRun
		status.NextRun = &next
	}
	d.mu.Unlock()

	stats, err := d.store.Stats(ctx)
	if err != nil {
		d.logger.Warn("source stats unavailable", logging.Error(err))
	}
	status.Sources = stats
	return status
}

// RecentPosts returns the latest publications, newest first.
func (d *Daemon) RecentPosts(ctx context.Context, limit int) ([]store.Post, error) {
	return d.store.RecentPosts(ctx, limit)
}

func (d *Daemon) schedule(ctx context.Context) {
	if d.cfg.Schedule.RunOnStart {
		d.runCycle(ctx)
	}
	for {
		next := NextRun(d.now(), d.times)
		d.setNextRun(next)

		var (
			timer *time.Timer
			fire  <-chan time.Time
		)
		if !next.IsZero() {
			timer = time.NewTimer(next.Sub(d.now()))
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			stopTimer(timer)
			return
		case <-fire:
		case <-d.trigger:
			stopTimer(timer)
		}
		d.runCycle(ctx)
	}
}

func (d *Daemon) runCycle(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	d.mu.Lock()
	d.cycleActive = true
	d.mu.Unlock()

	summary, err := d.cycler.RunCycle(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.cycleActive = false
	switch {
	case errors.Is(err, pipeline.ErrCycleRunning):
		d.logger.Info("cycle skipped; another cycle is running")
	case err != nil:
		d.lastError = err.Error()
		if ctx.Err() == nil {
			logging.ErrorWithContext(d.logger, "cycle failed", "cycle_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "inspect the cycle log entries for the failing stage"),
			)
		}
	default:
		d.lastCycle = &summary
		d.lastError = ""
	}
}

func stopTimer(timer *time.Timer) {
	if timer != nil {
		timer.Stop()
	}
}

func (d *Daemon) setNextRun(next time.Time) {
	d.mu.Lock()
	d.nextRun = next
	d.mu.Unlock()
}

// NextRun returns the first scheduled time strictly after now. Each entry of
// times is a local HH:MM; invalid entries are ignored. A zero time means
// nothing is scheduled.
func NextRun(now time.Time, times []string) time.Time {
	var next time.Time
	for _, value := range times {
		clock, err := time.Parse("15:04", value)
		if err != nil {
			continue
		}
		candidate := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
		if !candidate.After(now) {
			candidate = time.Date(now.Year(), now.Month(), now.Day()+1, clock.Hour(), clock.Minute(), 0, 0, now.Location())
		}
		if next.IsZero() || candidate.Before(next) {
			next = candidate
		}
	}
	return next
}
