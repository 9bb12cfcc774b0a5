// Package scheduler maintains per-user, per-period digest triggers and
// invokes the pipeline when they fire. Job identity is (user, period):
// registering a schedule for an occupied identity supersedes the previous
// trigger, and firings for one identity never overlap. A firing failure is
// logged and the job stays registered for its next natural tick.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/observability"
	"github.com/dkotenko/channel-digest/internal/platform/schedule"
	"github.com/dkotenko/channel-digest/internal/platform/worker"
)

// defaultTick is the trigger poll cadence. Shorter than a minute so a cron
// minute is never skipped when ticks drift across minute boundaries; the
// per-job last-fire guard prevents double firing within one minute.
const defaultTick = 20 * time.Second

// ScheduleStore persists schedule lifecycle state.
type ScheduleStore interface {
	SaveSchedule(ctx context.Context, s domain.Schedule) error
	DeactivateSchedule(ctx context.Context, userID int64, period domain.Period) error
	DeactivateSchedules(ctx context.Context, userID int64) error
	GetActiveSchedules(ctx context.Context) ([]domain.Schedule, error)
}

// Runner executes one digest generation for a window. Implemented by the
// pipeline.
type Runner interface {
	Run(ctx context.Context, userID int64, period domain.Period, from, to time.Time) error
}

// Config tunes scheduler policy.
type Config struct {
	// HourlyWindow is the sliding window for hourly digests.
	HourlyWindow time.Duration

	// Quiet suppresses hourly firings; daily/weekly/monthly ignore it.
	Quiet schedule.QuietHours

	// Tick overrides the trigger poll cadence (tests).
	Tick time.Duration

	// Now overrides the clock (tests).
	Now func() time.Time
}

type jobKey struct {
	UserID int64
	Period domain.Period
}

type job struct {
	schedule domain.Schedule
	trigger  schedule.Trigger

	mu       sync.Mutex
	running  bool
	lastFire time.Time
}

// tryAcquire marks the job as firing for the given minute. It refuses when a
// run is in flight or the minute was already fired.
func (j *job) tryAcquire(minute time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.running || j.lastFire.Equal(minute) {
		return false
	}

	j.running = true
	j.lastFire = minute

	return true
}

// claimMinute records the minute as handled without starting a run. Used
// when a firing is suppressed so later ticks in the same minute stay silent.
func (j *job) claimMinute(minute time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.lastFire.Equal(minute) {
		return false
	}

	j.lastFire = minute

	return true
}

func (j *job) release() {
	j.mu.Lock()
	j.running = false
	j.mu.Unlock()
}

// Scheduler owns the live triggers and the firing loop.
type Scheduler struct {
	store  ScheduleStore
	runner Runner
	cfg    Config
	logger *zerolog.Logger

	mu   sync.Mutex
	jobs map[jobKey]*job
	wg   sync.WaitGroup
}

// New creates a Scheduler.
func New(store ScheduleStore, runner Runner, cfg Config, logger *zerolog.Logger) *Scheduler {
	if cfg.HourlyWindow <= 0 {
		cfg.HourlyWindow = DefaultHourlyWindow
	}

	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}

	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Scheduler{
		store:  store,
		runner: runner,
		cfg:    cfg,
		logger: logger,
		jobs:   make(map[jobKey]*job),
	}
}

// Register validates the cron expression, persists the schedule, and
// replaces any live trigger with the same (user, period) identity.
// Registration is idempotent and last-write-wins.
func (s *Scheduler) Register(ctx context.Context, userID int64, period domain.Period, cronExpr string) error {
	trigger, err := schedule.ParseCron(cronExpr)
	if err != nil {
		return fmt.Errorf("register schedule: %w", err)
	}

	sched := domain.Schedule{
		UserID:    userID,
		Period:    period,
		CronExpr:  cronExpr,
		Active:    true,
		UpdatedAt: s.cfg.Now(),
	}

	if err := s.store.SaveSchedule(ctx, sched); err != nil {
		return fmt.Errorf("persist schedule: %w", err)
	}

	s.attach(sched, trigger)
	s.logger.Info().
		Int64("user_id", userID).
		Str("period", string(period)).
		Str("cron", cronExpr).
		Msg("schedule registered")

	return nil
}

// Remove deactivates the schedule for one period and cancels its trigger.
// A missing trigger is not an error.
func (s *Scheduler) Remove(ctx context.Context, userID int64, period domain.Period) error {
	if err := s.store.DeactivateSchedule(ctx, userID, period); err != nil {
		return fmt.Errorf("deactivate schedule: %w", err)
	}

	s.detach(jobKey{UserID: userID, Period: period})

	return nil
}

// RemoveAll deactivates every schedule of the user.
func (s *Scheduler) RemoveAll(ctx context.Context, userID int64) error {
	if err := s.store.DeactivateSchedules(ctx, userID); err != nil {
		return fmt.Errorf("deactivate schedules: %w", err)
	}

	s.mu.Lock()

	for key := range s.jobs {
		if key.UserID == userID {
			delete(s.jobs, key)
		}
	}

	count := len(s.jobs)
	s.mu.Unlock()

	observability.ActiveSchedules.Set(float64(count))

	return nil
}

// Restore loads all active schedules from the store into live triggers.
// Schedules with an invalid stored expression are logged and skipped.
func (s *Scheduler) Restore(ctx context.Context) error {
	schedules, err := s.store.GetActiveSchedules(ctx)
	if err != nil {
		return fmt.Errorf("load active schedules: %w", err)
	}

	for _, sched := range schedules {
		trigger, err := schedule.ParseCron(sched.CronExpr)
		if err != nil {
			s.logger.Error().Err(err).
				Int64("user_id", sched.UserID).
				Str("period", string(sched.Period)).
				Msg("stored schedule has invalid cron expression, skipping")

			continue
		}

		s.attach(sched, trigger)
	}

	s.logger.Info().Int("schedules", len(schedules)).Msg("schedules restored")

	return nil
}

// Run drives the trigger loop until the context is canceled, then waits for
// in-flight firings to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	err := worker.TickerLoop(ctx, worker.TickerConfig{
		Name:     "digest-scheduler",
		Interval: s.cfg.Tick,
		OnTick:   s.Tick,
		Logger:   s.logger,
	})

	s.wg.Wait()

	return err
}

// Tick checks every live trigger against the current minute and fires the
// matching jobs. Exported for deterministic tests with an injected clock.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.cfg.Now()
	minute := now.Truncate(time.Minute)

	s.mu.Lock()
	due := make([]*job, 0)

	for _, j := range s.jobs {
		if j.trigger.Matches(now) {
			due = append(due, j)
		}
	}
	s.mu.Unlock()

	for _, j := range due {
		s.fire(ctx, j, now, minute)
	}
}

// fire launches one asynchronous pipeline run for a due job. Quiet hours
// suppress hourly firings entirely; other periods ignore them.
func (s *Scheduler) fire(ctx context.Context, j *job, now, minute time.Time) {
	sched := j.schedule
	logger := s.logger.With().
		Int64("user_id", sched.UserID).
		Str("period", string(sched.Period)).
		Logger()

	if sched.Period == domain.PeriodHourly && s.cfg.Quiet.Contains(now) {
		if j.claimMinute(minute) {
			logger.Debug().Msg("hourly firing suppressed by quiet hours")
			observability.SchedulerFirings.WithLabelValues(string(sched.Period), observability.FiringQuietHours).Inc()
		}

		return
	}

	if !j.tryAcquire(minute) {
		logger.Warn().Msg("previous run still in flight, skipping firing")
		observability.SchedulerFirings.WithLabelValues(string(sched.Period), observability.FiringSkipped).Inc()

		return
	}

	s.wg.Add(1)

	// A started firing runs to completion or failure: shutdown stops the
	// ticker and waits for in-flight runs, it does not cancel them.
	runCtx := context.WithoutCancel(ctx)

	go func() {
		defer s.wg.Done()
		defer j.release()
		defer worker.RecoverPanic(&logger, "digest firing")

		from, to := Window(sched.Period, now, s.cfg.HourlyWindow)

		if err := s.runner.Run(runCtx, sched.UserID, sched.Period, from, to); err != nil {
			logger.Error().Err(err).Msg("digest firing failed")
			observability.SchedulerFirings.WithLabelValues(string(sched.Period), observability.FiringFailed).Inc()

			return
		}

		observability.SchedulerFirings.WithLabelValues(string(sched.Period), observability.FiringCompleted).Inc()
	}()
}

// RunNow executes an on-demand digest for the period's window ending at the
// current time. It bypasses the cron trigger and quiet hours, and unlike
// scheduled firings it surfaces errors to the caller: the user is waiting.
func (s *Scheduler) RunNow(ctx context.Context, userID int64, period domain.Period) error {
	now := s.cfg.Now()
	from, to := Window(period, now, s.cfg.HourlyWindow)

	return s.RunRange(ctx, userID, period, from, to)
}

// RunRange executes an on-demand digest for an explicit window.
func (s *Scheduler) RunRange(ctx context.Context, userID int64, period domain.Period, from, to time.Time) error {
	if err := s.runner.Run(ctx, userID, period, from, to); err != nil {
		return fmt.Errorf("on-demand digest: %w", err)
	}

	return nil
}

func (s *Scheduler) attach(sched domain.Schedule, trigger schedule.Trigger) {
	key := jobKey{UserID: sched.UserID, Period: sched.Period}

	s.mu.Lock()
	s.jobs[key] = &job{schedule: sched, trigger: trigger}
	count := len(s.jobs)
	s.mu.Unlock()

	observability.ActiveSchedules.Set(float64(count))
}

func (s *Scheduler) detach(key jobKey) {
	s.mu.Lock()
	delete(s.jobs, key)
	count := len(s.jobs)
	s.mu.Unlock()

	observability.ActiveSchedules.Set(float64(count))
}

// HasJob reports whether a live trigger exists for (user, period).
func (s *Scheduler) HasJob(userID int64, period domain.Period) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.jobs[jobKey{UserID: userID, Period: period}]

	return ok
}

// JobCount returns the number of live triggers.
func (s *Scheduler) JobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.jobs)
}

// CronExpr returns the live cron expression for (user, period), if any.
func (s *Scheduler) CronExpr(userID int64, period domain.Period) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[jobKey{UserID: userID, Period: period}]
	if !ok {
		return "", false
	}

	return j.schedule.CronExpr, true
}
