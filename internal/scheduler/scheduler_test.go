package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dkotenko/channel-digest/internal/core/domain"
	"github.com/dkotenko/channel-digest/internal/platform/schedule"
)

type fakeStore struct {
	mu     sync.Mutex
	saved  []domain.Schedule
	active []domain.Schedule

	saveErr error
}

func (f *fakeStore) SaveSchedule(_ context.Context, s domain.Schedule) error {
	if f.saveErr != nil {
		return f.saveErr
	}

	f.mu.Lock()
	f.saved = append(f.saved, s)
	f.mu.Unlock()

	return nil
}

func (f *fakeStore) DeactivateSchedule(_ context.Context, _ int64, _ domain.Period) error {
	return nil
}

func (f *fakeStore) DeactivateSchedules(_ context.Context, _ int64) error {
	return nil
}

func (f *fakeStore) GetActiveSchedules(_ context.Context) ([]domain.Schedule, error) {
	return f.active, nil
}

type runCall struct {
	ctx      context.Context
	userID   int64
	period   domain.Period
	from, to time.Time
}

type fakeRunner struct {
	calls chan runCall
	block chan struct{}
	err   error
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{calls: make(chan runCall, 16)}
}

func (f *fakeRunner) Run(ctx context.Context, userID int64, period domain.Period, from, to time.Time) error {
	f.calls <- runCall{ctx: ctx, userID: userID, period: period, from: from, to: to}

	if f.block != nil {
		<-f.block
	}

	return f.err
}

func (f *fakeRunner) waitCall(t *testing.T) runCall {
	t.Helper()

	select {
	case call := <-f.calls:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("runner was not invoked")

		return runCall{}
	}
}

func (f *fakeRunner) expectNoCall(t *testing.T) {
	t.Helper()

	select {
	case call := <-f.calls:
		t.Fatalf("unexpected runner invocation: %+v", call)
	case <-time.After(100 * time.Millisecond):
	}
}

type fixedClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newScheduler(t *testing.T, runner Runner, cfg Config) (*Scheduler, *fakeStore) {
	t.Helper()

	store := &fakeStore{}

	return New(store, runner, cfg, nil), store
}

func TestRegisterAttachesTrigger(t *testing.T) {
	runner := newFakeRunner()
	s, store := newScheduler(t, runner, Config{})

	if err := s.Register(context.Background(), 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if !s.HasJob(42, domain.PeriodDaily) {
		t.Error("job not attached after Register")
	}

	if len(store.saved) != 1 || !store.saved[0].Active {
		t.Errorf("schedule not persisted as active: %+v", store.saved)
	}
}

func TestRegisterInvalidCron(t *testing.T) {
	runner := newFakeRunner()
	s, store := newScheduler(t, runner, Config{})

	if err := s.Register(context.Background(), 42, domain.PeriodDaily, "not a cron"); err == nil {
		t.Fatal("Register accepted an invalid expression")
	}

	if len(store.saved) != 0 {
		t.Error("invalid schedule was persisted")
	}

	if s.JobCount() != 0 {
		t.Error("invalid schedule attached a trigger")
	}
}

func TestRegisterSupersedes(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatal(err)
	}

	if err := s.Register(ctx, 42, domain.PeriodDaily, "30 9 * * *"); err != nil {
		t.Fatal(err)
	}

	if s.JobCount() != 1 {
		t.Errorf("JobCount = %d, want 1 (same identity supersedes)", s.JobCount())
	}

	expr, ok := s.CronExpr(42, domain.PeriodDaily)
	if !ok || expr != "30 9 * * *" {
		t.Errorf("CronExpr = %q, want the later registration", expr)
	}
}

func TestTickFiresMatchingJob(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 2, 8, 0, 10, 0, time.UTC)}
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{Now: clock.Now})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatal(err)
	}

	s.Tick(ctx)

	call := runner.waitCall(t)
	if call.userID != 42 || call.period != domain.PeriodDaily {
		t.Errorf("fired %+v, want user 42 daily", call)
	}

	if got := call.to.Sub(call.from); got != 24*time.Hour {
		t.Errorf("window = %v, want 24h", got)
	}
}

func TestTickDoesNotDoubleFireWithinMinute(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 2, 8, 0, 10, 0, time.UTC)}
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{Now: clock.Now})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatal(err)
	}

	s.Tick(ctx)
	runner.waitCall(t)

	// Later tick within the same minute.
	clock.Set(time.Date(2026, 3, 2, 8, 0, 40, 0, time.UTC))
	s.Tick(ctx)
	runner.expectNoCall(t)
}

func TestTickSkipsWhileRunInFlight(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 2, 8, 0, 10, 0, time.UTC)}
	runner := newFakeRunner()
	runner.block = make(chan struct{})

	s, _ := newScheduler(t, runner, Config{Now: clock.Now})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodHourly, "0 * * * *"); err != nil {
		t.Fatal(err)
	}

	s.Tick(ctx)
	runner.waitCall(t)

	// Next matching minute arrives while the first run is still blocked.
	clock.Set(time.Date(2026, 3, 2, 9, 0, 10, 0, time.UTC))
	s.Tick(ctx)
	runner.expectNoCall(t)

	close(runner.block)
}

func TestShutdownDoesNotCancelInFlightFiring(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 2, 8, 0, 10, 0, time.UTC)}
	runner := newFakeRunner()
	runner.block = make(chan struct{})

	s, _ := newScheduler(t, runner, Config{Now: clock.Now})

	ctx, cancel := context.WithCancel(context.Background())

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatal(err)
	}

	s.Tick(ctx)

	call := runner.waitCall(t)

	// Shutdown arrives while the run is in flight.
	cancel()

	if err := call.ctx.Err(); err != nil {
		t.Errorf("firing context canceled by shutdown: %v", err)
	}

	close(runner.block)
}

func TestQuietHoursSuppressHourlyOnly(t *testing.T) {
	quiet, err := schedule.ParseQuietHours("23-07")
	if err != nil {
		t.Fatal(err)
	}

	clock := &fixedClock{now: time.Date(2026, 3, 2, 23, 0, 10, 0, time.UTC)}
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{Now: clock.Now, Quiet: quiet})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodHourly, "0 * * * *"); err != nil {
		t.Fatal(err)
	}

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 23 * * *"); err != nil {
		t.Fatal(err)
	}

	s.Tick(ctx)

	// The daily job fires; the hourly one is suppressed.
	call := runner.waitCall(t)
	if call.period != domain.PeriodDaily {
		t.Errorf("fired period = %q, want daily", call.period)
	}

	runner.expectNoCall(t)

	// Outside quiet hours the hourly job fires again.
	clock.Set(time.Date(2026, 3, 2, 12, 0, 10, 0, time.UTC))
	s.Tick(ctx)

	call = runner.waitCall(t)
	if call.period != domain.PeriodHourly {
		t.Errorf("fired period = %q, want hourly", call.period)
	}
}

func TestRemoveDetachesTrigger(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{})
	ctx := context.Background()

	if err := s.Register(ctx, 42, domain.PeriodDaily, "0 8 * * *"); err != nil {
		t.Fatal(err)
	}

	if err := s.Remove(ctx, 42, domain.PeriodDaily); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	if s.HasJob(42, domain.PeriodDaily) {
		t.Error("job still attached after Remove")
	}

	// Removing a schedule that does not exist is not an error.
	if err := s.Remove(ctx, 42, domain.PeriodWeekly); err != nil {
		t.Errorf("Remove of missing schedule returned error: %v", err)
	}
}

func TestRemoveAll(t *testing.T) {
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{})
	ctx := context.Background()

	for _, p := range []domain.Period{domain.PeriodHourly, domain.PeriodDaily} {
		if err := s.Register(ctx, 42, p, "0 8 * * *"); err != nil {
			t.Fatal(err)
		}
	}

	if err := s.Register(ctx, 7, domain.PeriodDaily, "0 9 * * *"); err != nil {
		t.Fatal(err)
	}

	if err := s.RemoveAll(ctx, 42); err != nil {
		t.Fatalf("RemoveAll returned error: %v", err)
	}

	if s.JobCount() != 1 {
		t.Errorf("JobCount = %d, want 1 (other user unaffected)", s.JobCount())
	}

	if !s.HasJob(7, domain.PeriodDaily) {
		t.Error("unrelated user's job was removed")
	}
}

func TestRestoreSkipsInvalidStoredCron(t *testing.T) {
	runner := newFakeRunner()
	store := &fakeStore{active: []domain.Schedule{
		{UserID: 1, Period: domain.PeriodDaily, CronExpr: "0 8 * * *", Active: true},
		{UserID: 2, Period: domain.PeriodDaily, CronExpr: "corrupted", Active: true},
	}}

	s := New(store, runner, Config{}, nil)

	if err := s.Restore(context.Background()); err != nil {
		t.Fatalf("Restore returned error: %v", err)
	}

	if s.JobCount() != 1 {
		t.Errorf("JobCount = %d, want 1 (invalid expression skipped)", s.JobCount())
	}

	if !s.HasJob(1, domain.PeriodDaily) {
		t.Error("valid schedule not restored")
	}
}

func TestRunNowSurfacesRunnerError(t *testing.T) {
	runner := newFakeRunner()
	runner.err = errors.New("pipeline exploded")

	s, _ := newScheduler(t, runner, Config{})

	err := s.RunNow(context.Background(), 42, domain.PeriodDaily)
	if err == nil || !errors.Is(err, runner.err) {
		t.Errorf("RunNow error = %v, want wrapped runner error", err)
	}
}

func TestRunNowUsesPeriodWindow(t *testing.T) {
	clock := &fixedClock{now: time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)}
	runner := newFakeRunner()
	s, _ := newScheduler(t, runner, Config{Now: clock.Now, HourlyWindow: 65 * time.Minute})

	if err := s.RunNow(context.Background(), 42, domain.PeriodHourly); err != nil {
		t.Fatalf("RunNow returned error: %v", err)
	}

	call := runner.waitCall(t)
	if got := call.to.Sub(call.from); got != 65*time.Minute {
		t.Errorf("hourly window = %v, want 65m", got)
	}

	if !call.to.Equal(clock.Now()) {
		t.Errorf("window end = %v, want now", call.to)
	}
}
