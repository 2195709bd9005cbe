package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/config"
	"github.com/noah-isme/kpi-engine-api/internal/dto"
	"github.com/noah-isme/kpi-engine-api/internal/observability"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

// Scheduler job names.
const (
	JobDailyEvaluation   = "daily_evaluation"
	JobRealtimeTriggers  = "realtime_triggers"
	JobMonthlyRollup     = "monthly_rollup"
	JobEmailRetry        = "email_retry"
	emailRetrySweepLimit = 50
)

// ErrRunInProgress is returned when a job is asked to run while a previous
// run of the same job has not finished.
var ErrRunInProgress = errors.New("scheduler job already running")

type jobState struct {
	running      bool
	lastStarted  time.Time
	lastFinished time.Time
	lastError    string
	processed    int
	succeeded    int
	failed       int
	skipped      int
}

// Scheduler owns the periodic jobs: the daily full evaluation, the
// near-realtime sweep over recently active users, the monthly rollup of the
// closed period, and the failed-email retry loop. Jobs never overlap with
// themselves; a tick that lands mid-run is dropped.
type Scheduler struct {
	pipeline Pipeline
	emails   EmailDispatcher
	activity repository.ActivityRepository

	dailyRunHour       int
	realtimeInterval   time.Duration
	realtimeWindow     time.Duration
	emailRetryInterval time.Duration

	mu     sync.Mutex
	jobs   map[string]*jobState
	logger zerolog.Logger
	now    func() time.Time
}

// Pipeline is the subset of PipelineService the scheduler drives.
type Pipeline interface {
	RunForUsers(ctx context.Context, userIDs []uint, period, reason string) BatchResult
	RunForPeriod(ctx context.Context, period, reason string) (BatchResult, error)
}

// NewScheduler constructs the scheduler without starting any job loops.
func NewScheduler(
	pipeline Pipeline,
	emails EmailDispatcher,
	activity repository.ActivityRepository,
	cfg config.Config,
	logger zerolog.Logger,
) *Scheduler {
	return &Scheduler{
		pipeline:           pipeline,
		emails:             emails,
		activity:           activity,
		dailyRunHour:       cfg.DailyRunHour,
		realtimeInterval:   cfg.RealtimeInterval,
		realtimeWindow:     cfg.RealtimeWindow,
		emailRetryInterval: cfg.EmailRetryInterval,
		jobs: map[string]*jobState{
			JobDailyEvaluation:  {},
			JobRealtimeTriggers: {},
			JobMonthlyRollup:    {},
			JobEmailRetry:       {},
		},
		logger: logger.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Start launches the job loops. They stop when ctx is canceled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.dailyLoop(ctx)
	go s.realtimeLoop(ctx)
	go s.emailRetryLoop(ctx)

	s.logger.Info().
		Int("daily_run_hour", s.dailyRunHour).
		Dur("realtime_interval", s.realtimeInterval).
		Dur("email_retry_interval", s.emailRetryInterval).
		Msg("scheduler started")
}

// dailyLoop fires once per day at the configured hour. On the first day of a
// month it additionally rolls up the period that just closed.
func (s *Scheduler) dailyLoop(ctx context.Context) {
	for {
		wait := s.untilNextDailyRun()
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if _, err := s.RunDaily(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
			s.logger.Error().Err(err).Msg("daily evaluation run failed")
		}

		if s.now().Day() == 1 {
			if _, err := s.RunMonthlyRollup(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error().Err(err).Msg("monthly rollup failed")
			}
		}
	}
}

func (s *Scheduler) untilNextDailyRun() time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.dailyRunHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}

func (s *Scheduler) realtimeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.realtimeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunRealtime(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error().Err(err).Msg("realtime trigger sweep failed")
			}
		}
	}
}

func (s *Scheduler) emailRetryLoop(ctx context.Context) {
	ticker := time.NewTicker(s.emailRetryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.RunEmailRetry(ctx); err != nil && !errors.Is(err, ErrRunInProgress) {
				s.logger.Error().Err(err).Msg("email retry sweep failed")
			}
		}
	}
}

// RunDaily evaluates every active user for the current period.
func (s *Scheduler) RunDaily(ctx context.Context) (BatchResult, error) {
	return s.runBatchJob(ctx, JobDailyEvaluation, func(ctx context.Context) (BatchResult, error) {
		return s.pipeline.RunForPeriod(ctx, CurrentPeriod(s.now()), "scheduled daily evaluation")
	})
}

// RunRealtime evaluates only users with activity inside the realtime window,
// keeping trigger latency low between daily runs.
func (s *Scheduler) RunRealtime(ctx context.Context) (BatchResult, error) {
	return s.runBatchJob(ctx, JobRealtimeTriggers, func(ctx context.Context) (BatchResult, error) {
		since := s.now().Add(-s.realtimeWindow)
		userIDs, err := s.activity.UsersWithRecentActivity(ctx, since)
		if err != nil {
			return BatchResult{}, err
		}
		return s.pipeline.RunForUsers(ctx, userIDs, CurrentPeriod(s.now()), "realtime trigger sweep"), nil
	})
}

// RunMonthlyRollup re-evaluates every active user for the period that just
// closed, so late-arriving activity is settled into the final record.
func (s *Scheduler) RunMonthlyRollup(ctx context.Context) (BatchResult, error) {
	return s.runBatchJob(ctx, JobMonthlyRollup, func(ctx context.Context) (BatchResult, error) {
		return s.pipeline.RunForPeriod(ctx, PreviousPeriod(s.now()), "monthly rollup")
	})
}

// RunEmailRetry re-sends failed emails that have retry budget left.
func (s *Scheduler) RunEmailRetry(ctx context.Context) error {
	if err := s.begin(JobEmailRetry); err != nil {
		return err
	}

	retried, recovered, err := s.emails.RetrySweep(ctx, emailRetrySweepLimit)

	s.mu.Lock()
	state := s.jobs[JobEmailRetry]
	state.running = false
	state.lastFinished = s.now()
	state.processed = retried
	state.succeeded = recovered
	state.failed = retried - recovered
	state.skipped = 0
	state.lastError = ""
	if err != nil {
		state.lastError = err.Error()
	}
	s.mu.Unlock()

	if err != nil {
		observability.SchedulerRunsTotal().WithLabelValues(JobEmailRetry, "failed").Inc()
		return err
	}
	observability.SchedulerRunsTotal().WithLabelValues(JobEmailRetry, "completed").Inc()
	if retried > 0 {
		s.logger.Info().Int("retried", retried).Int("recovered", recovered).Msg("email retry sweep finished")
	}
	return nil
}

func (s *Scheduler) runBatchJob(ctx context.Context, name string, run func(ctx context.Context) (BatchResult, error)) (BatchResult, error) {
	if err := s.begin(name); err != nil {
		return BatchResult{}, err
	}

	result, err := run(ctx)

	s.mu.Lock()
	state := s.jobs[name]
	state.running = false
	state.lastFinished = s.now()
	state.processed = result.Total
	state.succeeded = result.Succeeded
	state.failed = result.Failed
	state.skipped = result.Skipped
	state.lastError = ""
	if err != nil {
		state.lastError = err.Error()
	}
	s.mu.Unlock()

	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	observability.SchedulerRunsTotal().WithLabelValues(name, outcome).Inc()

	if err == nil {
		s.logger.Info().
			Str("job", name).
			Int("total", result.Total).
			Int("succeeded", result.Succeeded).
			Int("failed", result.Failed).
			Int("skipped", result.Skipped).
			Msg("scheduler job finished")
	}
	return result, err
}

func (s *Scheduler) begin(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.jobs[name]
	if state.running {
		observability.SchedulerRunsTotal().WithLabelValues(name, "skipped").Inc()
		return ErrRunInProgress
	}
	state.running = true
	state.lastStarted = s.now()
	return nil
}

// Status snapshots every job, sorted by name for stable output.
func (s *Scheduler) Status() dto.SchedulerStatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	jobs := make([]dto.JobStatusResponse, 0, len(names))
	for _, name := range names {
		state := s.jobs[name]
		job := dto.JobStatusResponse{
			Name:      name,
			Running:   state.running,
			LastError: state.lastError,
			Processed: state.processed,
			Succeeded: state.succeeded,
			Failed:    state.failed,
			Skipped:   state.skipped,
		}
		if !state.lastStarted.IsZero() {
			started := state.lastStarted
			job.LastStarted = &started
		}
		if !state.lastFinished.IsZero() {
			finished := state.lastFinished
			job.LastFinished = &finished
		}
		jobs = append(jobs, job)
	}

	return dto.SchedulerStatusResponse{Jobs: jobs}
}
