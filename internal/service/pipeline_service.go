package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/observability"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

// EvaluationResult is the outcome of one per-user pipeline run.
type EvaluationResult struct {
	UserID       uint            `json:"user_id"`
	Period       string          `json:"period"`
	KPIRecordID  uint            `json:"kpi_record_id"`
	OverallScore int             `json:"overall_score"`
	Rating       string          `json:"rating"`
	Directives   int             `json:"directives"`
	Skipped      bool            `json:"skipped"`
	Report       ExecutionReport `json:"report"`
}

// UserRunError records one per-user failure inside a batch run.
type UserRunError struct {
	UserID uint   `json:"user_id"`
	Error  string `json:"error"`
}

// BatchResult summarizes a batch pipeline run.
type BatchResult struct {
	Period     string         `json:"period"`
	Reason     string         `json:"reason"`
	Total      int            `json:"total"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Failures   []UserRunError `json:"failures,omitempty"`
}

// PipelineService runs aggregate → score → evaluate → orchestrate for one
// user, and fans that out with bounded parallelism for batch runs.
type PipelineService interface {
	RunForUser(ctx context.Context, userID uint, period, reason string) (EvaluationResult, error)
	RunImported(ctx context.Context, user models.User, period string, metrics RawMetrics, submittedBy string) (EvaluationResult, error)
	RunForUsers(ctx context.Context, userIDs []uint, period, reason string) BatchResult
	RunForPeriod(ctx context.Context, period, reason string) (BatchResult, error)
}

type pipelineService struct {
	identity    IdentityService
	aggregator  MetricsAggregator
	kpiRecords  repository.KPIRecordRepository
	orchestrate Orchestrator
	concurrency int
	timeout     time.Duration
	logger      zerolog.Logger
	now         func() time.Time
}

// NewPipelineService constructs the pipeline.
func NewPipelineService(
	identity IdentityService,
	aggregator MetricsAggregator,
	kpiRecords repository.KPIRecordRepository,
	orchestrate Orchestrator,
	concurrency int,
	timeout time.Duration,
	logger zerolog.Logger,
) PipelineService {
	if concurrency <= 0 {
		concurrency = 8
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &pipelineService{
		identity:    identity,
		aggregator:  aggregator,
		kpiRecords:  kpiRecords,
		orchestrate: orchestrate,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger.With().Str("component", "pipeline_service").Logger(),
		now:         time.Now,
	}
}

func (p *pipelineService) RunForUser(ctx context.Context, userID uint, period, reason string) (EvaluationResult, error) {
	user, err := p.identity.Resolve(ctx, userID)
	if err != nil {
		return EvaluationResult{}, err
	}

	aggregateCtx, cancel := context.WithTimeout(ctx, p.timeout)
	metrics, err := p.aggregator.Aggregate(aggregateCtx, userID, period)
	cancel()
	if err != nil {
		return EvaluationResult{}, err
	}

	return p.run(ctx, user, period, metrics, "", reason)
}

func (p *pipelineService) RunImported(ctx context.Context, user models.User, period string, metrics RawMetrics, submittedBy string) (EvaluationResult, error) {
	return p.run(ctx, user, period, metrics, submittedBy, "bulk import")
}

func (p *pipelineService) run(ctx context.Context, user models.User, period string, metrics RawMetrics, submittedBy, reason string) (EvaluationResult, error) {
	tracer := otel.Tracer("github.com/noah-isme/kpi-engine-api/internal/service/pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.run")
	span.SetAttributes(
		attribute.Int64("kpi.user_id", int64(user.ID)),
		attribute.String("kpi.period", period),
	)
	defer span.End()

	card := Score(metrics)

	record, err := p.upsertRecord(ctx, user, period, metrics, card, submittedBy, reason)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record_upsert_failed")
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return EvaluationResult{}, err
	}

	result := EvaluationResult{
		UserID:       user.ID,
		Period:       period,
		KPIRecordID:  record.ID,
		OverallScore: card.Overall,
		Rating:       card.Rating,
	}

	claimCtx, cancel := context.WithTimeout(ctx, p.timeout)
	claimed, err := p.kpiRecords.ClaimPending(claimCtx, record.ID)
	cancel()
	if err != nil {
		span.RecordError(err)
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return EvaluationResult{}, fmt.Errorf("claim kpi record %d: %w", record.ID, err)
	}
	if !claimed {
		// Another run already owns this record's triggers.
		result.Skipped = true
		observability.EvaluationsTotal().WithLabelValues("skipped").Inc()
		return result, nil
	}
	// The claim flipped the row to processing; mirror it on the in-memory
	// record so the orchestrator's final save cannot revert the transition
	// and hand the record back to a concurrent cadence.
	record.AutomationStatus = models.AutomationProcessing

	directives := Evaluate(card, metrics)
	result.Directives = len(directives)

	report, execErr := p.orchestrate.Execute(ctx, user, &record, directives)
	result.Report = report

	status := models.AutomationCompleted
	if execErr != nil {
		status = models.AutomationFailed
	}

	statusCtx, cancel := context.WithTimeout(ctx, p.timeout)
	if err := p.kpiRecords.SetStatus(statusCtx, record.ID, status); err != nil {
		p.logger.Error().Err(err).Uint("kpi_record_id", record.ID).Msg("failed to finalize automation status")
	}
	cancel()

	if execErr != nil {
		span.RecordError(execErr)
		span.SetStatus(codes.Error, "orchestration_failed")
		observability.EvaluationsTotal().WithLabelValues("failed").Inc()
		return result, execErr
	}

	observability.EvaluationsTotal().WithLabelValues("completed").Inc()
	return result, nil
}

// upsertRecord finds the active record for (user, period) and mutates it in
// place, or creates the first one. All writers share this path; records are
// never inserted unconditionally.
func (p *pipelineService) upsertRecord(ctx context.Context, user models.User, period string, metrics RawMetrics, card Scorecard, submittedBy, reason string) (models.KPIRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	breakdown, err := json.Marshal(card.PerMetric)
	if err != nil {
		return models.KPIRecord{}, fmt.Errorf("encode breakdown: %w", err)
	}

	record, err := p.kpiRecords.FindActive(ctx, user.ID, period)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return models.KPIRecord{}, fmt.Errorf("find active kpi record: %w", err)
		}

		record = models.KPIRecord{
			UserID: user.ID,
			Period: period,
			Active: true,
		}
		applyEvaluation(&record, metrics, card, breakdown, submittedBy)
		appendAuditEntry(&record, models.AuditEntry{
			Action:    "record_created",
			Actor:     automationActorName,
			Timestamp: p.now(),
			Detail:    reason,
		})

		if err := p.kpiRecords.Create(ctx, &record); err != nil {
			return models.KPIRecord{}, fmt.Errorf("create kpi record: %w", err)
		}
		return record, nil
	}

	applyEvaluation(&record, metrics, card, breakdown, submittedBy)
	appendAuditEntry(&record, models.AuditEntry{
		Action:    "record_re_evaluated",
		Actor:     automationActorName,
		Timestamp: p.now(),
		Detail:    reason,
	})

	if err := p.kpiRecords.Update(ctx, &record); err != nil {
		return models.KPIRecord{}, fmt.Errorf("update kpi record: %w", err)
	}

	if err := p.kpiRecords.DeactivateOthers(ctx, user.ID, period, record.ID); err != nil {
		return models.KPIRecord{}, fmt.Errorf("deactivate superseded records: %w", err)
	}

	return record, nil
}

func applyEvaluation(record *models.KPIRecord, metrics RawMetrics, card Scorecard, breakdown []byte, submittedBy string) {
	record.TurnaroundTimePct = metrics.TurnaroundTime
	record.MajorNegativityPct = metrics.MajorNegativity
	record.QualityConcernPct = metrics.QualityConcern
	record.NeighborCheckPct = metrics.NeighborCheck
	record.GeneralNegPct = metrics.GeneralNegativity
	record.AppUsagePct = metrics.AppUsage
	record.InsufficiencyPct = metrics.Insufficiency
	record.Breakdown = datatypes.JSON(breakdown)
	record.OverallScore = card.Overall
	record.Rating = card.Rating
	record.AutomationStatus = models.AutomationPending
	if submittedBy != "" {
		record.SubmittedBy = submittedBy
	}
}

// RunForUsers evaluates the given users with bounded parallelism. Per-user
// failures are collected, never propagated; one slow or broken user cannot
// abort the batch.
func (p *pipelineService) RunForUsers(ctx context.Context, userIDs []uint, period, reason string) BatchResult {
	result := BatchResult{
		Period:    period,
		Reason:    reason,
		Total:     len(userIDs),
		StartedAt: p.now(),
	}

	var mu sync.Mutex
	var group errgroup.Group
	group.SetLimit(p.concurrency)

	for _, userID := range userIDs {
		id := userID
		group.Go(func() error {
			evaluation, err := p.RunForUser(ctx, id, period, reason)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed++
				result.Failures = append(result.Failures, UserRunError{UserID: id, Error: err.Error()})
				p.logger.Error().Err(err).Uint("user_id", id).Str("period", period).Msg("pipeline run failed for user")
			case evaluation.Skipped:
				result.Skipped++
			default:
				result.Succeeded++
			}
			return nil
		})
	}

	_ = group.Wait()
	result.FinishedAt = p.now()
	return result
}

func (p *pipelineService) RunForPeriod(ctx context.Context, period, reason string) (BatchResult, error) {
	users, err := p.identity.ListActive(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list active users: %w", err)
	}

	userIDs := make([]uint, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}

	return p.RunForUsers(ctx, userIDs, period, reason), nil
}
