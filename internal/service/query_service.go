package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/dto"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

const historyDefaultLimit = 24

// QueryService serves the read side: pending trigger records and per-user
// trigger history. History responses are cached in Redis for a short TTL
// because supervisors poll them far more often than records change.
type QueryService interface {
	PendingTriggers(ctx context.Context, limit int) ([]dto.KPIRecordResponse, error)
	TriggerHistory(ctx context.Context, userID uint, limit int) (dto.TriggerHistoryResponse, error)
	InvalidateHistory(ctx context.Context, userID uint)
}

type queryService struct {
	kpiRecords repository.KPIRecordRepository
	trainings  repository.TrainingRepository
	audits     repository.AuditScheduleRepository
	identity   IdentityService
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
}

// NewQueryService constructs the read-side service. The cache client may be
// nil, in which case every call goes straight to the database.
func NewQueryService(
	kpiRecords repository.KPIRecordRepository,
	trainings repository.TrainingRepository,
	audits repository.AuditScheduleRepository,
	identity IdentityService,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) QueryService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}

	return &queryService{
		kpiRecords: kpiRecords,
		trainings:  trainings,
		audits:     audits,
		identity:   identity,
		cache:      cache,
		cacheTTL:   cacheTTL,
		logger:     logger.With().Str("component", "query_service").Logger(),
	}
}

func (q *queryService) PendingTriggers(ctx context.Context, limit int) ([]dto.KPIRecordResponse, error) {
	records, err := q.kpiRecords.ListPending(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending kpi records: %w", err)
	}
	return dto.NewKPIRecordResponseSlice(records), nil
}

func (q *queryService) TriggerHistory(ctx context.Context, userID uint, limit int) (dto.TriggerHistoryResponse, error) {
	if limit <= 0 {
		limit = historyDefaultLimit
	}

	// Only the default page size is cached; bespoke limits always hit the
	// database so invalidation stays a single-key delete.
	cacheable := limit == historyDefaultLimit
	key := historyCacheKey(userID)
	if cacheable {
		if cached, ok := q.fromCache(ctx, key); ok {
			return cached, nil
		}
	}

	if _, err := q.identity.Resolve(ctx, userID); err != nil {
		return dto.TriggerHistoryResponse{}, err
	}

	records, err := q.kpiRecords.ListByUser(ctx, userID, limit)
	if err != nil {
		return dto.TriggerHistoryResponse{}, fmt.Errorf("list kpi records: %w", err)
	}
	trainings, err := q.trainings.ListByUser(ctx, userID, limit)
	if err != nil {
		return dto.TriggerHistoryResponse{}, fmt.Errorf("list training assignments: %w", err)
	}
	audits, err := q.audits.ListByUser(ctx, userID, limit)
	if err != nil {
		return dto.TriggerHistoryResponse{}, fmt.Errorf("list audit schedules: %w", err)
	}

	history := dto.TriggerHistoryResponse{
		UserID:    userID,
		Records:   dto.NewKPIRecordResponseSlice(records),
		Trainings: make([]dto.TrainingAssignmentResponse, 0, len(trainings)),
		Audits:    make([]dto.AuditScheduleResponse, 0, len(audits)),
	}
	for _, assignment := range trainings {
		history.Trainings = append(history.Trainings, dto.NewTrainingAssignmentResponse(assignment))
	}
	for _, schedule := range audits {
		history.Audits = append(history.Audits, dto.NewAuditScheduleResponse(schedule))
	}

	if cacheable {
		q.toCache(ctx, key, history)
	}
	return history, nil
}

// InvalidateHistory drops the cached history page for a user.
func (q *queryService) InvalidateHistory(ctx context.Context, userID uint) {
	if q.cache == nil {
		return
	}

	if err := q.cache.Del(ctx, historyCacheKey(userID)).Err(); err != nil {
		q.logger.Debug().Err(err).Uint("user_id", userID).Msg("history cache invalidation failed")
	}
}

func (q *queryService) fromCache(ctx context.Context, key string) (dto.TriggerHistoryResponse, bool) {
	if q.cache == nil {
		return dto.TriggerHistoryResponse{}, false
	}

	payload, err := q.cache.Get(ctx, key).Bytes()
	if err != nil {
		return dto.TriggerHistoryResponse{}, false
	}

	var history dto.TriggerHistoryResponse
	if err := json.Unmarshal(payload, &history); err != nil {
		return dto.TriggerHistoryResponse{}, false
	}
	return history, true
}

func (q *queryService) toCache(ctx context.Context, key string, history dto.TriggerHistoryResponse) {
	if q.cache == nil {
		return
	}

	payload, err := json.Marshal(history)
	if err != nil {
		return
	}
	if err := q.cache.Set(ctx, key, payload, q.cacheTTL).Err(); err != nil {
		q.logger.Debug().Err(err).Str("key", key).Msg("history cache write failed")
	}
}

func historyCacheKey(userID uint) string {
	return fmt.Sprintf("kpi:history:%d", userID)
}
