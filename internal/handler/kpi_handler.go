package handler

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/dto"
	"github.com/noah-isme/kpi-engine-api/internal/service"
	"github.com/noah-isme/kpi-engine-api/internal/utils"
)

// KPIHandler exposes the evaluation pipeline and its read side.
type KPIHandler struct {
	pipeline  service.PipelineService
	queries   service.QueryService
	activity  service.ActivityRecorder
	validator *validator.Validate
	logger    zerolog.Logger
	now       func() time.Time
}

// NewKPIHandler constructs a handler instance.
func NewKPIHandler(
	pipeline service.PipelineService,
	queries service.QueryService,
	activity service.ActivityRecorder,
	validator *validator.Validate,
	logger zerolog.Logger,
) *KPIHandler {
	return &KPIHandler{
		pipeline:  pipeline,
		queries:   queries,
		activity:  activity,
		validator: validator,
		logger:    logger.With().Str("component", "kpi_handler").Logger(),
		now:       time.Now,
	}
}

// Register binds the read routes on router and the run routes on runRouter,
// so the caller can guard manual runs with stricter middleware.
func (h *KPIHandler) Register(router, runRouter fiber.Router) {
	router.Get("/pending", h.pending)
	router.Get("/users/:id/history", h.history)

	runRouter.Post("/run", h.runForPeriod)
	runRouter.Post("/users/:id/run", h.runForUser)
}

func (h *KPIHandler) runForPeriod(c *fiber.Ctx) error {
	var req dto.RunForPeriodRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	period := req.Period
	if period == "" {
		period = service.CurrentPeriod(h.now())
	}
	reason := req.Reason
	if reason == "" {
		reason = "manual batch run"
	}

	ctx := requestContext(c)
	result, err := h.pipeline.RunForPeriod(ctx, period, reason)
	if err != nil {
		h.logger.Error().Err(err).Str("period", period).Msg("batch run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "batch run failed")
	}

	h.recordRun(c, "batch_run_triggered", period, nil)
	return utils.SendSuccess(c, "batch run finished", result)
}

func (h *KPIHandler) runForUser(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	var req dto.RunForUserRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}
	if err := h.validator.Struct(req); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	period := req.Period
	if period == "" {
		period = service.CurrentPeriod(h.now())
	}

	ctx := requestContext(c)
	result, err := h.pipeline.RunForUser(ctx, userID, period, req.Reason)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		h.logger.Error().Err(err).Uint("user_id", userID).Str("period", period).Msg("user run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "evaluation failed")
	}

	h.queries.InvalidateHistory(ctx, userID)
	h.recordRun(c, "user_run_triggered", period, &result.KPIRecordID)
	return utils.SendSuccess(c, "evaluation finished", result)
}

func (h *KPIHandler) pending(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	records, err := h.queries.PendingTriggers(requestContext(c), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list pending triggers")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list pending triggers")
	}

	return utils.SendSuccess(c, "pending triggers", records)
}

func (h *KPIHandler) history(c *fiber.Ctx) error {
	userID, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	history, err := h.queries.TriggerHistory(requestContext(c), userID, limit)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "user not found")
		}
		h.logger.Error().Err(err).Uint("user_id", userID).Msg("failed to load trigger history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to load trigger history")
	}

	return utils.SendSuccess(c, "trigger history", history)
}

func (h *KPIHandler) recordRun(c *fiber.Ctx, action, period string, entityID *uint) {
	err := h.activity.Record(requestContext(c), service.ActivityEntry{
		Actor:      activityActorFromContext(c),
		Action:     action,
		EntityType: "kpi_record",
		EntityID:   entityID,
		Metadata:   map[string]interface{}{"period": period},
	})
	if err != nil {
		h.logger.Warn().Err(err).Str("action", action).Msg("failed to record activity")
	}
}
