package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/service"
	"github.com/noah-isme/kpi-engine-api/internal/utils"
)

// SchedulerHandler exposes scheduler introspection and manual job kicks.
type SchedulerHandler struct {
	scheduler *service.Scheduler
	logger    zerolog.Logger
}

// NewSchedulerHandler constructs a handler instance.
func NewSchedulerHandler(scheduler *service.Scheduler, logger zerolog.Logger) *SchedulerHandler {
	return &SchedulerHandler{
		scheduler: scheduler,
		logger:    logger.With().Str("component", "scheduler_handler").Logger(),
	}
}

// Register binds the scheduler routes.
func (h *SchedulerHandler) Register(router fiber.Router) {
	router.Get("/status", h.status)
	router.Post("/jobs/:name/run", h.runJob)
}

func (h *SchedulerHandler) status(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "scheduler status", h.scheduler.Status())
}

func (h *SchedulerHandler) runJob(c *fiber.Ctx) error {
	ctx := requestContext(c)

	var err error
	var result interface{}
	switch c.Params("name") {
	case service.JobDailyEvaluation:
		result, err = h.scheduler.RunDaily(ctx)
	case service.JobRealtimeTriggers:
		result, err = h.scheduler.RunRealtime(ctx)
	case service.JobMonthlyRollup:
		result, err = h.scheduler.RunMonthlyRollup(ctx)
	case service.JobEmailRetry:
		err = h.scheduler.RunEmailRetry(ctx)
	default:
		return utils.SendError(c, fiber.StatusNotFound, "unknown job")
	}

	if err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			return utils.SendError(c, fiber.StatusConflict, "job already running")
		}
		h.logger.Error().Err(err).Str("job", c.Params("name")).Msg("manual job run failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "job run failed")
	}

	return utils.SendSuccess(c, "job finished", result)
}
