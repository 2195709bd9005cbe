package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/kpi-engine-api/internal/config"
	"github.com/noah-isme/kpi-engine-api/internal/dto"
	"github.com/noah-isme/kpi-engine-api/internal/handler"
	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/service"
)

type stubActivityRepo struct {
	recent []uint
}

func (s *stubActivityRepo) WorkRecordsInRange(context.Context, uint, time.Time, time.Time) ([]models.WorkRecord, error) {
	return nil, nil
}

func (s *stubActivityRepo) NeighborChecksInRange(context.Context, uint, time.Time, time.Time) ([]models.NeighborCheck, error) {
	return nil, nil
}

func (s *stubActivityRepo) AppSessionsInRange(context.Context, uint, time.Time, time.Time) ([]models.AppSession, error) {
	return nil, nil
}

func (s *stubActivityRepo) UsersWithRecentActivity(context.Context, time.Time) ([]uint, error) {
	return s.recent, nil
}

type stubDispatcher struct {
	retried, recovered int
}

func (s *stubDispatcher) Dispatch(context.Context, *models.EmailDispatchLog, string) error {
	return nil
}

func (s *stubDispatcher) RetrySweep(context.Context, int) (int, int, error) {
	return s.retried, s.recovered, nil
}

func newSchedulerTestApp(pipeline *mockPipeline) *fiber.App {
	cfg := config.Config{
		DailyRunHour:       2,
		RealtimeInterval:   time.Minute,
		RealtimeWindow:     15 * time.Minute,
		EmailRetryInterval: time.Minute,
	}
	scheduler := service.NewScheduler(pipeline, &stubDispatcher{retried: 2, recovered: 1}, &stubActivityRepo{recent: []uint{7}}, cfg, zerolog.New(io.Discard))

	app := fiber.New()
	group := app.Group("/api/v1/scheduler", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(42))
		c.Locals("user_role", models.RoleManager)
		return c.Next()
	})
	handler.NewSchedulerHandler(scheduler, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestSchedulerHandler_StatusListsJobs(t *testing.T) {
	app := newSchedulerTestApp(&mockPipeline{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/scheduler/status", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data dto.SchedulerStatusResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Len(t, response.Data.Jobs, 4)
	for _, job := range response.Data.Jobs {
		require.False(t, job.Running)
	}
}

func TestSchedulerHandler_RunDailyJob(t *testing.T) {
	pipeline := &mockPipeline{batch: service.BatchResult{Total: 2, Succeeded: 2}}
	app := newSchedulerTestApp(pipeline)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/daily_evaluation/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Data service.BatchResult `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.Equal(t, 2, response.Data.Total)
	require.Len(t, pipeline.lastPeriod, 7)
}

func TestSchedulerHandler_RunRealtimeJob(t *testing.T) {
	pipeline := &mockPipeline{batch: service.BatchResult{Total: 1, Succeeded: 1}}
	app := newSchedulerTestApp(pipeline)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/realtime_triggers/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSchedulerHandler_RunEmailRetryJob(t *testing.T) {
	app := newSchedulerTestApp(&mockPipeline{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/email_retry/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestSchedulerHandler_UnknownJob(t *testing.T) {
	app := newSchedulerTestApp(&mockPipeline{})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/v1/scheduler/jobs/defrag_disk/run", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
