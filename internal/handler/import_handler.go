package handler

import (
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/kpi-engine-api/internal/service"
	"github.com/noah-isme/kpi-engine-api/internal/utils"
)

const maxImportBytes = 10 << 20

// ImportHandler accepts bulk metric uploads.
type ImportHandler struct {
	imports service.ImportService
	logger  zerolog.Logger
	now     func() time.Time
}

// NewImportHandler constructs a handler instance.
func NewImportHandler(imports service.ImportService, logger zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		imports: imports,
		logger:  logger.With().Str("component", "import_handler").Logger(),
		now:     time.Now,
	}
}

// Register binds the import routes.
func (h *ImportHandler) Register(router fiber.Router) {
	router.Post("/", h.importMetrics)
}

func (h *ImportHandler) importMetrics(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}
	if file.Size > maxImportBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}

	reader, err := file.Open()
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to open file")
	}
	defer reader.Close()

	data, err := io.ReadAll(io.LimitReader(reader, maxImportBytes+1))
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "failed to read file")
	}
	if len(data) > maxImportBytes {
		return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "file exceeds 10MB limit")
	}

	period := c.Query("period")
	if period == "" {
		period = service.CurrentPeriod(h.now())
	}
	submittedBy := c.Query("submitted_by", "bulk_import")

	result, err := h.imports.ImportCSV(requestContext(c), activityActorFromContext(c), data, period, submittedBy)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnsupportedFileType):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, service.ErrEmptyImport), errors.Is(err, service.ErrMissingHeader):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		default:
			h.logger.Error().Err(err).Str("period", period).Msg("metric import failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "import failed")
		}
	}

	return utils.SendSuccess(c, "import finished", result)
}
