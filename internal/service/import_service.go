package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/noah-isme/kpi-engine-api/internal/dto"
)

// Import errors surfaced to handlers.
var (
	ErrUnsupportedFileType = errors.New("unsupported import file type")
	ErrEmptyImport         = errors.New("import file has no data rows")
	ErrMissingHeader       = errors.New("import file has no header row")
)

// Row schema for imported metric sheets. Only the employee code is mandatory;
// metric columns default to zero downstream when absent.
const importRowSchema = `{
	"type": "object",
	"properties": {
		"employee_code": {"type": "string", "minLength": 1}
	},
	"required": ["employee_code"]
}`

// ImportService ingests spreadsheet exports of pre-aggregated metrics and
// pushes each row through the evaluation pipeline. Rows fail independently;
// one malformed line never aborts the file.
type ImportService interface {
	ImportCSV(ctx context.Context, actor ActivityActor, data []byte, period, submittedBy string) (dto.ImportResultResponse, error)
}

type importService struct {
	identity  IdentityService
	aggregate MetricsAggregator
	pipeline  PipelineService
	activity  ActivityRecorder
	rowSchema *jsonschema.Schema
	logger    zerolog.Logger
}

// NewImportService constructs the bulk-import service.
func NewImportService(
	identity IdentityService,
	aggregate MetricsAggregator,
	pipeline PipelineService,
	activity ActivityRecorder,
	logger zerolog.Logger,
) (ImportService, error) {
	schema, err := jsonschema.CompileString("import_row.schema.json", importRowSchema)
	if err != nil {
		return nil, fmt.Errorf("compile import row schema: %w", err)
	}

	return &importService{
		identity:  identity,
		aggregate: aggregate,
		pipeline:  pipeline,
		activity:  activity,
		rowSchema: schema,
		logger:    logger.With().Str("component", "import_service").Logger(),
	}, nil
}

func (s *importService) ImportCSV(ctx context.Context, actor ActivityActor, data []byte, period, submittedBy string) (dto.ImportResultResponse, error) {
	mime := mimetype.Detect(data)
	if !mime.Is("text/csv") && !mime.Is("text/plain") {
		return dto.ImportResultResponse{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, mime.String())
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return dto.ImportResultResponse{}, ErrMissingHeader
	}
	columns := make([]string, len(header))
	for i, name := range header {
		columns[i] = normalizeColumn(name)
	}

	result := dto.ImportResultResponse{Period: period}
	rowNumber := 1

	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNumber++
		if err != nil {
			result.Total++
			result.Failed++
			result.Failures = append(result.Failures, dto.ImportRowFailure{Row: rowNumber, Reason: err.Error()})
			continue
		}

		result.Total++
		if err := s.importRow(ctx, columns, fields, period, submittedBy); err != nil {
			result.Failed++
			result.Failures = append(result.Failures, dto.ImportRowFailure{Row: rowNumber, Reason: err.Error()})
			continue
		}
		result.Succeeded++
	}

	if result.Total == 0 {
		return dto.ImportResultResponse{}, ErrEmptyImport
	}

	s.recordImport(ctx, actor, period, result)
	s.logger.Info().
		Str("period", period).
		Int("total", result.Total).
		Int("succeeded", result.Succeeded).
		Int("failed", result.Failed).
		Msg("metric import finished")
	return result, nil
}

func (s *importService) importRow(ctx context.Context, columns, fields []string, period, submittedBy string) error {
	row := make(map[string]interface{}, len(columns))
	for i, column := range columns {
		if i >= len(fields) {
			break
		}
		row[column] = strings.TrimSpace(fields[i])
	}

	if err := s.rowSchema.Validate(map[string]interface{}(row)); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	code, _ := row["employee_code"].(string)
	user, err := s.identity.ResolveByEmployeeCode(ctx, code)
	if err != nil {
		return fmt.Errorf("employee %q: %w", code, err)
	}

	metrics := s.aggregate.FromImportRow(row)
	if _, err := s.pipeline.RunImported(ctx, user, period, metrics, submittedBy); err != nil {
		return fmt.Errorf("evaluate employee %q: %w", code, err)
	}
	return nil
}

func (s *importService) recordImport(ctx context.Context, actor ActivityActor, period string, result dto.ImportResultResponse) {
	err := s.activity.Record(ctx, ActivityEntry{
		Actor:      actor,
		Action:     "metrics_imported",
		EntityType: "kpi_import",
		Metadata: map[string]interface{}{
			"period":    period,
			"total":     result.Total,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to record import activity")
	}
}
