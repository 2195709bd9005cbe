package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

// ErrUserNotFound indicates the evaluated user could not be resolved.
var ErrUserNotFound = errors.New("user not found")

// RawMetrics is the canonical metric set for one user and period, all
// expressed as percentages in [0, 100].
type RawMetrics struct {
	TurnaroundTime    float64 `json:"turnaround_time"`
	MajorNegativity   float64 `json:"major_negativity"`
	QualityConcern    float64 `json:"quality_concern"`
	NeighborCheck     float64 `json:"neighbor_check"`
	GeneralNegativity float64 `json:"general_negativity"`
	AppUsage          float64 `json:"app_usage"`
	Insufficiency     float64 `json:"insufficiency"`
}

// MetricsAggregator reduces raw per-user activity into the canonical metric
// set. It normalizes shape only; scoring semantics live in the scoring engine.
type MetricsAggregator interface {
	Aggregate(ctx context.Context, userID uint, period string) (RawMetrics, error)
	FromImportRow(row map[string]interface{}) RawMetrics
}

type metricsAggregator struct {
	users    repository.UserRepository
	activity repository.ActivityRepository
	logger   zerolog.Logger
}

// NewMetricsAggregator constructs the metric aggregation service.
func NewMetricsAggregator(users repository.UserRepository, activity repository.ActivityRepository, logger zerolog.Logger) MetricsAggregator {
	return &metricsAggregator{
		users:    users,
		activity: activity,
		logger:   logger.With().Str("component", "metrics_aggregator").Logger(),
	}
}

func (a *metricsAggregator) Aggregate(ctx context.Context, userID uint, period string) (RawMetrics, error) {
	user, err := a.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RawMetrics{}, fmt.Errorf("aggregate user %d: %w", userID, ErrUserNotFound)
		}
		return RawMetrics{}, fmt.Errorf("aggregate user %d: %w", userID, err)
	}
	if !user.Active {
		return RawMetrics{}, fmt.Errorf("aggregate user %d: %w", userID, ErrUserNotFound)
	}

	start, end, err := PeriodBounds(period)
	if err != nil {
		return RawMetrics{}, err
	}

	workRecords, err := a.activity.WorkRecordsInRange(ctx, userID, start, end)
	if err != nil {
		return RawMetrics{}, fmt.Errorf("read work records: %w", err)
	}

	checks, err := a.activity.NeighborChecksInRange(ctx, userID, start, end)
	if err != nil {
		return RawMetrics{}, fmt.Errorf("read neighbor checks: %w", err)
	}

	sessions, err := a.activity.AppSessionsInRange(ctx, userID, start, end)
	if err != nil {
		return RawMetrics{}, fmt.Errorf("read app sessions: %w", err)
	}

	var metrics RawMetrics

	totalCases := len(workRecords)
	turnaroundMet := 0
	itemsReviewed := 0
	major, general, concerns, insufficient := 0, 0, 0, 0
	for _, record := range workRecords {
		if record.TurnaroundMet {
			turnaroundMet++
		}
		itemsReviewed += record.ItemsReviewed
		major += record.MajorNegativities
		general += record.GeneralNegativities
		concerns += record.QualityConcerns
		insufficient += record.Insufficiencies
	}

	metrics.TurnaroundTime = ratio(turnaroundMet, totalCases)
	metrics.MajorNegativity = ratio(major, itemsReviewed)
	metrics.GeneralNegativity = ratio(general, itemsReviewed)
	metrics.QualityConcern = ratio(concerns, itemsReviewed)
	metrics.Insufficiency = ratio(insufficient, itemsReviewed)

	completedChecks := 0
	for _, check := range checks {
		if check.CompletedAt != nil {
			completedChecks++
		}
	}
	metrics.NeighborCheck = ratio(completedChecks, len(checks))

	activeDays := make(map[string]struct{})
	for _, session := range sessions {
		day := session.OccurredAt
		if day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			continue
		}
		activeDays[day.Format("2006-01-02")] = struct{}{}
	}
	metrics.AppUsage = ratio(len(activeDays), weekdaysIn(start, end))

	return metrics, nil
}

// Import column names accepted by FromImportRow. Spreadsheet headers are
// normalized (lowercased, spaces and dashes to underscores) before lookup.
var importColumns = map[string][]string{
	"turnaround_time":    {"turnaround_time", "turnaround", "tat_compliance", "tat"},
	"major_negativity":   {"major_negativity", "major_negativity_rate", "major_neg"},
	"quality_concern":    {"quality_concern", "quality_concern_rate", "quality"},
	"neighbor_check":     {"neighbor_check", "neighbor_check_completion", "neighbour_check"},
	"general_negativity": {"general_negativity", "general_negativity_rate", "general_neg"},
	"app_usage":          {"app_usage", "application_usage", "app_usage_rate"},
	"insufficiency":      {"insufficiency", "insufficiency_rate", "insufficient"},
}

// FromImportRow populates the canonical metrics directly from named columns
// of an externally supplied row. Missing or non-numeric values default to 0
// and everything is clamped to [0, 100].
func (a *metricsAggregator) FromImportRow(row map[string]interface{}) RawMetrics {
	normalized := make(map[string]interface{}, len(row))
	for key, value := range row {
		normalized[normalizeColumn(key)] = value
	}

	pick := func(metric string) float64 {
		for _, alias := range importColumns[metric] {
			if value, ok := normalized[alias]; ok {
				return clampPercent(numeric(value))
			}
		}
		return 0
	}

	return RawMetrics{
		TurnaroundTime:    pick("turnaround_time"),
		MajorNegativity:   pick("major_negativity"),
		QualityConcern:    pick("quality_concern"),
		NeighborCheck:     pick("neighbor_check"),
		GeneralNegativity: pick("general_negativity"),
		AppUsage:          pick("app_usage"),
		Insufficiency:     pick("insufficiency"),
	}
}

func normalizeColumn(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	return name
}

func numeric(value interface{}) float64 {
	switch v := value.(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		trimmed := strings.TrimSuffix(strings.TrimSpace(v), "%")
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

func clampPercent(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}

func ratio(numerator, denominator int) float64 {
	if denominator <= 0 {
		return 0
	}
	return float64(numerator) / float64(denominator) * 100
}
