package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"gorm.io/datatypes"

	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/observability"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

// Offsets applied when the orchestrator creates linked records.
const (
	trainingDueOffset   = 14 * 24 * time.Hour
	auditScheduleOffset = 7 * 24 * time.Hour
	notificationSender  = "kpi-engine"
	automationActorName = "automation"
)

// RecipientOutcome records one email dispatch attempt for a directive.
type RecipientOutcome struct {
	Email      string `json:"email"`
	Role       string `json:"role"`
	EmailLogID uint   `json:"email_log_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// DirectiveResult records the execution outcome of one directive.
type DirectiveResult struct {
	Kind       DirectiveKind      `json:"kind"`
	Label      string             `json:"label"`
	LinkedID   uint               `json:"linked_id,omitempty"`
	Error      string             `json:"error,omitempty"`
	Recipients []RecipientOutcome `json:"recipients"`
}

// ExecutionReport aggregates per-directive, per-recipient outcomes so the
// caller can retry selectively.
type ExecutionReport struct {
	KPIRecordID    uint              `json:"kpi_record_id"`
	Directives     []DirectiveResult `json:"directives"`
	NotificationID uint              `json:"notification_id,omitempty"`
	StartedAt      time.Time         `json:"started_at"`
	FinishedAt     time.Time         `json:"finished_at"`
}

// HasFailures reports whether any directive or recipient failed.
func (r ExecutionReport) HasFailures() bool {
	for _, directive := range r.Directives {
		if directive.Error != "" {
			return true
		}
		for _, recipient := range directive.Recipients {
			if recipient.Error != "" {
				return true
			}
		}
	}
	return false
}

// Orchestrator executes trigger directives: linked records, email fanout,
// the single summary notification and the audit trail. It is deliberately
// not idempotent across reruns; the pending→processing claim upstream is
// what prevents duplicate execution.
type Orchestrator interface {
	Execute(ctx context.Context, user models.User, record *models.KPIRecord, directives []Directive) (ExecutionReport, error)
}

type orchestrator struct {
	kpiRecords repository.KPIRecordRepository
	trainings  repository.TrainingRepository
	audits     repository.AuditScheduleRepository
	identity   IdentityService
	dispatcher EmailDispatcher
	notifier   NotifierService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewOrchestrator constructs the action orchestrator.
func NewOrchestrator(
	kpiRecords repository.KPIRecordRepository,
	trainings repository.TrainingRepository,
	audits repository.AuditScheduleRepository,
	identity IdentityService,
	dispatcher EmailDispatcher,
	notifier NotifierService,
	logger zerolog.Logger,
) Orchestrator {
	return &orchestrator{
		kpiRecords: kpiRecords,
		trainings:  trainings,
		audits:     audits,
		identity:   identity,
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger.With().Str("component", "orchestrator").Logger(),
		now:        time.Now,
	}
}

func (o *orchestrator) Execute(ctx context.Context, user models.User, record *models.KPIRecord, directives []Directive) (ExecutionReport, error) {
	tracer := otel.Tracer("github.com/noah-isme/kpi-engine-api/internal/service/orchestrator")
	ctx, span := tracer.Start(ctx, "orchestrator.execute")
	span.SetAttributes(
		attribute.Int64("kpi.record_id", int64(record.ID)),
		attribute.Int64("kpi.user_id", int64(user.ID)),
		attribute.Int("kpi.directives", len(directives)),
	)
	defer span.End()

	report := ExecutionReport{
		KPIRecordID: record.ID,
		StartedAt:   o.now(),
	}

	var actions []models.TriggeredAction
	warningFired := false

	for _, directive := range directives {
		result := o.executeDirective(ctx, user, record, directive)
		report.Directives = append(report.Directives, result)

		if directive.Kind() == DirectiveWarning {
			warningFired = true
		}

		observability.DirectivesFiredTotal().WithLabelValues(string(directive.Kind())).Inc()

		actions = append(actions, models.TriggeredAction{
			Kind:          string(directive.Kind()),
			Label:         directive.Label(),
			Justification: directive.Justification(),
			LinkedID:      result.LinkedID,
		})

		appendAuditEntry(record, models.AuditEntry{
			Action:    "directive_" + string(directive.Kind()),
			Actor:     automationActorName,
			Timestamp: o.now(),
			Detail:    directive.Justification(),
		})
	}

	notification := o.buildSummaryNotification(user, record, directives, warningFired)
	published, err := o.notifier.Publish(ctx, notification)
	if err != nil {
		span.RecordError(err)
		o.logger.Error().Err(err).Uint("kpi_record_id", record.ID).Msg("failed to publish summary notification")
	} else {
		report.NotificationID = published.ID
	}

	if encoded, err := json.Marshal(actions); err == nil {
		record.TriggeredActions = datatypes.JSON(encoded)
	}

	if err := o.kpiRecords.Update(ctx, record); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "record_update_failed")
		report.FinishedAt = o.now()
		return report, fmt.Errorf("persist kpi record %d: %w", record.ID, err)
	}

	report.FinishedAt = o.now()
	return report, nil
}

func (o *orchestrator) executeDirective(ctx context.Context, user models.User, record *models.KPIRecord, directive Directive) DirectiveResult {
	result := DirectiveResult{
		Kind:  directive.Kind(),
		Label: directive.Label(),
	}

	var trainingID, auditID *uint

	switch d := directive.(type) {
	case TrainingDirective:
		assignment := models.TrainingAssignment{
			UserID:       user.ID,
			TrainingType: d.TrainingType,
			AssignedAt:   o.now(),
			DueAt:        o.now().Add(trainingDueOffset),
			Status:       models.TrainingAssigned,
			Priority:     d.Priority,
			Reason:       d.Reason,
		}
		if err := o.trainings.Create(ctx, &assignment); err != nil {
			result.Error = fmt.Sprintf("create training assignment: %v", err)
			return result
		}
		result.LinkedID = assignment.ID
		trainingID = &assignment.ID
	case AuditDirective:
		schedule := models.AuditSchedule{
			UserID:        user.ID,
			AuditType:     d.AuditType,
			ScheduledAt:   o.now(),
			ScheduledDate: o.now().Add(auditScheduleOffset),
			Status:        models.AuditScheduled,
			Priority:      d.Priority,
			Reason:        d.Reason,
		}
		if err := o.audits.Create(ctx, &schedule); err != nil {
			result.Error = fmt.Sprintf("create audit schedule: %v", err)
			return result
		}
		result.LinkedID = schedule.ID
		auditID = &schedule.ID
	}

	recipients, err := o.identity.ResolveRecipients(ctx, user, directive.Recipients())
	if err != nil {
		result.Error = fmt.Sprintf("resolve recipients: %v", err)
	}

	for _, recipient := range recipients {
		outcome := RecipientOutcome{
			Email: recipient.User.Email,
			Role:  recipient.Role,
		}

		subject, body := renderDirectiveEmail(directive, user, record)
		log := models.EmailDispatchLog{
			RecipientEmail: recipient.User.Email,
			RecipientRole:  recipient.Role,
			TemplateKind:   templateKindFor(directive.Kind()),
			Subject:        subject,
			Content:        body,
			KPIRecordID:    &record.ID,
			TrainingID:     trainingID,
			AuditID:        auditID,
		}

		if err := o.dispatcher.Dispatch(ctx, &log, recipient.User.Name); err != nil {
			outcome.Error = err.Error()
			o.logger.Warn().Err(err).
				Str("recipient", recipient.User.Email).
				Str("directive", string(directive.Kind())).
				Uint("kpi_record_id", record.ID).
				Msg("email dispatch failed")
		}
		outcome.EmailLogID = log.ID

		result.Recipients = append(result.Recipients, outcome)
	}

	return result
}

func (o *orchestrator) buildSummaryNotification(user models.User, record *models.KPIRecord, directives []Directive, warningFired bool) models.Notification {
	priority := models.PriorityNormal
	if len(directives) > 0 {
		priority = models.PriorityHigh
	}
	if warningFired {
		priority = models.PriorityUrgent
	}

	labels := make([]string, 0, len(directives))
	for _, directive := range directives {
		labels = append(labels, directive.Label())
	}

	message := fmt.Sprintf("Your %s evaluation scored %d (%s).", record.Period, record.OverallScore, record.Rating)
	if len(labels) > 0 {
		message = fmt.Sprintf("%s Actions triggered: %s.", message, strings.Join(labels, "; "))
	} else {
		message = message + " No actions were triggered."
	}

	return models.Notification{
		UserID:   user.ID,
		Title:    fmt.Sprintf("KPI evaluation for %s", record.Period),
		Message:  message,
		Type:     "kpi_evaluation",
		Priority: priority,
		Sender:   notificationSender,
		Metadata: map[string]interface{}{
			"kpi_record_id": record.ID,
			"period":        record.Period,
			"overall_score": record.OverallScore,
			"rating":        record.Rating,
			"directives":    len(directives),
		},
	}
}

func templateKindFor(kind DirectiveKind) string {
	switch kind {
	case DirectiveTraining:
		return models.EmailTemplateTraining
	case DirectiveAudit:
		return models.EmailTemplateAudit
	case DirectiveWarning:
		return models.EmailTemplateWarning
	default:
		return models.EmailTemplateReward
	}
}

func renderDirectiveEmail(directive Directive, user models.User, record *models.KPIRecord) (string, string) {
	var subject string
	switch directive.Kind() {
	case DirectiveTraining:
		subject = fmt.Sprintf("Training assigned to %s for %s", user.Name, record.Period)
	case DirectiveAudit:
		subject = fmt.Sprintf("Audit scheduled for %s for %s", user.Name, record.Period)
	case DirectiveWarning:
		subject = fmt.Sprintf("Warning notice for %s for %s", user.Name, record.Period)
	default:
		subject = fmt.Sprintf("Performance recognition for %s for %s", user.Name, record.Period)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%s\n\n", directive.Label())
	fmt.Fprintf(&body, "Employee: %s (%s)\n", user.Name, user.EmployeeCode)
	fmt.Fprintf(&body, "Period: %s\n", record.Period)
	fmt.Fprintf(&body, "Overall score: %d (%s)\n\n", record.OverallScore, record.Rating)
	fmt.Fprintf(&body, "Reason: %s\n", directive.Justification())

	return subject, body.String()
}

func appendAuditEntry(record *models.KPIRecord, entry models.AuditEntry) {
	var trail []models.AuditEntry
	if len(record.AuditTrail) > 0 {
		_ = json.Unmarshal(record.AuditTrail, &trail)
	}
	trail = append(trail, entry)
	if encoded, err := json.Marshal(trail); err == nil {
		record.AuditTrail = datatypes.JSON(encoded)
	}
}
