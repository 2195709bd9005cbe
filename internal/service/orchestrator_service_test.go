package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/kpi-engine-api/internal/dto"
	"github.com/noah-isme/kpi-engine-api/internal/models"
	"github.com/noah-isme/kpi-engine-api/internal/repository"
)

type fakeDispatcher struct {
	sent    []models.EmailDispatchLog
	failFor map[string]error
	nextID  uint
}

func (f *fakeDispatcher) Dispatch(_ context.Context, log *models.EmailDispatchLog, _ string) error {
	f.nextID++
	log.ID = f.nextID
	if err, ok := f.failFor[log.RecipientEmail]; ok {
		log.Status = models.EmailFailed
		f.sent = append(f.sent, *log)
		return err
	}
	log.Status = models.EmailSent
	f.sent = append(f.sent, *log)
	return nil
}

func (f *fakeDispatcher) RetrySweep(context.Context, int) (int, int, error) {
	return 0, 0, nil
}

type fakeNotifier struct {
	published []models.Notification
	err       error
}

func (f *fakeNotifier) Publish(_ context.Context, notification models.Notification) (dto.NotificationResponse, error) {
	if f.err != nil {
		return dto.NotificationResponse{}, f.err
	}
	notification.ID = uint(len(f.published) + 1)
	f.published = append(f.published, notification)
	return dto.NewNotificationResponse(notification), nil
}

func (f *fakeNotifier) List(context.Context, uint, int, int) ([]dto.NotificationResponse, error) {
	return nil, nil
}

func (f *fakeNotifier) MarkRead(context.Context, uint, uint) (dto.NotificationResponse, error) {
	return dto.NotificationResponse{}, nil
}

func (f *fakeNotifier) Subscribe(uint) (<-chan dto.NotificationResponse, func()) {
	ch := make(chan dto.NotificationResponse)
	return ch, func() { close(ch) }
}

func (f *fakeNotifier) Start(context.Context) {}

type orchestratorFixture struct {
	db         *gorm.DB
	subject    models.User
	record     models.KPIRecord
	dispatcher *fakeDispatcher
	notifier   *fakeNotifier
	service    Orchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	db := openTestDB(t)

	subject := models.User{Name: "Agent One", Email: "agent1@example.com", EmployeeCode: "EMP-001", Role: models.RoleAgent, Department: "claims", Active: true}
	coordinator := models.User{Name: "Coordinator", Email: "coordinator@example.com", EmployeeCode: "EMP-100", Role: models.RoleCoordinator, Department: "claims", Active: true}
	manager := models.User{Name: "Manager", Email: "manager@example.com", EmployeeCode: "EMP-101", Role: models.RoleManager, Department: "claims", Active: true}
	for _, user := range []*models.User{&subject, &coordinator, &manager} {
		require.NoError(t, db.Create(user).Error)
	}

	record := models.KPIRecord{UserID: subject.ID, Period: "2025-06", OverallScore: 45, Rating: RatingNeedImprovement, AutomationStatus: models.AutomationProcessing, Active: true}
	require.NoError(t, db.Create(&record).Error)

	dispatcher := &fakeDispatcher{failFor: map[string]error{}}
	notifier := &fakeNotifier{}

	svc := NewOrchestrator(
		repository.NewKPIRecordRepository(db),
		repository.NewTrainingRepository(db),
		repository.NewAuditScheduleRepository(db),
		NewIdentityService(repository.NewUserRepository(db), zerolog.Nop()),
		dispatcher,
		notifier,
		zerolog.Nop(),
	)

	return &orchestratorFixture{
		db:         db,
		subject:    subject,
		record:     record,
		dispatcher: dispatcher,
		notifier:   notifier,
		service:    svc,
	}
}

func TestExecuteCreatesLinkedRecordsAndEmails(t *testing.T) {
	fx := newOrchestratorFixture(t)

	directives := []Directive{
		TrainingDirective{
			TrainingType: TrainingBasicSkills,
			ActionLabel:  "Basic skills training",
			Reason:       "score fell below 50",
			Audience:     []string{RecipientSubject, RecipientCoordinator},
			Priority:     "high",
		},
		AuditDirective{
			AuditType:   AuditExtendedHistory,
			ActionLabel: "Extended work audit",
			Reason:      "score fell below 50",
			Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
			Priority:    "high",
		},
	}

	report, err := fx.service.Execute(context.Background(), fx.subject, &fx.record, directives)
	require.NoError(t, err)
	require.False(t, report.HasFailures())
	require.Len(t, report.Directives, 2)

	var training models.TrainingAssignment
	require.NoError(t, fx.db.First(&training).Error)
	require.Equal(t, fx.subject.ID, training.UserID)
	require.Equal(t, TrainingBasicSkills, training.TrainingType)
	require.Equal(t, models.TrainingAssigned, training.Status)
	require.Equal(t, training.ID, report.Directives[0].LinkedID)
	require.True(t, training.DueAt.After(training.AssignedAt))

	var audit models.AuditSchedule
	require.NoError(t, fx.db.First(&audit).Error)
	require.Equal(t, AuditExtendedHistory, audit.AuditType)
	require.Equal(t, audit.ID, report.Directives[1].LinkedID)

	// Two recipients for the training, three for the audit.
	require.Len(t, fx.dispatcher.sent, 5)
	for _, log := range fx.dispatcher.sent {
		require.NotNil(t, log.KPIRecordID)
		require.Equal(t, fx.record.ID, *log.KPIRecordID)
	}

	var stored models.KPIRecord
	require.NoError(t, fx.db.First(&stored, fx.record.ID).Error)

	var actions []models.TriggeredAction
	require.NoError(t, json.Unmarshal(stored.TriggeredActions, &actions))
	require.Len(t, actions, 2)
	require.Equal(t, "training", actions[0].Kind)
	require.Equal(t, training.ID, actions[0].LinkedID)

	var trail []models.AuditEntry
	require.NoError(t, json.Unmarshal(stored.AuditTrail, &trail))
	require.Len(t, trail, 2)
	require.Equal(t, "directive_training", trail[0].Action)
	require.Equal(t, "directive_audit", trail[1].Action)
}

func TestExecutePublishesSingleSummaryNotification(t *testing.T) {
	fx := newOrchestratorFixture(t)

	directives := []Directive{
		TrainingDirective{
			TrainingType: TrainingBasicSkills,
			ActionLabel:  "Basic skills training",
			Reason:       "low score",
			Audience:     []string{RecipientSubject},
			Priority:     "high",
		},
		WarningDirective{
			Severity:    "formal",
			ActionLabel: "Formal warning notice",
			Reason:      "very low score",
			Audience:    []string{RecipientSubject},
		},
	}

	report, err := fx.service.Execute(context.Background(), fx.subject, &fx.record, directives)
	require.NoError(t, err)

	require.Len(t, fx.notifier.published, 1)
	summary := fx.notifier.published[0]
	require.Equal(t, fx.subject.ID, summary.UserID)
	require.Equal(t, models.PriorityUrgent, summary.Priority, "a warning escalates the summary to urgent")
	require.Contains(t, summary.Message, "Basic skills training")
	require.Contains(t, summary.Message, "Formal warning notice")
	require.Equal(t, summary.ID, report.NotificationID)
}

func TestExecuteWithNoDirectivesStillNotifies(t *testing.T) {
	fx := newOrchestratorFixture(t)

	report, err := fx.service.Execute(context.Background(), fx.subject, &fx.record, nil)
	require.NoError(t, err)
	require.Empty(t, report.Directives)

	require.Len(t, fx.notifier.published, 1)
	require.Equal(t, models.PriorityNormal, fx.notifier.published[0].Priority)
	require.Contains(t, fx.notifier.published[0].Message, "No actions were triggered")
}

func TestExecuteIsolatesRecipientFailures(t *testing.T) {
	fx := newOrchestratorFixture(t)
	fx.dispatcher.failFor["coordinator@example.com"] = errors.New("smtp unavailable")

	directives := []Directive{
		AuditDirective{
			AuditType:   AuditRoutine,
			ActionLabel: "Routine work audit",
			Reason:      "routine",
			Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
			Priority:    "normal",
		},
	}

	report, err := fx.service.Execute(context.Background(), fx.subject, &fx.record, directives)
	require.NoError(t, err, "a recipient failure must not fail the execution")
	require.True(t, report.HasFailures())

	require.Len(t, report.Directives, 1)
	outcomes := report.Directives[0].Recipients
	require.Len(t, outcomes, 3)

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Error != "" {
			failures++
			require.Equal(t, "coordinator@example.com", outcome.Email)
		}
	}
	require.Equal(t, 1, failures)

	// The audit schedule exists even though one email failed.
	var audit models.AuditSchedule
	require.NoError(t, fx.db.First(&audit).Error)
}

func TestExecuteSurvivesNotifierOutage(t *testing.T) {
	fx := newOrchestratorFixture(t)
	fx.notifier.err = errors.New("redis down")

	report, err := fx.service.Execute(context.Background(), fx.subject, &fx.record, nil)
	require.NoError(t, err)
	require.Zero(t, report.NotificationID)
}
