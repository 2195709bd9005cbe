package dto

import (
	"encoding/json"
	"time"

	"github.com/noah-isme/kpi-engine-api/internal/models"
)

// RunForUserRequest triggers a manual pipeline run for one user.
type RunForUserRequest struct {
	Period string `json:"period" validate:"omitempty,len=7"`
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

// RunForPeriodRequest triggers a batch pipeline run for a period.
type RunForPeriodRequest struct {
	Period string `json:"period" validate:"omitempty,len=7"`
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// KPIRecordResponse is the serialized representation of a KPI record.
type KPIRecordResponse struct {
	ID               uint                     `json:"id"`
	UserID           uint                     `json:"user_id"`
	Period           string                   `json:"period"`
	OverallScore     int                      `json:"overall_score"`
	Rating           string                   `json:"rating"`
	Breakdown        json.RawMessage          `json:"breakdown,omitempty"`
	TriggeredActions []models.TriggeredAction `json:"triggered_actions"`
	AutomationStatus string                   `json:"automation_status"`
	SubmittedBy      string                   `json:"submitted_by,omitempty"`
	Active           bool                     `json:"active"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// NewKPIRecordResponse converts a model into a DTO.
func NewKPIRecordResponse(record models.KPIRecord) KPIRecordResponse {
	var actions []models.TriggeredAction
	if len(record.TriggeredActions) > 0 {
		_ = json.Unmarshal(record.TriggeredActions, &actions)
	}

	return KPIRecordResponse{
		ID:               record.ID,
		UserID:           record.UserID,
		Period:           record.Period,
		OverallScore:     record.OverallScore,
		Rating:           record.Rating,
		Breakdown:        json.RawMessage(record.Breakdown),
		TriggeredActions: actions,
		AutomationStatus: record.AutomationStatus,
		SubmittedBy:      record.SubmittedBy,
		Active:           record.Active,
		UpdatedAt:        record.UpdatedAt,
	}
}

// NewKPIRecordResponseSlice converts a slice of models into DTOs.
func NewKPIRecordResponseSlice(records []models.KPIRecord) []KPIRecordResponse {
	out := make([]KPIRecordResponse, 0, len(records))
	for _, record := range records {
		out = append(out, NewKPIRecordResponse(record))
	}
	return out
}

// TriggerHistoryResponse lists a user's evaluations with their linked records.
type TriggerHistoryResponse struct {
	UserID    uint                         `json:"user_id"`
	Records   []KPIRecordResponse          `json:"records"`
	Trainings []TrainingAssignmentResponse `json:"trainings"`
	Audits    []AuditScheduleResponse      `json:"audits"`
}

// TrainingAssignmentResponse is the serialized representation of a training assignment.
type TrainingAssignmentResponse struct {
	ID           uint      `json:"id"`
	UserID       uint      `json:"user_id"`
	TrainingType string    `json:"training_type"`
	AssignedAt   time.Time `json:"assigned_at"`
	DueAt        time.Time `json:"due_at"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	Reason       string    `json:"reason"`
}

// NewTrainingAssignmentResponse converts a model into a DTO.
func NewTrainingAssignmentResponse(assignment models.TrainingAssignment) TrainingAssignmentResponse {
	return TrainingAssignmentResponse{
		ID:           assignment.ID,
		UserID:       assignment.UserID,
		TrainingType: assignment.TrainingType,
		AssignedAt:   assignment.AssignedAt,
		DueAt:        assignment.DueAt,
		Status:       assignment.Status,
		Priority:     assignment.Priority,
		Reason:       assignment.Reason,
	}
}

// AuditScheduleResponse is the serialized representation of an audit schedule.
type AuditScheduleResponse struct {
	ID            uint      `json:"id"`
	UserID        uint      `json:"user_id"`
	AuditType     string    `json:"audit_type"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	ScheduledDate time.Time `json:"scheduled_date"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Reason        string    `json:"reason"`
}

// NewAuditScheduleResponse converts a model into a DTO.
func NewAuditScheduleResponse(schedule models.AuditSchedule) AuditScheduleResponse {
	return AuditScheduleResponse{
		ID:            schedule.ID,
		UserID:        schedule.UserID,
		AuditType:     schedule.AuditType,
		ScheduledAt:   schedule.ScheduledAt,
		ScheduledDate: schedule.ScheduledDate,
		Status:        schedule.Status,
		Priority:      schedule.Priority,
		Reason:        schedule.Reason,
	}
}
