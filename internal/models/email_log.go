package models

import "time"

// Email dispatch statuses.
const (
	EmailPending   = "pending"
	EmailSent      = "sent"
	EmailFailed    = "failed"
	EmailDelivered = "delivered"
)

// Email template kinds rendered by the orchestrator.
const (
	EmailTemplateTraining = "training_assignment"
	EmailTemplateAudit    = "audit_schedule"
	EmailTemplateWarning  = "warning_notice"
	EmailTemplateReward   = "recognition"
)

// EmailDispatchLog records one email send attempt. Rows are created in the
// pending state before the transport is invoked so failed sends are still
// on record, and stay retryable while RetryCount < MaxRetries.
type EmailDispatchLog struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	RecipientEmail string     `gorm:"size:255;not null;index" json:"recipient_email"`
	RecipientRole  string     `gorm:"size:32" json:"recipient_role"`
	TemplateKind   string     `gorm:"size:64;not null" json:"template_kind"`
	Subject        string     `gorm:"size:255;not null" json:"subject"`
	Content        string     `gorm:"type:text" json:"content"`
	Status         string     `gorm:"size:16;not null;default:pending;index" json:"status"`
	KPIRecordID    *uint      `gorm:"index" json:"kpi_record_id"`
	TrainingID     *uint      `json:"training_id"`
	AuditID        *uint      `json:"audit_id"`
	RetryCount     int        `gorm:"not null;default:0" json:"retry_count"`
	MaxRetries     int        `gorm:"not null;default:3" json:"max_retries"`
	LastError      string     `gorm:"type:text" json:"last_error"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Retryable reports whether a failed dispatch may be attempted again.
func (e EmailDispatchLog) Retryable() bool {
	return e.Status == EmailFailed && e.RetryCount < e.MaxRetries
}
