package models

import "time"

// Audit schedule statuses.
const (
	AuditScheduled  = "scheduled"
	AuditInProgress = "in_progress"
	AuditCompleted  = "completed"
	AuditCancelled  = "cancelled"
)

// AuditSchedule is a work audit created by a trigger directive.
type AuditSchedule struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	AuditType     string    `gorm:"size:64;not null" json:"audit_type"`
	ScheduledAt   time.Time `gorm:"not null" json:"scheduled_at"`
	ScheduledDate time.Time `gorm:"not null" json:"scheduled_date"`
	Status        string    `gorm:"size:16;not null;default:scheduled" json:"status"`
	Priority      string    `gorm:"size:16;not null;default:normal" json:"priority"`
	Reason        string    `gorm:"type:text" json:"reason"`
	Notes         string    `gorm:"type:text" json:"notes"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
