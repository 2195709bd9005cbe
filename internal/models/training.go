package models

import "time"

// Training assignment statuses. The learning subsystem advances them;
// the engine only ever creates rows in the assigned state.
const (
	TrainingAssigned   = "assigned"
	TrainingInProgress = "in_progress"
	TrainingCompleted  = "completed"
	TrainingOverdue    = "overdue"
)

// TrainingAssignment is a remedial training created by a trigger directive.
type TrainingAssignment struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	TrainingType string    `gorm:"size:64;not null" json:"training_type"`
	AssignedAt   time.Time `gorm:"not null" json:"assigned_at"`
	DueAt        time.Time `gorm:"not null" json:"due_at"`
	Status       string    `gorm:"size:16;not null;default:assigned" json:"status"`
	Priority     string    `gorm:"size:16;not null;default:normal" json:"priority"`
	Reason       string    `gorm:"type:text" json:"reason"`
	Notes        string    `gorm:"type:text" json:"notes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
