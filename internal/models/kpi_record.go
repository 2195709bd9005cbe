package models

import (
	"time"

	"gorm.io/datatypes"
)

// Automation statuses tracked on a KPIRecord. The pending→processing
// transition is the idempotency guard for trigger execution.
const (
	AutomationPending    = "pending"
	AutomationProcessing = "processing"
	AutomationCompleted  = "completed"
	AutomationFailed     = "failed"
)

// KPIRecord is the persisted evaluation of one user for one period.
// At most one active record exists per (user, period); re-evaluation
// mutates the active record, superseded rows are flagged inactive.
type KPIRecord struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;index:idx_kpi_user_period" json:"user_id"`
	Period string `gorm:"size:7;not null;index:idx_kpi_user_period" json:"period"`

	TurnaroundTimePct  float64 `json:"turnaround_time_pct"`
	MajorNegativityPct float64 `json:"major_negativity_pct"`
	QualityConcernPct  float64 `json:"quality_concern_pct"`
	NeighborCheckPct   float64 `json:"neighbor_check_pct"`
	GeneralNegPct      float64 `json:"general_negativity_pct"`
	AppUsagePct        float64 `json:"app_usage_pct"`
	InsufficiencyPct   float64 `json:"insufficiency_pct"`

	Breakdown        datatypes.JSON `gorm:"type:json" json:"breakdown"`
	OverallScore     int            `gorm:"not null" json:"overall_score"`
	Rating           string         `gorm:"size:32;not null" json:"rating"`
	TriggeredActions datatypes.JSON `gorm:"type:json" json:"triggered_actions"`
	AutomationStatus string         `gorm:"size:16;not null;default:pending;index" json:"automation_status"`
	SubmittedBy      string         `gorm:"size:64" json:"submitted_by"`
	Active           bool           `gorm:"not null;default:true;index" json:"active"`
	AuditTrail       datatypes.JSON `gorm:"type:json" json:"audit_trail"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AuditEntry is one append-only element of a KPIRecord audit trail.
type AuditEntry struct {
	Action    string    `json:"action"`
	Actor     string    `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail"`
}

// TriggeredAction describes one executed directive on a KPIRecord.
type TriggeredAction struct {
	Kind          string `json:"kind"`
	Label         string `json:"label"`
	Justification string `json:"justification"`
	LinkedID      uint   `json:"linked_id,omitempty"`
}
