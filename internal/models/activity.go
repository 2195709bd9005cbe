package models

import (
	"time"

	"gorm.io/datatypes"
)

// WorkRecord is one processed case with its review outcome counts. The
// aggregator reduces a period's work records into the negativity,
// quality-concern, insufficiency and turnaround metrics.
type WorkRecord struct {
	ID                  uint      `gorm:"primaryKey" json:"id"`
	UserID              uint      `gorm:"not null;index" json:"user_id"`
	CaseRef             string    `gorm:"size:64;index" json:"case_ref"`
	ProcessedAt         time.Time `gorm:"not null;index" json:"processed_at"`
	TurnaroundMet       bool      `gorm:"not null;default:false" json:"turnaround_met"`
	ItemsReviewed       int       `gorm:"not null;default:0" json:"items_reviewed"`
	MajorNegativities   int       `gorm:"not null;default:0" json:"major_negativities"`
	GeneralNegativities int       `gorm:"not null;default:0" json:"general_negativities"`
	QualityConcerns     int       `gorm:"not null;default:0" json:"quality_concerns"`
	Insufficiencies     int       `gorm:"not null;default:0" json:"insufficiencies"`
	CreatedAt           time.Time `json:"created_at"`
}

// NeighborCheck is a peer cross-check assigned to a user.
type NeighborCheck struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	CaseRef     string     `gorm:"size:64" json:"case_ref"`
	AssignedAt  time.Time  `gorm:"not null;index" json:"assigned_at"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

// AppSession is a single application usage event.
type AppSession struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;index" json:"user_id"`
	OccurredAt time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// ActivityLog captures auditable actions performed against the engine,
// such as manual trigger runs and bulk imports.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	ActorID    uint              `gorm:"not null" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `json:"created_at"`
}
