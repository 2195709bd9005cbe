package models

import (
	"time"

	"gorm.io/datatypes"
)

// Notification priorities, in escalation order.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Notification represents an in-app notification targeted to a specific user.
// The pipeline creates exactly one per KPI evaluation, summarizing every
// directive that fired.
type Notification struct {
	ID        uint              `gorm:"primaryKey" json:"id"`
	UserID    uint              `gorm:"not null;index" json:"user_id"`
	Title     string            `gorm:"size:255;not null" json:"title"`
	Message   string            `gorm:"type:text" json:"message"`
	Type      string            `gorm:"size:64" json:"type"`
	Priority  string            `gorm:"size:16;not null;default:normal" json:"priority"`
	Sender    string            `gorm:"size:64" json:"sender"`
	Metadata  datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	Read      bool              `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
