package models

import "time"

// Roles recognised by the recipient resolution rules.
const (
	RoleAgent          = "agent"
	RoleCoordinator    = "coordinator"
	RoleManager        = "manager"
	RoleCompliance     = "compliance"
	RoleDepartmentHead = "department_head"
)

// User represents an evaluated employee or a member of the escalation chain.
// Active carries no column default: with one, GORM would treat an explicit
// false as unset on insert and persist a deactivated user as active.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255;not null" json:"name"`
	Email        string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	EmployeeCode string    `gorm:"size:64;uniqueIndex" json:"employee_code"`
	Role         string    `gorm:"size:32;not null;default:agent" json:"role"`
	Department   string    `gorm:"size:128;index" json:"department"`
	Active       bool      `gorm:"not null" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
