package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusInReview   TaskStatus = "IN_REVIEW"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
	TaskPriorityUrgent TaskPriority = "URGENT"
)

// Task status must only change through statemachine.Transition.
type Task struct {
	ID                uint                      `gorm:"primaryKey"`
	BoardID           uint                      `gorm:"not null;index"`
	Board             *Board                    `gorm:"foreignKey:BoardID"`
	AgentID           *uint                     `gorm:"index"`
	Agent             *Agent                    `gorm:"foreignKey:AgentID"`
	Title             string                    `gorm:"type:varchar(255);not null"`
	Description       sql.NullString            `gorm:"type:text"`
	Status            TaskStatus                `gorm:"type:varchar(20);not null;default:TODO"`
	Priority          TaskPriority              `gorm:"type:varchar(20);not null;default:MEDIUM"`
	Position          int                       `gorm:"not null;default:0"`
	DueDate           sql.NullTime
	ReferencedTaskIDs datatypes.JSONSlice[uint] `gorm:"type:jsonb"`
	CreatedAt         time.Time                 `gorm:"autoCreateTime"`
	UpdatedAt         time.Time                 `gorm:"autoUpdateTime"`
}

func (Task) TableName() string {
	return "tasks"
}
