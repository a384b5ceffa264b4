package model

import (
	"database/sql"
	"time"
)

type ExecutionStatus string

const (
	ExecutionStatusPending   ExecutionStatus = "PENDING"
	ExecutionStatusRunning   ExecutionStatus = "RUNNING"
	ExecutionStatusCompleted ExecutionStatus = "COMPLETED"
	ExecutionStatusFailed    ExecutionStatus = "FAILED"
	ExecutionStatusCancelled ExecutionStatus = "CANCELLED"
)

// Execution is one provider run for a task. It is immutable once CompletedAt is set.
type Execution struct {
	ID              uint            `gorm:"primaryKey"`
	TaskID          uint            `gorm:"not null;index"`
	Task            *Task           `gorm:"foreignKey:TaskID"`
	AgentID         uint            `gorm:"not null;index"`
	Agent           *Agent          `gorm:"foreignKey:AgentID"`
	ExecutionNumber int             `gorm:"not null"`
	Status          ExecutionStatus `gorm:"type:varchar(20);not null"`
	InputPrompt     string          `gorm:"type:text;not null"`
	OutputResult    sql.NullString  `gorm:"type:text"`
	InputTokens     sql.NullInt32
	OutputTokens    sql.NullInt32
	DurationMs      sql.NullInt32
	ErrorMessage    sql.NullString `gorm:"type:text"`
	StartedAt       sql.NullTime
	CompletedAt     sql.NullTime
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

func (Execution) TableName() string {
	return "executions"
}

func (e *Execution) IsTerminal() bool {
	return e.CompletedAt.Valid
}
