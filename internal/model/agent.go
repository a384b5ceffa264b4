package model

import (
	"database/sql"
	"time"
)

const (
	DefaultAgentTemperature = 0.7
	DefaultAgentMaxTokens   = 4096
)

type Agent struct {
	ID           uint           `gorm:"primaryKey"`
	UserID       string         `gorm:"type:varchar(255);not null;index"`
	ProviderID   uint           `gorm:"not null;index"`
	Provider     *Provider      `gorm:"foreignKey:ProviderID"`
	Name         string         `gorm:"type:varchar(255);not null"`
	Role         sql.NullString `gorm:"type:varchar(255)"`
	Description  sql.NullString `gorm:"type:text"`
	SystemPrompt sql.NullString `gorm:"type:text"`
	Model        string         `gorm:"type:varchar(255);not null"`
	Temperature  float64        `gorm:"not null;default:0.7"`
	MaxTokens    int            `gorm:"not null;default:4096"`
	IsActive     bool           `gorm:"not null;default:true"`
	CreatedAt    time.Time      `gorm:"autoCreateTime"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime"`
}

func (Agent) TableName() string {
	return "agents"
}
