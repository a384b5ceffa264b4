package model

import (
	"database/sql"
	"time"
)

type Board struct {
	ID          uint           `gorm:"primaryKey"`
	UserID      string         `gorm:"type:varchar(255);not null;index"`
	Name        string         `gorm:"type:varchar(255);not null"`
	Description sql.NullString `gorm:"type:text"`
	CreatedAt   time.Time      `gorm:"autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime"`
	Tasks       []Task         `gorm:"foreignKey:BoardID"`
}

func (Board) TableName() string {
	return "boards"
}
