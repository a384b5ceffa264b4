package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
)

type ProviderType string

const (
	ProviderTypeOpenAI      ProviderType = "OPENAI"
	ProviderTypeAnthropic   ProviderType = "ANTHROPIC"
	ProviderTypeOllama      ProviderType = "OLLAMA"
	ProviderTypeAzureOpenAI ProviderType = "AZURE_OPENAI"
	ProviderTypeGemini      ProviderType = "GEMINI"
)

// DefaultBaseURL returns the vendor endpoint used when a provider has no base URL.
// Azure deployments have no default.
func (t ProviderType) DefaultBaseURL() string {
	switch t {
	case ProviderTypeOpenAI:
		return "https://api.openai.com/v1"
	case ProviderTypeAnthropic:
		return "https://api.anthropic.com"
	case ProviderTypeOllama:
		return "http://localhost:11434"
	default:
		return ""
	}
}

func (t ProviderType) Valid() bool {
	switch t {
	case ProviderTypeOpenAI, ProviderTypeAnthropic, ProviderTypeOllama, ProviderTypeAzureOpenAI, ProviderTypeGemini:
		return true
	}
	return false
}

// Provider holds a user's vendor credential. APIKeyEncrypted is vault ciphertext.
type Provider struct {
	ID              uint                        `gorm:"primaryKey"`
	UserID          string                      `gorm:"type:varchar(255);not null;index"`
	Name            string                      `gorm:"type:varchar(255);not null"`
	Type            ProviderType                `gorm:"type:varchar(30);not null"`
	APIKeyEncrypted string                      `gorm:"column:api_key_encrypted;type:text;not null"`
	BaseURL         sql.NullString              `gorm:"type:varchar(512)"`
	IsActive        bool                        `gorm:"not null;default:true"`
	Models          datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	CreatedAt       time.Time                   `gorm:"autoCreateTime"`
	UpdatedAt       time.Time                   `gorm:"autoUpdateTime"`
}

func (Provider) TableName() string {
	return "providers"
}

// ResolvedBaseURL returns BaseURL or the type default.
func (p *Provider) ResolvedBaseURL() string {
	if p.BaseURL.Valid && p.BaseURL.String != "" {
		return p.BaseURL.String
	}
	return p.Type.DefaultBaseURL()
}
