package dto

import (
	"time"

	"prism/internal/model"
)

type CreateProviderRequest struct {
	Name         string             `json:"name" validate:"required,max=255"`
	ProviderType model.ProviderType `json:"providerType" validate:"required,oneof=OPENAI ANTHROPIC OLLAMA AZURE_OPENAI GEMINI"`
	APIKey       string             `json:"apiKey" validate:"max=1024"`
	BaseURL      *string            `json:"baseUrl" validate:"omitempty,url"`
}

type UpdateProviderRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	APIKey   *string `json:"apiKey" validate:"omitempty,max=1024"`
	BaseURL  *string `json:"baseUrl" validate:"omitempty,url"`
	IsActive *bool   `json:"isActive"`
}

// ProviderResponse never carries the key itself, only its mask.
type ProviderResponse struct {
	ID           uint               `json:"id"`
	ProviderType model.ProviderType `json:"providerType"`
	Name         string             `json:"name"`
	MaskedAPIKey string             `json:"maskedApiKey"`
	BaseURL      *string            `json:"baseUrl"`
	IsActive     bool               `json:"isActive"`
	Models       []string           `json:"models"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func NewProviderResponse(p *model.Provider, maskedKey string) ProviderResponse {
	models := []string(p.Models)
	if models == nil {
		models = []string{}
	}
	return ProviderResponse{
		ID:           p.ID,
		ProviderType: p.Type,
		Name:         p.Name,
		MaskedAPIKey: maskedKey,
		BaseURL:      nullString(p.BaseURL),
		IsActive:     p.IsActive,
		Models:       models,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

type VerifyProviderResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Models  []string `json:"models"`
}

type ProviderSummary struct {
	ID           uint               `json:"id"`
	Name         string             `json:"name"`
	ProviderType model.ProviderType `json:"providerType"`
}
