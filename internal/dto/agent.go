package dto

import (
	"time"

	"prism/internal/model"
)

type CreateAgentRequest struct {
	ProviderID   uint     `json:"providerId" validate:"required"`
	Name         string   `json:"name" validate:"required,max=255"`
	Role         *string  `json:"role" validate:"omitempty,max=255"`
	Description  *string  `json:"description"`
	SystemPrompt *string  `json:"systemPrompt"`
	Model        string   `json:"model" validate:"required,max=255"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens    *int     `json:"maxTokens" validate:"omitempty,min=1,max=200000"`
}

type UpdateAgentRequest struct {
	ProviderID   *uint    `json:"providerId"`
	Name         *string  `json:"name" validate:"omitempty,min=1,max=255"`
	Role         *string  `json:"role" validate:"omitempty,max=255"`
	Description  *string  `json:"description"`
	SystemPrompt *string  `json:"systemPrompt"`
	Model        *string  `json:"model" validate:"omitempty,min=1,max=255"`
	Temperature  *float64 `json:"temperature" validate:"omitempty,min=0,max=2"`
	MaxTokens    *int     `json:"maxTokens" validate:"omitempty,min=1,max=200000"`
	IsActive     *bool    `json:"isActive"`
}

type AgentResponse struct {
	ID           uint             `json:"id"`
	ProviderID   uint             `json:"providerId"`
	Provider     *ProviderSummary `json:"provider,omitempty"`
	Name         string           `json:"name"`
	Role         *string          `json:"role"`
	Description  *string          `json:"description"`
	SystemPrompt *string          `json:"systemPrompt"`
	Model        string           `json:"model"`
	Temperature  float64          `json:"temperature"`
	MaxTokens    int              `json:"maxTokens"`
	IsActive     bool             `json:"isActive"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

func NewAgentResponse(a *model.Agent) AgentResponse {
	resp := AgentResponse{
		ID:           a.ID,
		ProviderID:   a.ProviderID,
		Name:         a.Name,
		Role:         nullString(a.Role),
		Description:  nullString(a.Description),
		SystemPrompt: nullString(a.SystemPrompt),
		Model:        a.Model,
		Temperature:  a.Temperature,
		MaxTokens:    a.MaxTokens,
		IsActive:     a.IsActive,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
	if a.Provider != nil {
		resp.Provider = &ProviderSummary{
			ID:           a.Provider.ID,
			Name:         a.Provider.Name,
			ProviderType: a.Provider.Type,
		}
	}
	return resp
}

type AgentSummary struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

func newAgentSummary(a *model.Agent) *AgentSummary {
	if a == nil {
		return nil
	}
	return &AgentSummary{ID: a.ID, Name: a.Name, Model: a.Model}
}
