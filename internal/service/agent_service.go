package service

import (
	"context"
	"fmt"

	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/pkg/logger"
	"prism/pkg/utils"
)

type AgentService interface {
	Create(ctx context.Context, userID string, req dto.CreateAgentRequest) (*dto.AgentResponse, error)
	FindAll(ctx context.Context, userID string) ([]dto.AgentResponse, error)
	FindOne(ctx context.Context, userID string, id uint) (*dto.AgentResponse, error)
	Update(ctx context.Context, userID string, id uint, req dto.UpdateAgentRequest) (*dto.AgentResponse, error)
	Remove(ctx context.Context, userID string, id uint) error
	GetAgentEntity(ctx context.Context, userID string, id uint) (*model.Agent, error)
}

type agentService struct {
	log          *logger.Logger
	agentRepo    repository.AgentRepository
	providerRepo repository.ProviderRepository
}

func NewAgentService(log *logger.Logger, agentRepo repository.AgentRepository, providerRepo repository.ProviderRepository) AgentService {
	return &agentService{
		log:          log,
		agentRepo:    agentRepo,
		providerRepo: providerRepo,
	}
}

func (s *agentService) Create(ctx context.Context, userID string, req dto.CreateAgentRequest) (*dto.AgentResponse, error) {
	if err := s.ensureProvider(ctx, userID, req.ProviderID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueName(ctx, userID, req.Name, 0); err != nil {
		return nil, err
	}

	agent := &model.Agent{
		UserID:       userID,
		ProviderID:   req.ProviderID,
		Name:         req.Name,
		Role:         dto.ToNullString(req.Role),
		Description:  dto.ToNullString(req.Description),
		SystemPrompt: dto.ToNullString(req.SystemPrompt),
		Model:        req.Model,
		Temperature:  model.DefaultAgentTemperature,
		MaxTokens:    model.DefaultAgentMaxTokens,
		IsActive:     true,
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = *req.MaxTokens
	}

	if err := s.agentRepo.Create(ctx, agent); err != nil {
		s.log.ErrorContext(ctx, "Failed to create agent", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return s.FindOne(ctx, userID, agent.ID)
}

func (s *agentService) FindAll(ctx context.Context, userID string) ([]dto.AgentResponse, error) {
	agents, err := s.agentRepo.FindAllByUser(ctx, userID, utils.WithPreload("Provider"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find agents", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to find agents: %w", err)
	}
	result := make([]dto.AgentResponse, 0, len(agents))
	for i := range agents {
		result = append(result, dto.NewAgentResponse(&agents[i]))
	}
	return result, nil
}

func (s *agentService) FindOne(ctx context.Context, userID string, id uint) (*dto.AgentResponse, error) {
	agent, err := s.GetAgentEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := dto.NewAgentResponse(agent)
	return &resp, nil
}

func (s *agentService) Update(ctx context.Context, userID string, id uint, req dto.UpdateAgentRequest) (*dto.AgentResponse, error) {
	agent, err := s.GetAgentEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.ProviderID != nil && *req.ProviderID != agent.ProviderID {
		if err := s.ensureProvider(ctx, userID, *req.ProviderID); err != nil {
			return nil, err
		}
		agent.ProviderID = *req.ProviderID
		agent.Provider = nil
	}
	if req.Name != nil && *req.Name != agent.Name {
		if err := s.ensureUniqueName(ctx, userID, *req.Name, id); err != nil {
			return nil, err
		}
		agent.Name = *req.Name
	}
	if req.Role != nil {
		agent.Role = dto.ToNullString(req.Role)
	}
	if req.Description != nil {
		agent.Description = dto.ToNullString(req.Description)
	}
	if req.SystemPrompt != nil {
		agent.SystemPrompt = dto.ToNullString(req.SystemPrompt)
	}
	if req.Model != nil {
		agent.Model = *req.Model
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = *req.MaxTokens
	}
	if req.IsActive != nil {
		agent.IsActive = *req.IsActive
	}

	if err := s.agentRepo.Update(ctx, agent); err != nil {
		s.log.ErrorContext(ctx, "Failed to update agent", logger.ErrorField(err), logger.UintField("agent_id", id))
		return nil, fmt.Errorf("failed to update agent: %w", err)
	}
	return s.FindOne(ctx, userID, id)
}

func (s *agentService) Remove(ctx context.Context, userID string, id uint) error {
	agent, err := s.GetAgentEntity(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.agentRepo.Delete(ctx, agent.ID); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete agent", logger.ErrorField(err), logger.UintField("agent_id", id))
		return fmt.Errorf("failed to delete agent: %w", err)
	}
	return nil
}

// GetAgentEntity returns the owned agent with its provider loaded.
func (s *agentService) GetAgentEntity(ctx context.Context, userID string, id uint) (*model.Agent, error) {
	agent, err := s.agentRepo.FindByID(ctx, id, userID, utils.WithPreload("Provider"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find agent", logger.ErrorField(err), logger.UintField("agent_id", id))
		return nil, fmt.Errorf("failed to find agent: %w", err)
	}
	if agent == nil {
		return nil, apperror.NotFound("Agent", id)
	}
	return agent, nil
}

func (s *agentService) ensureProvider(ctx context.Context, userID string, providerID uint) error {
	provider, err := s.providerRepo.FindByID(ctx, providerID, userID)
	if err != nil {
		return fmt.Errorf("failed to find provider: %w", err)
	}
	if provider == nil {
		return apperror.NotFound("Provider", providerID)
	}
	return nil
}

func (s *agentService) ensureUniqueName(ctx context.Context, userID, name string, selfID uint) error {
	existing, err := s.agentRepo.FindByName(ctx, userID, name)
	if err != nil {
		return fmt.Errorf("failed to find agent by name: %w", err)
	}
	if existing != nil && existing.ID != selfID {
		return apperror.DuplicateResource("Agent", "name", name)
	}
	return nil
}
