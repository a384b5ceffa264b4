package service

import (
	"prism/config"
	"prism/internal/event"
	"prism/internal/llm"
	"prism/internal/repository"
	"prism/internal/vault"
	"prism/pkg/cache"
	"prism/pkg/logger"
)

type Service struct {
	BoardService     BoardService
	TaskService      TaskService
	AgentService     AgentService
	ProviderService  ProviderService
	AIService        AIService
	ExecutionService ExecutionService
	Sweeper          Sweeper
}

func NewService(
	cfg *config.Config,
	log *logger.Logger,
	repo *repository.Repository,
	inmemoryCache cache.Cache,
	credentialVault vault.Vault,
	factory llm.Factory,
	bus event.Bus,
	publisher event.Publisher,
) *Service {
	boardService := NewBoardService(log, repo.BoardRepo)
	providerService := NewProviderService(cfg, log, repo.ProviderRepo, credentialVault, factory, inmemoryCache)
	agentService := NewAgentService(log, repo.AgentRepo, repo.ProviderRepo)
	taskService := NewTaskService(log, repo.BoardRepo, repo.TaskRepo, repo.AgentRepo, repo.ExecutionRepo, bus)
	aiService := NewAIService(log, providerService, factory)
	executionService := NewExecutionService(cfg, log, repo.UnitOfWork, repo.TaskRepo, repo.ExecutionRepo, taskService, agentService, aiService, bus, publisher)

	return &Service{
		BoardService:     boardService,
		TaskService:      taskService,
		AgentService:     agentService,
		ProviderService:  providerService,
		AIService:        aiService,
		ExecutionService: executionService,
		Sweeper:          NewSweeper(cfg, log, executionService),
	}
}
