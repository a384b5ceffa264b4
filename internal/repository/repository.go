package repository

import (
	"gorm.io/gorm"
)

type Repository struct {
	BoardRepo     BoardRepository
	TaskRepo      TaskRepository
	AgentRepo     AgentRepository
	ProviderRepo  ProviderRepository
	ExecutionRepo ExecutionRepository
	UnitOfWork    UnitOfWork
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		BoardRepo:     NewBoardRepository(db),
		TaskRepo:      NewTaskRepository(db),
		AgentRepo:     NewAgentRepository(db),
		ProviderRepo:  NewProviderRepository(db),
		ExecutionRepo: NewExecutionRepository(db),
		UnitOfWork:    NewUnitOfWork(db),
	}
}
