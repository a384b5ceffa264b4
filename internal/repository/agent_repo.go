package repository

import (
	"context"
	"errors"
	"prism/internal/model"
	"prism/pkg/utils"

	"gorm.io/gorm"
)

type AgentRepository interface {
	Create(ctx context.Context, agent *model.Agent, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Agent, error)
	FindByName(ctx context.Context, userID string, name string, opts ...utils.DBOption) (*model.Agent, error)
	FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Agent, error)
	Update(ctx context.Context, agent *model.Agent, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type agentRepository struct {
	db *gorm.DB
}

func NewAgentRepository(db *gorm.DB) AgentRepository {
	return &agentRepository{db: db}
}

func (r *agentRepository) Create(ctx context.Context, agent *model.Agent, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Provider").Create(agent).Error
}

func (r *agentRepository) first(db *gorm.DB, query interface{}, args ...interface{}) (*model.Agent, error) {
	var agent model.Agent
	if err := db.Where(query, args...).First(&agent).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &agent, nil
}

func (r *agentRepository) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Agent, error) {
	return r.first(utils.ApplyOptions(r.db.WithContext(ctx), opts...), "id = ? AND user_id = ?", id, userID)
}

func (r *agentRepository) FindByName(ctx context.Context, userID string, name string, opts ...utils.DBOption) (*model.Agent, error) {
	return r.first(utils.ApplyOptions(r.db.WithContext(ctx), opts...), "user_id = ? AND name = ?", userID, name)
}

func (r *agentRepository) FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Agent, error) {
	var agents []model.Agent
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&agents).Error
	if err != nil {
		return nil, err
	}
	return agents, nil
}

func (r *agentRepository) Update(ctx context.Context, agent *model.Agent, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Provider").Save(agent).Error
}

func (r *agentRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Agent{}, id).Error
}
