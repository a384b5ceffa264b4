package repository

import (
	"context"
	"errors"
	"prism/internal/model"
	"prism/pkg/utils"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ProviderRepository interface {
	Create(ctx context.Context, provider *model.Provider, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Provider, error)
	FindByName(ctx context.Context, userID string, name string, opts ...utils.DBOption) (*model.Provider, error)
	FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Provider, error)
	Update(ctx context.Context, provider *model.Provider, opts ...utils.DBOption) error
	UpdateModels(ctx context.Context, id uint, models []string, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type providerRepository struct {
	db *gorm.DB
}

func NewProviderRepository(db *gorm.DB) ProviderRepository {
	return &providerRepository{db: db}
}

func (r *providerRepository) Create(ctx context.Context, provider *model.Provider, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(provider).Error
}

func (r *providerRepository) first(db *gorm.DB, query interface{}, args ...interface{}) (*model.Provider, error) {
	var provider model.Provider
	if err := db.Where(query, args...).First(&provider).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &provider, nil
}

func (r *providerRepository) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Provider, error) {
	return r.first(utils.ApplyOptions(r.db.WithContext(ctx), opts...), "id = ? AND user_id = ?", id, userID)
}

func (r *providerRepository) FindByName(ctx context.Context, userID string, name string, opts ...utils.DBOption) (*model.Provider, error) {
	return r.first(utils.ApplyOptions(r.db.WithContext(ctx), opts...), "user_id = ? AND name = ?", userID, name)
}

func (r *providerRepository) FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Provider, error) {
	var providers []model.Provider
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&providers).Error
	if err != nil {
		return nil, err
	}
	return providers, nil
}

func (r *providerRepository) Update(ctx context.Context, provider *model.Provider, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Save(provider).Error
}

func (r *providerRepository) UpdateModels(ctx context.Context, id uint, models []string, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Provider{}).
		Where("id = ?", id).
		Update("models", datatypes.NewJSONSlice(models)).Error
}

func (r *providerRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Provider{}, id).Error
}
