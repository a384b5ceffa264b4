package repository

import (
	"context"
	"errors"
	"prism/internal/model"
	"prism/pkg/utils"

	"gorm.io/gorm"
)

type BoardRepository interface {
	Create(ctx context.Context, board *model.Board, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Board, error)
	FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Board, error)
	Update(ctx context.Context, board *model.Board, opts ...utils.DBOption) error
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type boardRepository struct {
	db *gorm.DB
}

func NewBoardRepository(db *gorm.DB) BoardRepository {
	return &boardRepository{db: db}
}

func (r *boardRepository) Create(ctx context.Context, board *model.Board, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Create(board).Error
}

// FindByID returns nil, nil when the board does not exist or belongs to another user.
func (r *boardRepository) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Board, error) {
	var board model.Board
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("id = ? AND user_id = ?", id, userID).
		First(&board).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &board, nil
}

func (r *boardRepository) FindAllByUser(ctx context.Context, userID string, opts ...utils.DBOption) ([]model.Board, error) {
	var boards []model.Board
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&boards).Error
	if err != nil {
		return nil, err
	}
	return boards, nil
}

func (r *boardRepository) Update(ctx context.Context, board *model.Board, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Tasks").Save(board).Error
}

func (r *boardRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Board{}, id).Error
}
