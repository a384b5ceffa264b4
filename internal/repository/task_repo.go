package repository

import (
	"context"
	"errors"
	"prism/internal/model"
	"prism/pkg/utils"

	"gorm.io/gorm"
)

type TaskRepository interface {
	Create(ctx context.Context, task *model.Task, opts ...utils.DBOption) error
	FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Task, error)
	FindByIDs(ctx context.Context, ids []uint, userID string, opts ...utils.DBOption) ([]model.Task, error)
	FindAllByBoard(ctx context.Context, boardID uint, opts ...utils.DBOption) ([]model.Task, error)
	MaxPosition(ctx context.Context, boardID uint, status model.TaskStatus, opts ...utils.DBOption) (int, error)
	Update(ctx context.Context, task *model.Task, opts ...utils.DBOption) error
	UpdatePosition(ctx context.Context, id uint, position int, opts ...utils.DBOption) error
	Transition(ctx context.Context, task *model.Task, from model.TaskStatus, opts ...utils.DBOption) (bool, error)
	Delete(ctx context.Context, id uint, opts ...utils.DBOption) error
}

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) owned(db *gorm.DB, userID string) *gorm.DB {
	return db.Select("tasks.*").
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("boards.user_id = ?", userID)
}

func (r *taskRepository) Create(ctx context.Context, task *model.Task, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Board", "Agent").Create(task).Error
}

// FindByID returns nil, nil unless the task exists on a board owned by userID.
func (r *taskRepository) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Task, error) {
	var task model.Task
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	err := r.owned(db, userID).
		Where("tasks.id = ?", id).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// FindByIDs returns the owned subset of ids. Unknown or foreign ids are skipped.
func (r *taskRepository) FindByIDs(ctx context.Context, ids []uint, userID string, opts ...utils.DBOption) ([]model.Task, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var tasks []model.Task
	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...)
	err := r.owned(db, userID).
		Where("tasks.id IN ?", ids).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) FindAllByBoard(ctx context.Context, boardID uint, opts ...utils.DBOption) ([]model.Task, error) {
	var tasks []model.Task
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("board_id = ?", boardID).
		Order("status ASC").
		Order("position ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// MaxPosition returns the highest position in a board column, or -1 when empty.
func (r *taskRepository) MaxPosition(ctx context.Context, boardID uint, status model.TaskStatus, opts ...utils.DBOption) (int, error) {
	var max int
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Task{}).
		Where("board_id = ? AND status = ?", boardID, status).
		Select("COALESCE(MAX(position), -1)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max, nil
}

// editableColumns are the fields a task edit may write. Status and position have their own writes.
var editableColumns = []string{"agent_id", "title", "description", "priority", "due_date", "referenced_task_ids", "updated_at"}

// Update writes the editable fields only, so a stale copy never rewrites status.
func (r *taskRepository) Update(ctx context.Context, task *model.Task, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(task).
		Select(editableColumns).
		Updates(task).Error
}

func (r *taskRepository) UpdatePosition(ctx context.Context, id uint, position int, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Task{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"position": position, "updated_at": utils.TimeNow()}).Error
}

// Transition writes task.Status (and the description, which reject amends) only while the
// stored status is still from. It reports false when another write got there first.
func (r *taskRepository) Transition(ctx context.Context, task *model.Task, from model.TaskStatus, opts ...utils.DBOption) (bool, error) {
	result := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(task).
		Where("status = ?", from).
		Select("status", "description", "updated_at").
		Updates(task)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *taskRepository) Delete(ctx context.Context, id uint, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Delete(&model.Task{}, id).Error
}
