package repository

import (
	"context"
	"database/sql"
	"errors"
	"prism/internal/model"
	"prism/pkg/utils"
	"time"

	"gorm.io/gorm"
)

type ExecutionRepository interface {
	Create(ctx context.Context, execution *model.Execution, opts ...utils.DBOption) error
	CountByTask(ctx context.Context, taskID uint, opts ...utils.DBOption) (int64, error)
	FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Execution, error)
	FindAllByTask(ctx context.Context, taskID uint, opts ...utils.DBOption) ([]model.Execution, error)
	FindLatestByTasks(ctx context.Context, taskIDs []uint, status *model.ExecutionStatus, opts ...utils.DBOption) (map[uint]model.Execution, error)
	MarkRunning(ctx context.Context, id uint, startedAt time.Time, opts ...utils.DBOption) (bool, error)
	Finish(ctx context.Context, execution *model.Execution, opts ...utils.DBOption) (bool, error)
	FindStuck(ctx context.Context, createdBefore time.Time, opts ...utils.DBOption) ([]model.Execution, error)
}

type executionRepository struct {
	db *gorm.DB
}

func NewExecutionRepository(db *gorm.DB) ExecutionRepository {
	return &executionRepository{db: db}
}

func (r *executionRepository) Create(ctx context.Context, execution *model.Execution, opts ...utils.DBOption) error {
	return utils.ApplyOptions(r.db.WithContext(ctx), opts...).Omit("Task", "Agent").Create(execution).Error
}

func (r *executionRepository) CountByTask(ctx context.Context, taskID uint, opts ...utils.DBOption) (int64, error) {
	var count int64
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Execution{}).
		Where("task_id = ?", taskID).
		Count(&count).Error
	return count, err
}

// FindByID checks ownership through the task's board.
func (r *executionRepository) FindByID(ctx context.Context, id uint, userID string, opts ...utils.DBOption) (*model.Execution, error) {
	var execution model.Execution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Select("executions.*").
		Joins("JOIN tasks ON tasks.id = executions.task_id").
		Joins("JOIN boards ON boards.id = tasks.board_id").
		Where("executions.id = ? AND boards.user_id = ?", id, userID).
		First(&execution).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &execution, nil
}

// FindAllByTask returns newest execution number first.
func (r *executionRepository) FindAllByTask(ctx context.Context, taskID uint, opts ...utils.DBOption) ([]model.Execution, error) {
	var executions []model.Execution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Where("task_id = ?", taskID).
		Order("execution_number DESC").
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}

// FindLatestByTasks returns the highest numbered execution per task, optionally filtered by status.
func (r *executionRepository) FindLatestByTasks(ctx context.Context, taskIDs []uint, status *model.ExecutionStatus, opts ...utils.DBOption) (map[uint]model.Execution, error) {
	result := make(map[uint]model.Execution, len(taskIDs))
	if len(taskIDs) == 0 {
		return result, nil
	}

	db := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Select("DISTINCT ON (task_id) *").
		Where("task_id IN ?", taskIDs)
	if status != nil {
		db = db.Where("status = ?", *status)
	}

	var executions []model.Execution
	if err := db.Order("task_id").Order("execution_number DESC").Find(&executions).Error; err != nil {
		return nil, err
	}
	for _, e := range executions {
		result[e.TaskID] = e
	}
	return result, nil
}

// MarkRunning moves a PENDING execution to RUNNING. It reports false when the row was
// already moved on, e.g. by the stuck sweeper.
func (r *executionRepository) MarkRunning(ctx context.Context, id uint, startedAt time.Time, opts ...utils.DBOption) (bool, error) {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Execution{}).
		Where("id = ? AND status = ? AND completed_at IS NULL", id, model.ExecutionStatusPending).
		Updates(map[string]interface{}{
			"status":     model.ExecutionStatusRunning,
			"started_at": sql.NullTime{Time: startedAt, Valid: true},
		})
	return res.RowsAffected > 0, res.Error
}

// Finish writes the terminal fields. Once completed_at is set the row is never rewritten.
func (r *executionRepository) Finish(ctx context.Context, execution *model.Execution, opts ...utils.DBOption) (bool, error) {
	res := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Model(&model.Execution{}).
		Where("id = ? AND completed_at IS NULL", execution.ID).
		Updates(map[string]interface{}{
			"status":        execution.Status,
			"output_result": execution.OutputResult,
			"input_tokens":  execution.InputTokens,
			"output_tokens": execution.OutputTokens,
			"duration_ms":   execution.DurationMs,
			"error_message": execution.ErrorMessage,
			"started_at":    execution.StartedAt,
			"completed_at":  execution.CompletedAt,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *executionRepository) FindStuck(ctx context.Context, createdBefore time.Time, opts ...utils.DBOption) ([]model.Execution, error) {
	var executions []model.Execution
	err := utils.ApplyOptions(r.db.WithContext(ctx), opts...).
		Preload("Task.Board").
		Preload("Agent").
		Where("status IN ? AND completed_at IS NULL AND created_at < ?",
			[]model.ExecutionStatus{model.ExecutionStatusPending, model.ExecutionStatusRunning}, createdBefore).
		Order("id").
		Find(&executions).Error
	if err != nil {
		return nil, err
	}
	return executions, nil
}
