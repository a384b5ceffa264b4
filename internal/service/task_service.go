package service

import (
	"context"
	"fmt"

	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/event"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/internal/statemachine"
	"prism/pkg/logger"
	"prism/pkg/utils"

	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
)

const contextExecutionLimit = 10

type TaskService interface {
	Create(ctx context.Context, userID string, boardID uint, req dto.CreateTaskRequest) (*dto.TaskResponse, error)
	FindAllByBoard(ctx context.Context, userID string, boardID uint) ([]dto.TaskResponse, error)
	FindOne(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error)
	Update(ctx context.Context, userID string, id uint, req dto.UpdateTaskRequest) (*dto.TaskResponse, error)
	Remove(ctx context.Context, userID string, id uint) error
	ChangePosition(ctx context.Context, userID string, id uint, position int) (*dto.TaskResponse, error)

	Approve(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error)
	Reject(ctx context.Context, userID string, id uint, feedback string) (*dto.TaskResponse, error)
	Cancel(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error)
	Reopen(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error)

	// CompleteTask moves an IN_PROGRESS task to IN_REVIEW after a successful execution.
	CompleteTask(ctx context.Context, userID string, id uint) error
	GetContext(ctx context.Context, userID string, id uint) (*dto.TaskContextResponse, error)
	GetTaskEntity(ctx context.Context, userID string, id uint) (*model.Task, error)
}

type taskService struct {
	log           *logger.Logger
	boardRepo     repository.BoardRepository
	taskRepo      repository.TaskRepository
	agentRepo     repository.AgentRepository
	executionRepo repository.ExecutionRepository
	bus           event.Bus
}

func NewTaskService(
	log *logger.Logger,
	boardRepo repository.BoardRepository,
	taskRepo repository.TaskRepository,
	agentRepo repository.AgentRepository,
	executionRepo repository.ExecutionRepository,
	bus event.Bus,
) TaskService {
	return &taskService{
		log:           log,
		boardRepo:     boardRepo,
		taskRepo:      taskRepo,
		agentRepo:     agentRepo,
		executionRepo: executionRepo,
		bus:           bus,
	}
}

func NewTaskResponse(task *model.Task) dto.TaskResponse {
	return dto.NewTaskResponse(task, statemachine.ActionNames(task.Status))
}

func (s *taskService) Create(ctx context.Context, userID string, boardID uint, req dto.CreateTaskRequest) (*dto.TaskResponse, error) {
	if err := s.ensureBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	if req.AgentID != nil {
		if err := s.ensureAgent(ctx, userID, *req.AgentID); err != nil {
			return nil, err
		}
	}

	maxPosition, err := s.taskRepo.MaxPosition(ctx, boardID, model.TaskStatusTodo)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to get max task position", logger.ErrorField(err), logger.BoardIDField(boardID))
		return nil, fmt.Errorf("failed to get max task position: %w", err)
	}

	priority := req.Priority
	if priority == "" {
		priority = model.TaskPriorityMedium
	}

	task := &model.Task{
		BoardID:     boardID,
		AgentID:     req.AgentID,
		Title:       req.Title,
		Description: dto.ToNullString(req.Description),
		Status:      model.TaskStatusTodo,
		Priority:    priority,
		Position:    maxPosition + 1,
		DueDate:     dto.ToNullTime(req.DueDate),
	}
	if len(req.ReferencedTaskIDs) > 0 {
		task.ReferencedTaskIDs = datatypes.NewJSONSlice(req.ReferencedTaskIDs)
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		s.log.ErrorContext(ctx, "Failed to create task", logger.ErrorField(err), logger.BoardIDField(boardID))
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	resp, err := s.FindOne(ctx, userID, task.ID)
	if err != nil {
		return nil, err
	}
	s.bus.Emit(event.New(event.TaskCreated, userID, boardID, event.TaskPayload{Task: resp}))
	return resp, nil
}

func (s *taskService) FindAllByBoard(ctx context.Context, userID string, boardID uint) ([]dto.TaskResponse, error) {
	if err := s.ensureBoard(ctx, userID, boardID); err != nil {
		return nil, err
	}
	tasks, err := s.taskRepo.FindAllByBoard(ctx, boardID, utils.WithPreload("Agent"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find tasks", logger.ErrorField(err), logger.BoardIDField(boardID))
		return nil, fmt.Errorf("failed to find tasks: %w", err)
	}
	result := make([]dto.TaskResponse, 0, len(tasks))
	for i := range tasks {
		result = append(result, NewTaskResponse(&tasks[i]))
	}
	return result, nil
}

func (s *taskService) FindOne(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error) {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	resp := NewTaskResponse(task)
	return &resp, nil
}

func (s *taskService) Update(ctx context.Context, userID string, id uint, req dto.UpdateTaskRequest) (*dto.TaskResponse, error) {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if req.AgentID.Set {
		if req.AgentID.Value != nil {
			if err := s.ensureAgent(ctx, userID, *req.AgentID.Value); err != nil {
				return nil, err
			}
		}
		task.AgentID = req.AgentID.Value
		task.Agent = nil
	}
	if req.Title != nil {
		task.Title = *req.Title
	}
	if req.Description != nil {
		task.Description = dto.ToNullString(req.Description)
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	if req.DueDate != nil {
		task.DueDate = dto.ToNullTime(req.DueDate)
	}
	if req.ReferencedTaskIDs != nil {
		task.ReferencedTaskIDs = datatypes.NewJSONSlice(*req.ReferencedTaskIDs)
	}

	return s.save(ctx, userID, task)
}

func (s *taskService) Remove(ctx context.Context, userID string, id uint) error {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.taskRepo.Delete(ctx, task.ID); err != nil {
		s.log.ErrorContext(ctx, "Failed to delete task", logger.ErrorField(err), logger.TaskIDField(id))
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.bus.Emit(event.New(event.TaskDeleted, userID, task.BoardID, event.TaskDeletedPayload{TaskID: task.ID}))
	return nil
}

// ChangePosition reorders within the current column. It never changes status.
func (s *taskService) ChangePosition(ctx context.Context, userID string, id uint, position int) (*dto.TaskResponse, error) {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := s.taskRepo.UpdatePosition(ctx, task.ID, position); err != nil {
		s.log.ErrorContext(ctx, "Failed to update task position", logger.ErrorField(err), logger.TaskIDField(id))
		return nil, fmt.Errorf("failed to update task position: %w", err)
	}

	// Reload so the event carries the stored status, not the one read above.
	resp, err := s.FindOne(ctx, userID, task.ID)
	if err != nil {
		return nil, err
	}
	s.bus.Emit(event.New(event.TaskMoved, userID, task.BoardID, event.TaskMovedPayload{
		TaskID:     task.ID,
		FromStatus: string(resp.Status),
		ToStatus:   string(resp.Status),
		Position:   position,
	}))
	return resp, nil
}

func (s *taskService) Approve(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error) {
	return s.performAction(ctx, userID, id, statemachine.ActionApprove, nil)
}

// Reject sends the task back for another run. Non-empty feedback is appended to the description.
func (s *taskService) Reject(ctx context.Context, userID string, id uint, feedback string) (*dto.TaskResponse, error) {
	return s.performAction(ctx, userID, id, statemachine.ActionRetry, func(task *model.Task) {
		if feedback == "" {
			return
		}
		task.Description.String = fmt.Sprintf("%s\n\n---\nFeedback: %s", task.Description.String, feedback)
		task.Description.Valid = true
	})
}

func (s *taskService) Cancel(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error) {
	return s.performAction(ctx, userID, id, statemachine.ActionCancel, nil)
}

func (s *taskService) Reopen(ctx context.Context, userID string, id uint) (*dto.TaskResponse, error) {
	return s.performAction(ctx, userID, id, statemachine.ActionReopen, nil)
}

func (s *taskService) CompleteTask(ctx context.Context, userID string, id uint) error {
	_, err := s.performAction(ctx, userID, id, statemachine.ActionComplete, nil)
	return err
}

func (s *taskService) performAction(ctx context.Context, userID string, id uint, action statemachine.Action, mutate func(task *model.Task)) (*dto.TaskResponse, error) {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	from := task.Status
	next, err := statemachine.Transition(from, action)
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(task)
	}
	task.Status = next

	applied, err := s.taskRepo.Transition(ctx, task, from)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to transition task", logger.ErrorField(err), logger.TaskIDField(task.ID))
		return nil, fmt.Errorf("failed to transition task: %w", err)
	}
	if !applied {
		return nil, transitionRefused(ctx, s.taskRepo, userID, task.ID, action)
	}

	s.log.DebugContext(ctx, "Task transition",
		logger.TaskIDField(task.ID),
		logger.StringField("action", string(action)),
		logger.StringField("status", string(next)),
	)
	return s.respond(ctx, userID, task)
}

func (s *taskService) save(ctx context.Context, userID string, task *model.Task) (*dto.TaskResponse, error) {
	if err := s.taskRepo.Update(ctx, task); err != nil {
		s.log.ErrorContext(ctx, "Failed to update task", logger.ErrorField(err), logger.TaskIDField(task.ID))
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.respond(ctx, userID, task)
}

// respond reloads the task and emits task.updated.
func (s *taskService) respond(ctx context.Context, userID string, task *model.Task) (*dto.TaskResponse, error) {
	resp, err := s.FindOne(ctx, userID, task.ID)
	if err != nil {
		return nil, err
	}
	s.bus.Emit(event.New(event.TaskUpdated, userID, task.BoardID, event.TaskPayload{Task: resp}))
	return resp, nil
}

// GetContext returns the latest executions of the task and the last execution of
// every referenced task the user owns.
func (s *taskService) GetContext(ctx context.Context, userID string, id uint) (*dto.TaskContextResponse, error) {
	task, err := s.GetTaskEntity(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	var (
		previous []model.Execution
		refTasks []model.Task
		latest   map[uint]model.Execution
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		previous, err = s.executionRepo.FindAllByTask(gctx, task.ID,
			utils.WithPreload("Agent"),
			utils.WithLimit(contextExecutionLimit),
		)
		if err != nil {
			return fmt.Errorf("failed to find executions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		refTasks, err = s.taskRepo.FindByIDs(gctx, task.ReferencedTaskIDs, userID)
		if err != nil {
			return fmt.Errorf("failed to find referenced tasks: %w", err)
		}
		ids := make([]uint, 0, len(refTasks))
		for _, t := range refTasks {
			ids = append(ids, t.ID)
		}
		latest, err = s.executionRepo.FindLatestByTasks(gctx, ids, nil)
		if err != nil {
			return fmt.Errorf("failed to find referenced executions: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "Failed to build task context", logger.ErrorField(err), logger.TaskIDField(id))
		return nil, err
	}

	byID := make(map[uint]model.Task, len(refTasks))
	for _, t := range refTasks {
		byID[t.ID] = t
	}

	referenced := make([]dto.ReferencedTaskContext, 0, len(refTasks))
	for _, refID := range task.ReferencedTaskIDs {
		ref, ok := byID[refID]
		if !ok {
			continue
		}
		delete(byID, refID)

		item := dto.ReferencedTaskContext{TaskID: ref.ID, TaskTitle: ref.Title}
		if exec, ok := latest[ref.ID]; ok {
			resp := dto.NewExecutionResponse(&exec)
			item.LastExecution = &resp
		}
		referenced = append(referenced, item)
	}

	return &dto.TaskContextResponse{
		PreviousExecutions: dto.NewExecutionResponses(previous),
		ReferencedTasks:    referenced,
	}, nil
}

// GetTaskEntity returns the task if it sits on a board owned by userID.
func (s *taskService) GetTaskEntity(ctx context.Context, userID string, id uint) (*model.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, id, userID, utils.WithPreload("Agent"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find task", logger.ErrorField(err), logger.TaskIDField(id))
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if task == nil {
		return nil, apperror.NotFound("Task", id)
	}
	return task, nil
}

// transitionRefused builds the error for a transition whose compare-and-set lost to a
// concurrent write, reporting the status the task has now.
func transitionRefused(ctx context.Context, taskRepo repository.TaskRepository, userID string, id uint, action statemachine.Action) error {
	current, err := taskRepo.FindByID(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	if current == nil {
		return apperror.NotFound("Task", id)
	}
	return apperror.InvalidStateTransition(string(action), string(current.Status), statemachine.ActionNames(current.Status))
}

func (s *taskService) ensureBoard(ctx context.Context, userID string, boardID uint) error {
	board, err := s.boardRepo.FindByID(ctx, boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to find board: %w", err)
	}
	if board == nil {
		return apperror.NotFound("Board", boardID)
	}
	return nil
}

func (s *taskService) ensureAgent(ctx context.Context, userID string, agentID uint) error {
	agent, err := s.agentRepo.FindByID(ctx, agentID, userID)
	if err != nil {
		return fmt.Errorf("failed to find agent: %w", err)
	}
	if agent == nil {
		return apperror.NotFound("Agent", agentID)
	}
	return nil
}
