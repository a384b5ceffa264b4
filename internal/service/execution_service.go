package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"prism/config"
	"prism/internal/apperror"
	"prism/internal/dto"
	"prism/internal/event"
	"prism/internal/llm"
	"prism/internal/model"
	"prism/internal/repository"
	"prism/internal/statemachine"
	"prism/pkg/logger"
	"prism/pkg/utils"
)

const abandonedExecutionMessage = "execution abandoned"

// errTransitionLost rolls back an execute whose task changed status after it was read.
var errTransitionLost = errors.New("task transition lost")

type ExecutionService interface {
	// ExecuteTask starts a run and returns the PENDING execution. Generation
	// continues in the background.
	ExecuteTask(ctx context.Context, userID string, taskID uint) (*dto.ExecutionResponse, error)
	FindByTask(ctx context.Context, userID string, taskID uint) ([]dto.ExecutionResponse, error)
	FindOne(ctx context.Context, userID string, id uint) (*dto.ExecutionResponse, error)
	// SweepStuck fails executions that never reached a terminal state and returns how many it closed.
	SweepStuck(ctx context.Context) (int, error)
	// Wait blocks until every background run has finished.
	Wait()
}

type executionService struct {
	cfg           *config.Config
	log           *logger.Logger
	uow           repository.UnitOfWork
	taskRepo      repository.TaskRepository
	executionRepo repository.ExecutionRepository
	taskService   TaskService
	agentService  AgentService
	aiService     AIService
	bus           event.Bus
	publisher     event.Publisher

	semaphore chan struct{}
	wg        sync.WaitGroup
}

// executionJob is the snapshot handed to the background run.
type executionJob struct {
	userID      string
	executionID uint
	taskID      uint
	boardID     uint
	taskTitle   string
	agentName   string
	providerID  uint
	request     llm.GenerateRequest
}

func NewExecutionService(
	cfg *config.Config,
	log *logger.Logger,
	uow repository.UnitOfWork,
	taskRepo repository.TaskRepository,
	executionRepo repository.ExecutionRepository,
	taskService TaskService,
	agentService AgentService,
	aiService AIService,
	bus event.Bus,
	publisher event.Publisher,
) ExecutionService {
	maxConcurrency := cfg.Execution.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	return &executionService{
		cfg:           cfg,
		log:           log,
		uow:           uow,
		taskRepo:      taskRepo,
		executionRepo: executionRepo,
		taskService:   taskService,
		agentService:  agentService,
		aiService:     aiService,
		bus:           bus,
		publisher:     publisher,
		semaphore:     make(chan struct{}, maxConcurrency),
	}
}

func (s *executionService) ExecuteTask(ctx context.Context, userID string, taskID uint) (*dto.ExecutionResponse, error) {
	task, err := s.taskService.GetTaskEntity(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}
	if task.AgentID == nil {
		return nil, apperror.AgentNotAssigned()
	}
	next, err := statemachine.Transition(task.Status, statemachine.ActionExecute)
	if err != nil {
		return nil, err
	}
	agent, err := s.agentService.GetAgentEntity(ctx, userID, *task.AgentID)
	if err != nil {
		return nil, err
	}

	prompt, err := s.buildPrompt(ctx, userID, task)
	if err != nil {
		return nil, err
	}

	execution := &model.Execution{
		TaskID:      task.ID,
		AgentID:     agent.ID,
		Status:      model.ExecutionStatusPending,
		InputPrompt: prompt,
	}
	from := task.Status
	task.Status = next

	err = s.uow.Run(ctx, func(opts ...utils.DBOption) error {
		applied, err := s.taskRepo.Transition(ctx, task, from, opts...)
		if err != nil {
			return fmt.Errorf("failed to transition task: %w", err)
		}
		if !applied {
			return errTransitionLost
		}
		count, err := s.executionRepo.CountByTask(ctx, task.ID, opts...)
		if err != nil {
			return fmt.Errorf("failed to count executions: %w", err)
		}
		execution.ExecutionNumber = int(count) + 1
		if err := s.executionRepo.Create(ctx, execution, opts...); err != nil {
			return fmt.Errorf("failed to create execution: %w", err)
		}
		return nil
	})
	if errors.Is(err, errTransitionLost) {
		return nil, transitionRefused(ctx, s.taskRepo, userID, task.ID, statemachine.ActionExecute)
	}
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to start execution", logger.ErrorField(err), logger.TaskIDField(taskID))
		return nil, err
	}

	taskResp := NewTaskResponse(task)
	s.bus.Emit(event.New(event.TaskUpdated, userID, task.BoardID, event.TaskPayload{Task: &taskResp}))

	execution.Agent = agent
	resp := dto.NewExecutionResponse(execution)

	s.log.InfoContext(ctx, "Execution queued",
		logger.ExecutionIDField(execution.ID),
		logger.TaskIDField(task.ID),
		logger.IntField("execution_number", execution.ExecutionNumber),
		logger.StringField("model", agent.Model),
	)

	s.dispatch(executionJob{
		userID:      userID,
		executionID: execution.ID,
		taskID:      task.ID,
		boardID:     task.BoardID,
		taskTitle:   task.Title,
		agentName:   agent.Name,
		providerID:  agent.ProviderID,
		request: llm.GenerateRequest{
			SystemPrompt: agent.SystemPrompt.String,
			UserPrompt:   prompt,
			Model:        agent.Model,
			Temperature:  agent.Temperature,
			MaxTokens:    agent.MaxTokens,
		},
	})
	return &resp, nil
}

func (s *executionService) FindByTask(ctx context.Context, userID string, taskID uint) ([]dto.ExecutionResponse, error) {
	if _, err := s.taskService.GetTaskEntity(ctx, userID, taskID); err != nil {
		return nil, err
	}
	executions, err := s.executionRepo.FindAllByTask(ctx, taskID, utils.WithPreload("Agent"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find executions", logger.ErrorField(err), logger.TaskIDField(taskID))
		return nil, fmt.Errorf("failed to find executions: %w", err)
	}
	return dto.NewExecutionResponses(executions), nil
}

func (s *executionService) FindOne(ctx context.Context, userID string, id uint) (*dto.ExecutionResponse, error) {
	execution, err := s.executionRepo.FindByID(ctx, id, userID, utils.WithPreload("Agent"))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find execution", logger.ErrorField(err), logger.ExecutionIDField(id))
		return nil, fmt.Errorf("failed to find execution: %w", err)
	}
	if execution == nil {
		return nil, apperror.NotFound("Execution", id)
	}
	resp := dto.NewExecutionResponse(execution)
	return &resp, nil
}

func (s *executionService) Wait() {
	s.wg.Wait()
}

// buildPrompt freezes the text sent to the provider. Referenced tasks keep the
// order they were given in and contribute their latest completed output.
func (s *executionService) buildPrompt(ctx context.Context, userID string, task *model.Task) (string, error) {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(task.Title)
	if task.Description.Valid && task.Description.String != "" {
		b.WriteString("\n\nDescription:\n")
		b.WriteString(task.Description.String)
	}

	refIDs := make([]uint, 0, len(task.ReferencedTaskIDs))
	for _, id := range task.ReferencedTaskIDs {
		if id != task.ID {
			refIDs = append(refIDs, id)
		}
	}
	if len(refIDs) == 0 {
		return b.String(), nil
	}

	refs, err := s.taskRepo.FindByIDs(ctx, refIDs, userID)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find referenced tasks", logger.ErrorField(err), logger.TaskIDField(task.ID))
		return "", fmt.Errorf("failed to find referenced tasks: %w", err)
	}
	if len(refs) == 0 {
		return b.String(), nil
	}

	byID := make(map[uint]model.Task, len(refs))
	ids := make([]uint, 0, len(refs))
	for _, ref := range refs {
		byID[ref.ID] = ref
		ids = append(ids, ref.ID)
	}

	completed := model.ExecutionStatusCompleted
	latest, err := s.executionRepo.FindLatestByTasks(ctx, ids, &completed)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find referenced executions", logger.ErrorField(err), logger.TaskIDField(task.ID))
		return "", fmt.Errorf("failed to find referenced executions: %w", err)
	}

	b.WriteString("\n\n---\nReferenced Task Results:\n")
	for _, id := range refIDs {
		ref, ok := byID[id]
		if !ok {
			continue
		}
		delete(byID, id)

		exec, ok := latest[id]
		if !ok || !exec.OutputResult.Valid {
			fmt.Fprintf(&b, "\n[%s]\n", ref.Title)
			continue
		}
		output := utils.TruncateRunes(exec.OutputResult.String, s.cfg.Execution.ReferenceOutputLimit)
		fmt.Fprintf(&b, "\n[%s]\n%s\n", ref.Title, output)
	}
	return b.String(), nil
}

func (s *executionService) dispatch(job executionJob) {
	s.wg.Add(1)
	utils.GoSafe(func() {
		defer s.wg.Done()

		s.semaphore <- struct{}{}
		defer func() {
			<-s.semaphore
		}()

		s.run(job)
	}, func(err error) {
		s.log.ForExecution(job.executionID, job.taskID).Error("Execution run panicked", logger.ErrorField(err), logger.AlertField())
	})
}

func (s *executionService) run(job executionJob) {
	log := s.log.ForExecution(job.executionID, job.taskID)
	ctx := logger.NewContext(context.Background(), log)

	startedAt := utils.TimeNow()
	marked, err := s.executionRepo.MarkRunning(ctx, job.executionID, startedAt)
	if err != nil {
		log.ErrorContext(ctx, "Failed to mark execution running", logger.ErrorField(err))
		return
	}
	if !marked {
		log.WarnContext(ctx, "Execution already finished before it started")
		return
	}
	s.bus.Emit(event.New(event.ExecutionStarted, job.userID, job.boardID, event.ExecutionPayload{
		TaskID:      job.taskID,
		ExecutionID: job.executionID,
	}))

	genCtx := ctx
	if s.cfg.Execution.Timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, s.cfg.Execution.Timeout)
		defer cancel()
	}

	resp, err := s.generate(genCtx, job)
	completedAt := utils.TimeNow()

	execution := &model.Execution{
		ID:          job.executionID,
		StartedAt:   sql.NullTime{Time: startedAt, Valid: true},
		CompletedAt: sql.NullTime{Time: completedAt, Valid: true},
		DurationMs:  sql.NullInt32{Int32: int32(utils.ElapsedMillis(startedAt, completedAt)), Valid: true},
	}
	if err != nil {
		s.fail(ctx, job, execution, err.Error())
		return
	}
	s.complete(ctx, job, execution, resp)
}

// generate turns a panic inside the provider call into an ordinary failure.
func (s *executionService) generate(ctx context.Context, job executionJob) (resp *llm.GenerateResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.aiService.Generate(ctx, job.userID, job.providerID, job.request)
}

func (s *executionService) complete(ctx context.Context, job executionJob, execution *model.Execution, resp *llm.GenerateResponse) {
	output := utils.CleanToValidUTF8(resp.Content)
	execution.Status = model.ExecutionStatusCompleted
	execution.OutputResult = sql.NullString{String: output, Valid: true}
	execution.InputTokens = sql.NullInt32{Int32: int32(resp.InputTokens), Valid: true}
	execution.OutputTokens = sql.NullInt32{Int32: int32(resp.OutputTokens), Valid: true}

	applied, err := s.executionRepo.Finish(ctx, execution)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to persist completed execution", logger.ErrorField(err))
		return
	}
	if !applied {
		s.log.WarnContext(ctx, "Execution was already finished, dropping result")
		return
	}

	taskStatus := event.StatusInReview
	if err := s.taskService.CompleteTask(ctx, job.userID, job.taskID); err != nil {
		s.log.WarnContext(ctx, "Failed to move task to review", logger.ErrorField(err))
		taskStatus = s.currentTaskStatus(ctx, job)
	}

	s.bus.Emit(event.New(event.ExecutionCompleted, job.userID, job.boardID, event.ExecutionPayload{
		TaskID:       job.taskID,
		ExecutionID:  job.executionID,
		OutputResult: &output,
	}))

	if taskStatus != "" {
		s.publisher.PublishTaskCompleted(ctx, event.TaskEvent{
			TaskID:      job.taskID,
			BoardID:     job.boardID,
			UserID:      job.userID,
			Title:       job.taskTitle,
			Status:      taskStatus,
			AgentName:   utils.ToPointer(job.agentName),
			ExecutionID: utils.ToPointer(job.executionID),
			Timestamp:   utils.EpochMillis(execution.CompletedAt.Time),
		})
	}

	s.log.InfoContext(ctx, "Execution completed",
		logger.IntField("input_tokens", resp.InputTokens),
		logger.IntField("output_tokens", resp.OutputTokens),
		logger.IntField("duration_ms", int(execution.DurationMs.Int32)),
	)
}

// currentTaskStatus is the status a task kept after refusing the complete transition.
// Empty means the task is gone and the durable event is skipped.
func (s *executionService) currentTaskStatus(ctx context.Context, job executionJob) string {
	task, err := s.taskService.GetTaskEntity(ctx, job.userID, job.taskID)
	if err != nil {
		s.log.WarnContext(ctx, "Task not readable after completion, skipping durable event", logger.ErrorField(err))
		return ""
	}
	return string(task.Status)
}

func (s *executionService) fail(ctx context.Context, job executionJob, execution *model.Execution, message string) {
	execution.Status = model.ExecutionStatusFailed
	execution.ErrorMessage = sql.NullString{String: message, Valid: true}

	applied, err := s.executionRepo.Finish(ctx, execution)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to persist failed execution", logger.ErrorField(err))
		return
	}
	if !applied {
		s.log.WarnContext(ctx, "Execution was already finished, dropping failure")
		return
	}

	s.emitFailed(ctx, job, message, execution.CompletedAt.Time)
	s.log.ErrorContext(ctx, "Execution failed", logger.StringField("error_message", message))
}

func (s *executionService) emitFailed(ctx context.Context, job executionJob, message string, at time.Time) {
	s.bus.Emit(event.New(event.ExecutionFailed, job.userID, job.boardID, event.ExecutionPayload{
		TaskID:       job.taskID,
		ExecutionID:  job.executionID,
		ErrorMessage: &message,
	}))

	s.publisher.PublishTaskFailed(ctx, event.TaskEvent{
		TaskID:       job.taskID,
		BoardID:      job.boardID,
		UserID:       job.userID,
		Title:        job.taskTitle,
		Status:       event.StatusFailed,
		AgentName:    utils.ToPointer(job.agentName),
		ExecutionID:  utils.ToPointer(job.executionID),
		ErrorMessage: &message,
		Timestamp:    utils.EpochMillis(at),
	})
}

func (s *executionService) SweepStuck(ctx context.Context) (int, error) {
	stuckAfter := s.cfg.Execution.StuckAfter
	if stuckAfter <= 0 {
		return 0, nil
	}

	now := utils.TimeNow()
	executions, err := s.executionRepo.FindStuck(ctx, now.Add(-stuckAfter))
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to find stuck executions", logger.ErrorField(err))
		return 0, fmt.Errorf("failed to find stuck executions: %w", err)
	}

	swept := 0
	for i := range executions {
		if !utils.ShouldContinue(ctx, s.log) {
			break
		}
		e := &executions[i]
		e.Status = model.ExecutionStatusFailed
		e.ErrorMessage = sql.NullString{String: abandonedExecutionMessage, Valid: true}
		e.CompletedAt = sql.NullTime{Time: now, Valid: true}
		if e.StartedAt.Valid {
			e.DurationMs = sql.NullInt32{Int32: int32(utils.ElapsedMillis(e.StartedAt.Time, now)), Valid: true}
		}

		applied, err := s.executionRepo.Finish(ctx, e)
		if err != nil {
			s.log.ErrorContext(ctx, "Failed to fail stuck execution", logger.ErrorField(err), logger.ExecutionIDField(e.ID))
			continue
		}
		if !applied {
			continue
		}
		swept++

		job := executionJob{executionID: e.ID, taskID: e.TaskID}
		if e.Task != nil {
			job.boardID = e.Task.BoardID
			job.taskTitle = e.Task.Title
			if e.Task.Board != nil {
				job.userID = e.Task.Board.UserID
			}
		}
		if e.Agent != nil {
			job.agentName = e.Agent.Name
		}
		s.emitFailed(ctx, job, abandonedExecutionMessage, now)
	}

	if swept > 0 {
		s.log.WarnContext(ctx, "Swept stuck executions", logger.IntField("count", swept), logger.AlertField())
	}
	return swept, nil
}
