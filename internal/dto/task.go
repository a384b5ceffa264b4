package dto

import (
	"time"

	"prism/internal/model"
)

type CreateTaskRequest struct {
	Title             string             `json:"title" validate:"required,max=255"`
	Description       *string            `json:"description"`
	Priority          model.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AgentID           *uint              `json:"agentId"`
	DueDate           *time.Time         `json:"dueDate"`
	ReferencedTaskIDs []uint             `json:"referencedTaskIds" validate:"omitempty,max=20,dive,gt=0"`
}

// UpdateTaskRequest is a partial update. AgentID null unassigns the agent.
type UpdateTaskRequest struct {
	Title             *string             `json:"title" validate:"omitempty,min=1,max=255"`
	Description       *string             `json:"description"`
	Priority          *model.TaskPriority `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	AgentID           OptionalUint        `json:"agentId"`
	DueDate           *time.Time          `json:"dueDate"`
	ReferencedTaskIDs *[]uint             `json:"referencedTaskIds" validate:"omitempty,max=20,dive,gt=0"`
}

type ChangePositionRequest struct {
	Position *int `json:"position" validate:"required,min=0"`
}

type RejectTaskRequest struct {
	Feedback string `json:"feedback" validate:"max=5000"`
}

type TaskResponse struct {
	ID                uint               `json:"id"`
	BoardID           uint               `json:"boardId"`
	AgentID           *uint              `json:"agentId"`
	Agent             *AgentSummary      `json:"agent,omitempty"`
	Title             string             `json:"title"`
	Description       *string            `json:"description"`
	Status            model.TaskStatus   `json:"status"`
	Priority          model.TaskPriority `json:"priority"`
	Position          int                `json:"position"`
	DueDate           *time.Time         `json:"dueDate"`
	ReferencedTaskIDs []uint             `json:"referencedTaskIds"`
	AvailableActions  []string           `json:"availableActions"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

func NewTaskResponse(t *model.Task, availableActions []string) TaskResponse {
	refs := []uint(t.ReferencedTaskIDs)
	if refs == nil {
		refs = []uint{}
	}
	if availableActions == nil {
		availableActions = []string{}
	}
	return TaskResponse{
		ID:                t.ID,
		BoardID:           t.BoardID,
		AgentID:           t.AgentID,
		Agent:             newAgentSummary(t.Agent),
		Title:             t.Title,
		Description:       nullString(t.Description),
		Status:            t.Status,
		Priority:          t.Priority,
		Position:          t.Position,
		DueDate:           nullTime(t.DueDate),
		ReferencedTaskIDs: refs,
		AvailableActions:  availableActions,
		CreatedAt:         t.CreatedAt,
		UpdatedAt:         t.UpdatedAt,
	}
}

type ReferencedTaskContext struct {
	TaskID        uint               `json:"taskId"`
	TaskTitle     string             `json:"taskTitle"`
	LastExecution *ExecutionResponse `json:"lastExecution"`
}

type TaskContextResponse struct {
	PreviousExecutions []ExecutionResponse    `json:"previousExecutions"`
	ReferencedTasks    []ReferencedTaskContext `json:"referencedTasks"`
}
