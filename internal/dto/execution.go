package dto

import (
	"time"

	"prism/internal/model"
)

type ExecutionResponse struct {
	ID              uint                  `json:"id"`
	TaskID          uint                  `json:"taskId"`
	AgentID         uint                  `json:"agentId"`
	Agent           *AgentSummary         `json:"agent,omitempty"`
	ExecutionNumber int                   `json:"executionNumber"`
	Status          model.ExecutionStatus `json:"status"`
	InputPrompt     string                `json:"inputPrompt"`
	OutputResult    *string               `json:"outputResult"`
	InputTokens     *int                  `json:"inputTokens"`
	OutputTokens    *int                  `json:"outputTokens"`
	DurationMs      *int                  `json:"durationMs"`
	ErrorMessage    *string               `json:"errorMessage"`
	StartedAt       *time.Time            `json:"startedAt"`
	CompletedAt     *time.Time            `json:"completedAt"`
	CreatedAt       time.Time             `json:"createdAt"`
}

func NewExecutionResponse(e *model.Execution) ExecutionResponse {
	return ExecutionResponse{
		ID:              e.ID,
		TaskID:          e.TaskID,
		AgentID:         e.AgentID,
		Agent:           newAgentSummary(e.Agent),
		ExecutionNumber: e.ExecutionNumber,
		Status:          e.Status,
		InputPrompt:     e.InputPrompt,
		OutputResult:    nullString(e.OutputResult),
		InputTokens:     nullInt32(e.InputTokens),
		OutputTokens:    nullInt32(e.OutputTokens),
		DurationMs:      nullInt32(e.DurationMs),
		ErrorMessage:    nullString(e.ErrorMessage),
		StartedAt:       nullTime(e.StartedAt),
		CompletedAt:     nullTime(e.CompletedAt),
		CreatedAt:       e.CreatedAt,
	}
}

func NewExecutionResponses(executions []model.Execution) []ExecutionResponse {
	out := make([]ExecutionResponse, 0, len(executions))
	for i := range executions {
		out = append(out, NewExecutionResponse(&executions[i]))
	}
	return out
}
