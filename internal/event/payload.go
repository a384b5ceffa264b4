package event

type TaskPayload struct {
	Task interface{} `json:"task"`
}

type TaskDeletedPayload struct {
	TaskID uint `json:"taskId"`
}

type TaskMovedPayload struct {
	TaskID     uint   `json:"taskId"`
	FromStatus string `json:"fromStatus"`
	ToStatus   string `json:"toStatus"`
	Position   int    `json:"position"`
}

// ExecutionPayload backs the execution.* events. OutputResult is set on completion,
// ErrorMessage on failure.
type ExecutionPayload struct {
	TaskID       uint    `json:"taskId"`
	ExecutionID  uint    `json:"executionId"`
	OutputResult *string `json:"outputResult,omitempty"`
	ErrorMessage *string `json:"errorMessage,omitempty"`
}
