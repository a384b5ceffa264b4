package dto

import (
	"time"

	"prism/pkg/utils"
)

type ErrorBody struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// BaseResponse is the envelope of every API response.
type BaseResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Error   *ErrorBody  `json:"error"`
}

func NewSuccessResponse(data interface{}) *BaseResponse {
	return &BaseResponse{
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(code, message string, details map[string]interface{}) *BaseResponse {
	return &BaseResponse{
		Success: false,
		Error: &ErrorBody{
			Code:      code,
			Message:   message,
			Details:   details,
			Timestamp: utils.TimeNow(),
		},
	}
}
