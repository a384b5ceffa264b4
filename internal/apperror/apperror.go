package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindNotFound                 Kind = "NOT_FOUND"
	KindInvalidStateTransition   Kind = "INVALID_STATE_TRANSITION"
	KindAgentNotAssigned         Kind = "AGENT_NOT_ASSIGNED"
	KindProviderConnectionFailed Kind = "PROVIDER_CONNECTION_FAILED"
	KindAiExecutionFailed        Kind = "AI_EXECUTION_FAILED"
	KindEncryptionFailed         Kind = "ENCRYPTION_FAILED"
	KindDuplicateResource        Kind = "DUPLICATE_RESOURCE"
	KindValidation               Kind = "VALIDATION"
)

// Stable client-facing codes.
const (
	CodeNotFound                 = "P001"
	CodeInvalidStateTransition   = "P002"
	CodeAgentNotAssigned         = "P003"
	CodeProviderConnectionFailed = "P004"
	CodeAiExecutionFailed        = "P005"
	CodeEncryptionFailed         = "P006"
	CodeDuplicateResource        = "P007"
	CodeValidation               = "P008"
	CodeInternal                 = "P999"
)

// AppError is the error type returned synchronously by services.
type AppError struct {
	Kind    Kind
	Code    string
	Message string
	Status  int
	Details map[string]interface{}
	cause   error
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// Is matches any *AppError of the same Kind, so sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound                 = &AppError{Kind: KindNotFound}
	ErrInvalidStateTransition   = &AppError{Kind: KindInvalidStateTransition}
	ErrAgentNotAssigned         = &AppError{Kind: KindAgentNotAssigned}
	ErrProviderConnectionFailed = &AppError{Kind: KindProviderConnectionFailed}
	ErrAiExecutionFailed        = &AppError{Kind: KindAiExecutionFailed}
	ErrEncryptionFailed         = &AppError{Kind: KindEncryptionFailed}
	ErrDuplicateResource        = &AppError{Kind: KindDuplicateResource}
	ErrValidation               = &AppError{Kind: KindValidation}
)

func NotFound(resource string, id interface{}) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s with id %v not found", resource, id),
		Status:  http.StatusNotFound,
		Details: map[string]interface{}{"resource": resource, "id": id},
	}
}

func InvalidStateTransition(action, current string, allowed []string) *AppError {
	msg := fmt.Sprintf("cannot %s task in status %s", action, current)
	if len(allowed) > 0 {
		msg += fmt.Sprintf("; allowed actions: %s", strings.Join(allowed, ", "))
	} else {
		msg += "; no actions are allowed"
	}
	return &AppError{
		Kind:    KindInvalidStateTransition,
		Code:    CodeInvalidStateTransition,
		Message: msg,
		Status:  http.StatusBadRequest,
		Details: map[string]interface{}{
			"action":         action,
			"currentStatus":  current,
			"allowedActions": allowed,
		},
	}
}

func AgentNotAssigned() *AppError {
	return &AppError{
		Kind:    KindAgentNotAssigned,
		Code:    CodeAgentNotAssigned,
		Message: "task has no agent assigned",
		Status:  http.StatusBadRequest,
	}
}

func ProviderConnectionFailed(msg string) *AppError {
	return &AppError{
		Kind:    KindProviderConnectionFailed,
		Code:    CodeProviderConnectionFailed,
		Message: fmt.Sprintf("provider connection failed: %s", msg),
		Status:  http.StatusBadGateway,
	}
}

// AiExecutionFailed keeps the vendor message verbatim; it ends up on the execution row.
func AiExecutionFailed(cause error) *AppError {
	msg := "ai execution failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{
		Kind:    KindAiExecutionFailed,
		Code:    CodeAiExecutionFailed,
		Message: msg,
		Status:  http.StatusBadGateway,
		cause:   cause,
	}
}

func EncryptionFailed(msg string) *AppError {
	return &AppError{
		Kind:    KindEncryptionFailed,
		Code:    CodeEncryptionFailed,
		Message: fmt.Sprintf("encryption failed: %s", msg),
		Status:  http.StatusInternalServerError,
	}
}

func DuplicateResource(resource, field, value string) *AppError {
	return &AppError{
		Kind:    KindDuplicateResource,
		Code:    CodeDuplicateResource,
		Message: fmt.Sprintf("%s with %s '%s' already exists", resource, field, value),
		Status:  http.StatusConflict,
	}
}

func Validation(msg string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    CodeValidation,
		Message: msg,
		Status:  http.StatusBadRequest,
	}
}

// From returns the *AppError in err's chain, if any.
func From(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code != "" {
		return appErr, true
	}
	return nil, false
}
