// Package statemachine holds the task lifecycle table. It is the only place that
// decides whether a status change is legal.
package statemachine

import (
	"prism/internal/apperror"
	"prism/internal/model"
)

type Action string

const (
	ActionExecute  Action = "execute"
	ActionComplete Action = "complete"
	ActionApprove  Action = "approve"
	ActionRetry    Action = "retry"
	ActionCancel   Action = "cancel"
	ActionReopen   Action = "reopen"
)

// actionOrder fixes the order AvailableActions reports.
var actionOrder = []Action{
	ActionExecute,
	ActionComplete,
	ActionApprove,
	ActionRetry,
	ActionCancel,
	ActionReopen,
}

var transitions = map[model.TaskStatus]map[Action]model.TaskStatus{
	model.TaskStatusTodo: {
		ActionExecute: model.TaskStatusInProgress,
		ActionCancel:  model.TaskStatusCancelled,
	},
	model.TaskStatusInProgress: {
		ActionComplete: model.TaskStatusInReview,
		ActionCancel:   model.TaskStatusCancelled,
	},
	model.TaskStatusInReview: {
		ActionApprove: model.TaskStatusDone,
		ActionRetry:   model.TaskStatusInProgress,
		ActionCancel:  model.TaskStatusCancelled,
	},
	model.TaskStatusDone: {
		ActionReopen: model.TaskStatusTodo,
	},
	model.TaskStatusCancelled: {
		ActionReopen: model.TaskStatusTodo,
	},
}

// Actions returns every action in table column order.
func Actions() []Action {
	out := make([]Action, len(actionOrder))
	copy(out, actionOrder)
	return out
}

// Transition returns the status reached by applying action to from.
func Transition(from model.TaskStatus, action Action) (model.TaskStatus, error) {
	if next, ok := transitions[from][action]; ok {
		return next, nil
	}
	return "", apperror.InvalidStateTransition(string(action), string(from), actionNames(AvailableActions(from)))
}

// AvailableActions lists the actions legal in status. Unknown statuses have none.
func AvailableActions(status model.TaskStatus) []Action {
	row := transitions[status]
	actions := make([]Action, 0, len(row))
	for _, a := range actionOrder {
		if _, ok := row[a]; ok {
			actions = append(actions, a)
		}
	}
	return actions
}

// CanTransition reports whether action is legal in status.
func CanTransition(status model.TaskStatus, action Action) bool {
	_, ok := transitions[status][action]
	return ok
}

func actionNames(actions []Action) []string {
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = string(a)
	}
	return names
}

// ActionNames is the string form of AvailableActions, as rendered in responses.
func ActionNames(status model.TaskStatus) []string {
	return actionNames(AvailableActions(status))
}
