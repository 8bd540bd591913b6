// Package lifecycle holds the pure parts of the task lifecycle: the
// authorization policy, the stage tracker, the status state machine and the
// note log. Nothing here performs I/O; callers load a task, apply one
// transition and persist the result.
package lifecycle

import "github.com/TWRT/task-manager/internal/models"

type Action int

const (
	ActionView Action = iota
	ActionCreate
	ActionUpdateFields
	ActionUpdateStatus
	ActionAddNote
	ActionToggleStage
	ActionApproveStage
	ActionDelete
	ActionListUsers
)

func (a Action) String() string {
	switch a {
	case ActionView:
		return "view"
	case ActionCreate:
		return "create tasks"
	case ActionUpdateFields:
		return "update"
	case ActionUpdateStatus:
		return "update status of"
	case ActionAddNote:
		return "add notes to"
	case ActionToggleStage:
		return "update a stage of"
	case ActionApproveStage:
		return "approve a stage of"
	case ActionDelete:
		return "delete"
	case ActionListUsers:
		return "list users"
	default:
		return "access"
	}
}

// Authorize decides whether actor may perform action on task. task is nil for
// actions that do not target an existing task. It returns nil or an error of
// kind KindForbidden.
func Authorize(actor models.Identity, task *models.Task, action Action) error {
	switch actor.Role {
	case models.RoleAdmin:
		return nil
	case models.RoleMember:
		switch action {
		case ActionView, ActionUpdateStatus, ActionAddNote, ActionToggleStage:
			if task != nil && task.IsAssignedTo(actor.ID) {
				return nil
			}
		}
	}
	if task == nil {
		return Errorf(KindForbidden, "not authorized to %s", action)
	}
	return Errorf(KindForbidden, "not authorized to %s this task", action)
}
