// Package policy maps an actor to the records it may see and the actions
// it may take. Every handler consults these functions instead of
// re-deriving role rules; all of them are pure.
package policy

import (
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
)

// TaskScope returns the task visibility filter for the actor:
// superadmins see every task, admins see tasks of the users they
// supervise, users see their own tasks.
func TaskScope(actor types.User) store.TaskFilter {
	switch actor.Role {
	case types.RoleSuperadmin:
		return store.TaskFilter{}
	case types.RoleAdmin:
		adminID := actor.ID
		return store.TaskFilter{SupervisorID: &adminID}
	default:
		userID := actor.ID
		return store.TaskFilter{AssigneeID: &userID}
	}
}

// CompletedTaskScope is TaskScope narrowed to completed tasks; it backs
// the report views.
func CompletedTaskScope(actor types.User) store.TaskFilter {
	scope := TaskScope(actor)
	completed := types.StatusCompleted
	scope.Status = &completed
	return scope
}

// CanManageAccounts reports whether the actor may create or delete
// accounts. Only superadmins manage accounts; admins create tasks but
// not users.
func CanManageAccounts(actor types.User) bool {
	return actor.Role == types.RoleSuperadmin
}

// CanCreateTask reports whether the actor may create tasks. Admins and
// superadmins may; superadmin inclusion is deliberate since it already
// has full task visibility.
func CanCreateTask(actor types.User) bool {
	return actor.Role == types.RoleAdmin || actor.Role == types.RoleSuperadmin
}

// CanAssignTaskTo reports whether the actor may create a task for the
// given assignee. The assignee must be a plain user; admins may only
// target users they supervise, superadmins may target any user.
func CanAssignTaskTo(actor, assignee types.User) bool {
	if assignee.Role != types.RoleUser {
		return false
	}
	switch actor.Role {
	case types.RoleSuperadmin:
		return true
	case types.RoleAdmin:
		return assignee.AssignedAdminID != nil && *assignee.AssignedAdminID == actor.ID
	default:
		return false
	}
}

// CanDeleteTask reports whether the actor may delete the given task:
// its creator or a superadmin.
func CanDeleteTask(actor types.User, task types.Task) bool {
	return actor.Role == types.RoleSuperadmin || task.CreatedBy == actor.ID
}

// CanViewTask reports whether the task falls inside the actor's
// visibility scope.
func CanViewTask(actor types.User, task types.Task, assignee types.User) bool {
	switch actor.Role {
	case types.RoleSuperadmin:
		return true
	case types.RoleAdmin:
		return assignee.AssignedAdminID != nil && *assignee.AssignedAdminID == actor.ID
	default:
		return task.AssignedTo == actor.ID
	}
}
