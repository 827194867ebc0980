package services

import (
	"context"

	"github.com/tasktrack/apiserver/internal/policy"
	"github.com/tasktrack/apiserver/types"
)

// DashboardService computes the role-scoped dashboard aggregates. Pure
// read; the scoping is identical to the task list views.
type DashboardService struct {
	users UserRepository
	tasks TaskRepository
}

func NewDashboardService(users UserRepository, tasks TaskRepository) *DashboardService {
	return &DashboardService{users: users, tasks: tasks}
}

// Summary returns the counts and task list visible to the actor.
// Superadmins additionally see account totals, admins the size of their
// supervised group.
func (s *DashboardService) Summary(ctx context.Context, actor types.User) (types.DashboardSummary, error) {
	var summary types.DashboardSummary

	scope := policy.TaskScope(actor)
	completedScope := policy.CompletedTaskScope(actor)

	totalTasks, err := s.tasks.Count(ctx, scope)
	if err != nil {
		return types.DashboardSummary{}, err
	}
	completedTasks, err := s.tasks.Count(ctx, completedScope)
	if err != nil {
		return types.DashboardSummary{}, err
	}
	tasks, err := s.tasks.List(ctx, scope)
	if err != nil {
		return types.DashboardSummary{}, err
	}

	summary.TotalTasks = totalTasks
	summary.CompletedTasks = completedTasks
	summary.Tasks = tasks

	switch actor.Role {
	case types.RoleSuperadmin:
		totalAdmins, err := s.users.CountByRole(ctx, types.RoleAdmin)
		if err != nil {
			return types.DashboardSummary{}, err
		}
		totalUsers, err := s.users.CountByRole(ctx, types.RoleUser)
		if err != nil {
			return types.DashboardSummary{}, err
		}
		summary.TotalAdmins = &totalAdmins
		summary.TotalUsers = &totalUsers
	case types.RoleAdmin:
		totalUsers, err := s.users.CountByAdmin(ctx, actor.ID)
		if err != nil {
			return types.DashboardSummary{}, err
		}
		summary.TotalUsers = &totalUsers
	}

	return summary, nil
}
