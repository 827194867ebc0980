package policy

import (
	"testing"

	"github.com/tasktrack/apiserver/types"
)

func intPtr(v int) *int { return &v }

func TestTaskScope(t *testing.T) {
	tests := []struct {
		name           string
		actor          types.User
		wantAssignee   *int
		wantSupervisor *int
	}{
		{
			name:  "superadmin sees everything",
			actor: types.User{ID: 1, Role: types.RoleSuperadmin},
		},
		{
			name:           "admin scoped to supervised users",
			actor:          types.User{ID: 2, Role: types.RoleAdmin},
			wantSupervisor: intPtr(2),
		},
		{
			name:         "user scoped to own tasks",
			actor:        types.User{ID: 3, Role: types.RoleUser},
			wantAssignee: intPtr(3),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scope := TaskScope(tt.actor)
			if (scope.AssigneeID == nil) != (tt.wantAssignee == nil) {
				t.Fatalf("AssigneeID = %v, want %v", scope.AssigneeID, tt.wantAssignee)
			}
			if scope.AssigneeID != nil && *scope.AssigneeID != *tt.wantAssignee {
				t.Fatalf("AssigneeID = %d, want %d", *scope.AssigneeID, *tt.wantAssignee)
			}
			if (scope.SupervisorID == nil) != (tt.wantSupervisor == nil) {
				t.Fatalf("SupervisorID = %v, want %v", scope.SupervisorID, tt.wantSupervisor)
			}
			if scope.SupervisorID != nil && *scope.SupervisorID != *tt.wantSupervisor {
				t.Fatalf("SupervisorID = %d, want %d", *scope.SupervisorID, *tt.wantSupervisor)
			}
			if scope.Status != nil {
				t.Fatalf("TaskScope should not constrain status, got %v", *scope.Status)
			}
		})
	}
}

func TestCompletedTaskScope(t *testing.T) {
	scope := CompletedTaskScope(types.User{ID: 2, Role: types.RoleAdmin})
	if scope.Status == nil || *scope.Status != types.StatusCompleted {
		t.Fatalf("expected completed status constraint, got %v", scope.Status)
	}
	if scope.SupervisorID == nil || *scope.SupervisorID != 2 {
		t.Fatalf("expected supervisor constraint to carry over, got %v", scope.SupervisorID)
	}
}

func TestCanManageAccounts(t *testing.T) {
	if !CanManageAccounts(types.User{Role: types.RoleSuperadmin}) {
		t.Fatal("superadmin should manage accounts")
	}
	if CanManageAccounts(types.User{Role: types.RoleAdmin}) {
		t.Fatal("admin should not manage accounts")
	}
	if CanManageAccounts(types.User{Role: types.RoleUser}) {
		t.Fatal("user should not manage accounts")
	}
}

func TestCanCreateTask(t *testing.T) {
	if !CanCreateTask(types.User{Role: types.RoleAdmin}) {
		t.Fatal("admin should create tasks")
	}
	if !CanCreateTask(types.User{Role: types.RoleSuperadmin}) {
		t.Fatal("superadmin should create tasks")
	}
	if CanCreateTask(types.User{Role: types.RoleUser}) {
		t.Fatal("user should not create tasks")
	}
}

func TestCanAssignTaskTo(t *testing.T) {
	admin := types.User{ID: 10, Role: types.RoleAdmin}
	superadmin := types.User{ID: 1, Role: types.RoleSuperadmin}
	supervised := types.User{ID: 20, Role: types.RoleUser, AssignedAdminID: intPtr(10)}
	unsupervised := types.User{ID: 21, Role: types.RoleUser}
	otherAdmins := types.User{ID: 22, Role: types.RoleUser, AssignedAdminID: intPtr(11)}

	tests := []struct {
		name     string
		actor    types.User
		assignee types.User
		want     bool
	}{
		{"admin to supervised user", admin, supervised, true},
		{"admin to unsupervised user", admin, unsupervised, false},
		{"admin to another admin's user", admin, otherAdmins, false},
		{"admin to an admin account", admin, types.User{ID: 11, Role: types.RoleAdmin}, false},
		{"superadmin to any user", superadmin, otherAdmins, true},
		{"superadmin to an admin account", superadmin, types.User{ID: 11, Role: types.RoleAdmin}, false},
		{"user to anyone", types.User{ID: 20, Role: types.RoleUser}, supervised, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAssignTaskTo(tt.actor, tt.assignee); got != tt.want {
				t.Fatalf("CanAssignTaskTo = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanDeleteTask(t *testing.T) {
	task := types.Task{ID: 5, CreatedBy: 10}

	if !CanDeleteTask(types.User{ID: 1, Role: types.RoleSuperadmin}, task) {
		t.Fatal("superadmin should delete any task")
	}
	if !CanDeleteTask(types.User{ID: 10, Role: types.RoleAdmin}, task) {
		t.Fatal("creator should delete own task")
	}
	if CanDeleteTask(types.User{ID: 11, Role: types.RoleAdmin}, task) {
		t.Fatal("other admins should not delete the task")
	}
	if CanDeleteTask(types.User{ID: 20, Role: types.RoleUser}, task) {
		t.Fatal("assignee should not delete the task")
	}
}

func TestCanViewTask(t *testing.T) {
	assignee := types.User{ID: 20, Role: types.RoleUser, AssignedAdminID: intPtr(10)}
	task := types.Task{ID: 5, AssignedTo: 20, CreatedBy: 10}

	tests := []struct {
		name  string
		actor types.User
		want  bool
	}{
		{"superadmin", types.User{ID: 1, Role: types.RoleSuperadmin}, true},
		{"supervising admin", types.User{ID: 10, Role: types.RoleAdmin}, true},
		{"other admin", types.User{ID: 11, Role: types.RoleAdmin}, false},
		{"assignee", types.User{ID: 20, Role: types.RoleUser}, true},
		{"other user", types.User{ID: 21, Role: types.RoleUser}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanViewTask(tt.actor, task, assignee); got != tt.want {
				t.Fatalf("CanViewTask = %v, want %v", got, tt.want)
			}
		})
	}
}
