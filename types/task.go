package types

import "time"

// TaskStatus is the lifecycle state of a task. Transitions only move
// forward: pending, then in_progress, then completed.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Task represents a unit of work delegated by an admin to a user.
type Task struct {
	// ID is the unique identifier of the task.
	ID int `json:"id" db:"id"`

	// Title is a short summary of the work.
	Title string `json:"title" db:"title"`

	// Description holds the full task text.
	Description string `json:"description" db:"description"`

	// AssignedTo is the id of the user the task is delegated to. Only
	// that user may update the task's completion fields.
	AssignedTo int `json:"assigned_to" db:"assigned_to"`

	// AssigneeUsername is the assignee's login name, joined in on reads
	// for display. Never written.
	AssigneeUsername string `json:"assignee_username,omitempty" db:"-"`

	// CreatedBy is the id of the admin or superadmin who created the task.
	CreatedBy int `json:"created_by" db:"created_by"`

	// DueDate is the date the task is expected to be finished by.
	DueDate time.Time `json:"due_date" db:"due_date"`

	// Status is the task's lifecycle state.
	Status TaskStatus `json:"status" db:"status"`

	// CompletionReport is the assignee's free-text report, expected to be
	// populated once the task is completed.
	CompletionReport *string `json:"completion_report,omitempty" db:"completion_report"`

	// WorkedHours is the time spent on the task, non-negative with two
	// fractional digits, expected once the task is completed.
	WorkedHours *float64 `json:"worked_hours,omitempty" db:"worked_hours"`

	// AttachmentKey is the object-storage key of the completion-report
	// attachment, if one was uploaded.
	AttachmentKey *string `json:"attachment_key,omitempty" db:"attachment_key"`

	// CreatedAt is assigned by the system at creation and never changes.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent mutation.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DashboardSummary is the role-scoped aggregate shown on the dashboard.
// Count fields that do not apply to the actor's role are omitted.
type DashboardSummary struct {
	TotalAdmins    *int   `json:"total_admins,omitempty"`
	TotalUsers     *int   `json:"total_users,omitempty"`
	TotalTasks     int    `json:"total_tasks"`
	CompletedTasks int    `json:"completed_tasks"`
	Tasks          []Task `json:"tasks"`
}
