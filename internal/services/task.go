package services

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/tasktrack/apiserver/internal/blob"
	"github.com/tasktrack/apiserver/internal/notify"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
)

// ErrMissingCompletionDetail is returned when a task is completed with
// neither worked hours nor a completion report.
var ErrMissingCompletionDetail = errors.New("worked hours or completion report is required")

// ErrInvalidWorkedHours is returned when worked hours are negative.
var ErrInvalidWorkedHours = errors.New("worked hours must be non-negative")

// ErrAttachmentsDisabled is returned when no object-storage backend is
// configured.
var ErrAttachmentsDisabled = errors.New("attachments are not enabled")

// TaskRepository defines persistence operations for tasks.
type TaskRepository interface {
	List(ctx context.Context, filter store.TaskFilter) ([]types.Task, error)
	Count(ctx context.Context, filter store.TaskFilter) (int, error)
	Get(ctx context.Context, id int) (types.Task, error)
	GetForAssignee(ctx context.Context, id, userID int) (types.Task, error)
	Create(ctx context.Context, task types.Task) (types.Task, error)
	Update(ctx context.Context, task types.Task) (types.Task, error)
	Delete(ctx context.Context, id int) error
}

// TaskService encapsulates task use-cases. Event publishing and
// attachment storage are optional; a nil publisher or store disables
// that feature without affecting the CRUD core.
type TaskService struct {
	tasks       TaskRepository
	users       UserRepository
	events      notify.Publisher
	attachments blob.Store
}

func NewTaskService(tasks TaskRepository, users UserRepository, events notify.Publisher, attachments blob.Store) *TaskService {
	return &TaskService{
		tasks:       tasks,
		users:       users,
		events:      events,
		attachments: attachments,
	}
}

func (s *TaskService) List(ctx context.Context, filter store.TaskFilter) ([]types.Task, error) {
	return s.tasks.List(ctx, filter)
}

func (s *TaskService) Get(ctx context.Context, id int) (types.Task, error) {
	return s.tasks.Get(ctx, id)
}

// GetForAssignee fetches a task scoped to its assignee; any other caller
// gets store.ErrNotFound.
func (s *TaskService) GetForAssignee(ctx context.Context, id, userID int) (types.Task, error) {
	return s.tasks.GetForAssignee(ctx, id, userID)
}

// Create persists a new task. The creation timestamp is assigned by the
// store at the creation instant, never taken from the caller.
func (s *TaskService) Create(ctx context.Context, task types.Task) (types.Task, error) {
	created, err := s.tasks.Create(ctx, task)
	if err != nil {
		return types.Task{}, err
	}
	s.publish(ctx, notify.EventTaskCreated, created)
	return created, nil
}

// Complete records the assignee's completion of a task: worked hours and
// report are stored and the status is set to completed. At least one of
// worked hours or a report (submitted or already present) is required.
func (s *TaskService) Complete(ctx context.Context, taskID, actorID int, workedHours *float64, report *string) (types.Task, error) {
	task, err := s.tasks.GetForAssignee(ctx, taskID, actorID)
	if err != nil {
		return types.Task{}, err
	}

	if workedHours != nil && *workedHours < 0 {
		return types.Task{}, ErrInvalidWorkedHours
	}

	hasReport := report != nil && strings.TrimSpace(*report) != ""
	hadReport := task.CompletionReport != nil && strings.TrimSpace(*task.CompletionReport) != ""
	if workedHours == nil && !hasReport && !hadReport {
		return types.Task{}, ErrMissingCompletionDetail
	}

	if workedHours != nil {
		rounded := math.Round(*workedHours*100) / 100
		task.WorkedHours = &rounded
	}
	if hasReport {
		task.CompletionReport = report
	}
	task.Status = types.StatusCompleted

	updated, err := s.tasks.Update(ctx, task)
	if err != nil {
		return types.Task{}, err
	}
	s.publish(ctx, notify.EventTaskCompleted, updated)
	return updated, nil
}

// Delete removes a task and its attachment, if any. Authorization is the
// caller's concern.
func (s *TaskService) Delete(ctx context.Context, task types.Task) error {
	if task.AttachmentKey != nil && s.attachments != nil {
		if err := s.attachments.Remove(ctx, *task.AttachmentKey); err != nil {
			log.Printf("remove attachment for task %d: %v", task.ID, err)
		}
	}
	return s.tasks.Delete(ctx, task.ID)
}

// SaveAttachment uploads a completion-report attachment for the task and
// records its key.
func (s *TaskService) SaveAttachment(ctx context.Context, task types.Task, filename string, r io.Reader, size int64, contentType string) (types.Task, error) {
	if s.attachments == nil {
		return types.Task{}, ErrAttachmentsDisabled
	}

	key := blob.AttachmentKey(task.ID, filename)
	if err := s.attachments.Put(ctx, key, r, size, contentType); err != nil {
		return types.Task{}, err
	}

	if task.AttachmentKey != nil && *task.AttachmentKey != key {
		if err := s.attachments.Remove(ctx, *task.AttachmentKey); err != nil {
			log.Printf("remove replaced attachment for task %d: %v", task.ID, err)
		}
	}

	task.AttachmentKey = &key
	return s.tasks.Update(ctx, task)
}

// OpenAttachment streams the task's attachment from object storage.
func (s *TaskService) OpenAttachment(ctx context.Context, task types.Task) (io.ReadCloser, error) {
	if s.attachments == nil {
		return nil, ErrAttachmentsDisabled
	}
	if task.AttachmentKey == nil {
		return nil, store.ErrNotFound
	}
	return s.attachments.Open(ctx, *task.AttachmentKey)
}

// publish sends a task event. Publishing is best-effort: a broker
// failure must never fail the request that triggered it.
func (s *TaskService) publish(ctx context.Context, eventType string, task types.Task) {
	if s.events == nil {
		return
	}

	event := notify.TaskEvent{
		Type:       eventType,
		TaskID:     task.ID,
		Title:      task.Title,
		AssigneeID: task.AssignedTo,
		At:         time.Now(),
	}
	if assignee, err := s.users.GetByID(ctx, task.AssignedTo); err == nil && assignee.AssignedAdminID != nil {
		event.SupervisorID = *assignee.AssignedAdminID
	}

	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("publish %s for task %d: %v", eventType, task.ID, err)
	}
}
