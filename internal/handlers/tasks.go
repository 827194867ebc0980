package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tasktrack/apiserver/internal/policy"
	"github.com/tasktrack/apiserver/internal/services"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
)

const (
	dueDateLayout      = "2006-01-02"
	maxMultipartMemory = 8 << 20
	maxAttachmentBytes = 32 << 20
	formFieldFile      = "file"
)

// TaskHandler provides the task endpoints. Visibility always comes from
// the policy scope for the requesting actor.
type TaskHandler struct {
	taskService *services.TaskService
	userService *services.UserService
}

// NewTaskHandler constructs a handler with the provided services.
func NewTaskHandler(taskService *services.TaskService, userService *services.UserService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userService: userService,
	}
}

// TaskRouter registers the task routes on the given router.
func TaskRouter(r chi.Router, taskService *services.TaskService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.ListTasks)
	r.Get("/create/", handler.NewTaskForm)
	r.Post("/create/", handler.CreateTask)
	r.Get("/reports/", handler.TaskReport)
	r.Get("/update/{taskID}", handler.GetTaskForUpdate)
	r.Post("/update/{taskID}", handler.UpdateTask)
	r.Get("/{taskID}/delete/", handler.DeleteTask)
	r.Post("/{taskID}/attachment", handler.UploadAttachment)
	r.Get("/{taskID}/attachment", handler.DownloadAttachment)
}

// UserTaskRouter registers the user-facing task list on the given
// router.
func UserTaskRouter(r chi.Router, taskService *services.TaskService, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewTaskHandler(taskService, userService)

	r.Use(authMiddleware)
	r.Get("/", handler.UserTasks)
}

// ListTasks returns the tasks inside the actor's visibility scope.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(r.Context(), policy.TaskScope(actor))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// NewTaskForm returns the data needed to populate the task creation
// form: the users the actor may assign tasks to.
func (h *TaskHandler) NewTaskForm(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !policy.CanCreateTask(actor) {
		writeError(w, http.StatusForbidden, accessDeniedMessage)
		return
	}

	var assignable []types.User
	if actor.Role == types.RoleSuperadmin {
		assignable, err = h.userService.ListByRole(r.Context(), types.RoleUser)
	} else {
		assignable, err = h.userService.ListByAdmin(r.Context(), actor.ID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, TaskFormResponse{Users: assignable})
}

// CreateTask creates a task for a single assignee. The creation
// timestamp is system-assigned; the request cannot supply it.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if !policy.CanCreateTask(actor) {
		writeError(w, http.StatusForbidden, accessDeniedMessage)
		return
	}

	var req TaskCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	dueDate, err := time.Parse(dueDateLayout, req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid due date, expected YYYY-MM-DD")
		return
	}

	assignee, err := h.userService.GetByID(r.Context(), req.AssignedTo)
	if err != nil || !policy.CanAssignTaskTo(actor, assignee) {
		writeError(w, http.StatusBadRequest, "assignee must be a user you supervise")
		return
	}

	created, err := h.taskService.Create(r.Context(), types.Task{
		Title:       req.Title,
		Description: req.Description,
		AssignedTo:  assignee.ID,
		CreatedBy:   actor.ID,
		DueDate:     dueDate,
		Status:      types.StatusPending,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

// TaskReport returns the completed tasks inside the actor's scope.
func (h *TaskHandler) TaskReport(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	tasks, err := h.taskService.List(r.Context(), policy.CompletedTaskScope(actor))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// UserTasks returns the actor's own tasks. Only plain users have this
// view.
func (h *TaskHandler) UserTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if actor.Role != types.RoleUser {
		writeError(w, http.StatusForbidden, accessDeniedMessage)
		return
	}

	actorID := actor.ID
	tasks, err := h.taskService.List(r.Context(), store.TaskFilter{AssigneeID: &actorID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Tasks: tasks})
}

// GetTaskForUpdate fetches a task scoped to its assignee. Anyone else
// gets a not-found; task existence never leaks.
func (h *TaskHandler) GetTaskForUpdate(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetForAssignee(r.Context(), id, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	writeJSON(w, http.StatusOK, task)
}

// UpdateTask records completion details for the actor's own task and
// marks it completed. This is the only path that mutates status.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	var req TaskUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.taskService.Complete(r.Context(), id, actor.ID, req.WorkedHours, req.CompletionReport)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "not found")
		case errors.Is(err, services.ErrMissingCompletionDetail),
			errors.Is(err, services.ErrInvalidWorkedHours):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update task")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DeleteTask removes a task. Only the creator or a superadmin may; any
// other actor gets a not-found.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), id)
	if err != nil || !policy.CanDeleteTask(actor, task) {
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to fetch task")
			return
		}
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	if err := h.taskService.Delete(r.Context(), task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "task deleted"})
}

// UploadAttachment stores a completion-report attachment for the
// actor's own task.
func (h *TaskHandler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetForAssignee(r.Context(), id, actor.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile(formFieldFile)
	if err != nil {
		writeError(w, http.StatusBadRequest, "attachment file is required")
		return
	}
	data, err := readFileLimited(file, maxAttachmentBytes)
	_ = file.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	contentType := header.Header.Get("Content-Type")
	updated, err := h.taskService.SaveAttachment(r.Context(), task, header.Filename, bytes.NewReader(data), int64(len(data)), contentType)
	if err != nil {
		if errors.Is(err, services.ErrAttachmentsDisabled) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to store attachment")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

// DownloadAttachment streams a task's attachment to any actor whose
// scope includes the task.
func (h *TaskHandler) DownloadAttachment(w http.ResponseWriter, r *http.Request) {
	actor, id, ok := h.actorAndID(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch task")
		return
	}

	assignee, err := h.userService.GetByID(r.Context(), task.AssignedTo)
	if err != nil || !policy.CanViewTask(actor, task, assignee) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	reader, err := h.taskService.OpenAttachment(r.Context(), task)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) || errors.Is(err, services.ErrAttachmentsDisabled) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to open attachment")
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}

// actorAndID resolves the actor and the taskID path parameter, writing
// the error response on failure.
func (h *TaskHandler) actorAndID(w http.ResponseWriter, r *http.Request) (types.User, int, bool) {
	actor, err := actorFromRequest(r, h.userService)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return types.User{}, 0, false
	}

	id, err := parseIDParam(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return types.User{}, 0, false
	}
	return actor, id, true
}

// TaskCreateRequest is the payload for creating a task.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	AssignedTo  int    `json:"assigned_to"`
	DueDate     string `json:"due_date"`
}

// TaskUpdateRequest is the payload for completing a task.
type TaskUpdateRequest struct {
	WorkedHours      *float64 `json:"worked_hours"`
	CompletionReport *string  `json:"completion_report"`
}

// TaskListResponse is the task list payload.
type TaskListResponse struct {
	Tasks []types.Task `json:"tasks"`
}

// TaskFormResponse carries creation-form population data.
type TaskFormResponse struct {
	Users []types.User `json:"users"`
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, errors.New("uploaded file too large")
	}
	return data, nil
}
