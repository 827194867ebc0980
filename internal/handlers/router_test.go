package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tasktrack/apiserver/internal/blob"
	"github.com/tasktrack/apiserver/internal/services"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

const (
	testSecret   = "test-secret"
	testPassword = "testpass123!"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// fakeUserRepo is an in-memory services.UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  []types.User
	nextID int
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Username == username {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role types.Role) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]types.User, 0)
	for _, user := range f.users {
		if user.Role == role {
			matched = append(matched, user)
		}
	}
	return matched, nil
}

func (f *fakeUserRepo) ListByAdmin(_ context.Context, adminID int) ([]types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]types.User, 0)
	for _, user := range f.users {
		if user.Role == types.RoleUser && user.AssignedAdminID != nil && *user.AssignedAdminID == adminID {
			matched = append(matched, user)
		}
	}
	return matched, nil
}

func (f *fakeUserRepo) CountByRole(ctx context.Context, role types.Role) (int, error) {
	users, _ := f.ListByRole(ctx, role)
	return len(users), nil
}

func (f *fakeUserRepo) CountByAdmin(_ context.Context, adminID int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, user := range f.users {
		if user.AssignedAdminID != nil && *user.AssignedAdminID == adminID {
			count++
		}
	}
	return count, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	f.users = append(f.users, user)
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == user.ID {
			user.UpdatedAt = time.Now()
			f.users[i] = user
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Delete(_ context.Context, id int, expectedRole types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.users {
		if f.users[i].ID == id && f.users[i].Role == expectedRole {
			f.users = append(f.users[:i], f.users[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeTaskRepo is an in-memory services.TaskRepository sharing the
// user repo for supervisor scoping.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  []types.Task
	users  *fakeUserRepo
	nextID int
}

func (f *fakeTaskRepo) matches(filter store.TaskFilter, task types.Task) bool {
	if filter.AssigneeID != nil && task.AssignedTo != *filter.AssigneeID {
		return false
	}
	if filter.SupervisorID != nil {
		assignee, err := f.users.GetByID(context.Background(), task.AssignedTo)
		if err != nil || assignee.AssignedAdminID == nil || *assignee.AssignedAdminID != *filter.SupervisorID {
			return false
		}
	}
	if filter.Status != nil && task.Status != *filter.Status {
		return false
	}
	return true
}

func (f *fakeTaskRepo) List(_ context.Context, filter store.TaskFilter) ([]types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	matched := make([]types.Task, 0)
	for _, task := range f.tasks {
		if f.matches(filter, task) {
			matched = append(matched, task)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	return matched, nil
}

func (f *fakeTaskRepo) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	tasks, _ := f.List(ctx, filter)
	return len(tasks), nil
}

func (f *fakeTaskRepo) Get(_ context.Context, id int) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (f *fakeTaskRepo) GetForAssignee(_ context.Context, id, userID int) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, task := range f.tasks {
		if task.ID == id && task.AssignedTo == userID {
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (f *fakeTaskRepo) Create(_ context.Context, task types.Task) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	task.ID = f.nextID
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.Status == "" {
		task.Status = types.StatusPending
	}
	f.tasks = append(f.tasks, task)
	return task, nil
}

func (f *fakeTaskRepo) Update(_ context.Context, task types.Task) (types.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == task.ID {
			task.UpdatedAt = time.Now()
			f.tasks[i] = task
			return task, nil
		}
	}
	return types.Task{}, store.ErrNotFound
}

func (f *fakeTaskRepo) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.tasks {
		if f.tasks[i].ID == id {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// memoryBlobStore is an in-memory blob.Store.
type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

var _ blob.Store = (*memoryBlobStore)(nil)

func newMemoryBlobStore() *memoryBlobStore {
	return &memoryBlobStore{objects: make(map[string][]byte)}
}

func (m *memoryBlobStore) EnsureBucket(context.Context) error { return nil }

func (m *memoryBlobStore) Put(_ context.Context, key string, r io.Reader, size int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryBlobStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memoryBlobStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *memoryBlobStore) Bucket() string { return "test-bucket" }

// testEnv wires the routers over in-memory fakes, mirroring the
// server's route table.
type testEnv struct {
	users  *fakeUserRepo
	tasks  *fakeTaskRepo
	blobs  *memoryBlobStore
	router *chi.Mux
}

func newTestEnv() *testEnv {
	users := &fakeUserRepo{}
	tasks := &fakeTaskRepo{users: users}
	blobs := newMemoryBlobStore()

	userService := services.NewUserService(users)
	taskService := services.NewTaskService(tasks, users, nil, blobs)
	dashboardService := services.NewDashboardService(users, tasks)

	authMiddleware := RequireAuth(testSecret)

	router := chi.NewRouter()
	router.Get("/healthz", Healthz)
	AuthRouter(router, userService, testSecret)
	router.Route("/dashboard", func(r chi.Router) {
		DashboardRouter(r, dashboardService, userService, authMiddleware)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, authMiddleware)
	})
	router.Route("/admins", func(r chi.Router) {
		AdminRouter(r, userService, authMiddleware)
	})
	router.Route("/tasks", func(r chi.Router) {
		TaskRouter(r, taskService, userService, authMiddleware)
	})
	router.Route("/user/tasks", func(r chi.Router) {
		UserTaskRouter(r, taskService, userService, authMiddleware)
	})

	return &testEnv{
		users:  users,
		tasks:  tasks,
		blobs:  blobs,
		router: router,
	}
}

// seedUser inserts an account directly into the repo, bypassing the
// handlers, with the shared test password.
func (e *testEnv) seedUser(t *testing.T, username string, role types.Role, assignedAdminID *int) types.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user, err := e.users.Create(context.Background(), types.User{
		Username:        username,
		Role:            role,
		AssignedAdminID: assignedAdminID,
		IsActive:        true,
		PasswordHash:    string(hashed),
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

// login performs a real login request and returns the bearer token.
func (e *testEnv) login(t *testing.T, username, password string) string {
	t.Helper()
	rec := e.request(t, http.MethodPost, "/login/", "", LoginRequest{Username: username, Password: password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d: %s", username, rec.Code, rec.Body.String())
	}
	var resp AuthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return resp.Token
}

// request performs an HTTP request against the test router.
func (e *testEnv) request(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var value T
	if err := json.Unmarshal(rec.Body.Bytes(), &value); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return value
}
