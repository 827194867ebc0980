package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tasktrack/apiserver/internal/notify"
	"github.com/tasktrack/apiserver/internal/store"
	"github.com/tasktrack/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository.
type fakeUserRepo struct {
	mu     sync.Mutex
	users  []types.User
	nextID int
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1}
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

func (f *fakeUserRepo) CountByAdmin(ctx context.Context, adminID int) (int, error) {
	users, _ := f.ListByAdmin(ctx, adminID)
	return len(users), nil
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user.ID = f.nextID
	f.nextID++
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

// fakeTaskRepo is an in-memory TaskRepository. It resolves the
// supervisor scope through the paired fakeUserRepo, mirroring the SQL
// join through the assignee's assigned_admin reference.
type fakeTaskRepo struct {
	mu     sync.Mutex
	tasks  []types.Task
	users  *fakeUserRepo
	nextID int
}

func newFakeTaskRepo(users *fakeUserRepo) *fakeTaskRepo {
	return &fakeTaskRepo{users: users, nextID: 1}
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
	// Newest-created first; IDs are monotonic so they break ties.
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
	task.ID = f.nextID
	f.nextID++
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

// capturePublisher records published task events.
type capturePublisher struct {
	mu     sync.Mutex
	events []notify.TaskEvent
}

func (c *capturePublisher) Publish(_ context.Context, event notify.TaskEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *capturePublisher) Listen(ctx context.Context, fn func(notify.TaskEvent)) error {
	return nil
}

func (c *capturePublisher) Close() error { return nil }

func (c *capturePublisher) captured() []notify.TaskEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]notify.TaskEvent(nil), c.events...)
}

// memoryBlobStore keeps attachments in a map.
type memoryBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

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
