// Package memory keeps users and tasks in process memory. It is a test double
// for the handler and use case tests and is not wired into cmd/server. It
// mirrors the postgres repositories, including the all-or-nothing Update and
// Delete semantics.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastygo/taskmanager/domain"
	"github.com/fastygo/taskmanager/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]domain.User
	byEmail map[string]string
	now     func() time.Time
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]domain.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	user := r.byID[id]
	return &user, nil
}

func (r *UserRepository) Create(_ context.Context, user *domain.User) error {
	if user == nil {
		return domain.ErrInvalidPayload
	}
	email := domain.NormalizeEmail(user.Email)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrIdentityTaken
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Email = email
	user.CreatedAt = r.now().UTC()

	r.byID[user.ID] = *user
	r.byEmail[email] = user.ID
	return nil
}

type TaskRepository struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	seq   int64
	order map[string]int64
	now   func() time.Time
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{
		tasks: make(map[string]domain.Task),
		order: make(map[string]int64),
		now:   time.Now,
	}
}

var _ repository.TaskRepository = (*TaskRepository)(nil)

func (r *TaskRepository) GetByID(_ context.Context, id string) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	return cloneTask(task), nil
}

// List returns matching tasks newest first.
func (r *TaskRepository) List(_ context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	filter = filter.Normalized()
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]domain.Task, 0)
	for _, task := range r.tasks {
		if task.UserID != filter.UserID {
			continue
		}
		if filter.Category != "" && task.Category != filter.Category {
			continue
		}
		if filter.Priority != "" && string(task.Priority) != filter.Priority {
			continue
		}
		if filter.Completed != nil && task.IsCompleted != *filter.Completed {
			continue
		}
		matched = append(matched, *cloneTask(task))
	}
	sort.Slice(matched, func(i, j int) bool {
		return r.order[matched[i].ID] > r.order[matched[j].ID]
	})

	offset := filter.Offset
	if offset >= len(matched) {
		return []domain.Task{}, nil
	}
	end := offset + filter.Limit
	if end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (r *TaskRepository) Create(_ context.Context, task *domain.Task) (*domain.Task, error) {
	if task == nil || task.UserID == "" {
		return nil, domain.ErrInvalidPayload
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := r.now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now

	r.seq++
	r.order[task.ID] = r.seq
	r.tasks[task.ID] = *cloneTask(*task)
	return task, nil
}

// Update runs apply against a copy; the stored task changes only if apply succeeds.
func (r *TaskRepository) Update(_ context.Context, id string, apply repository.TaskMutator) (*domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrTaskNotFound
	}
	working := cloneTask(current)
	if apply != nil {
		if err := apply(working); err != nil {
			return nil, err
		}
	}
	working.ID = current.ID
	working.UserID = current.UserID
	working.CreatedAt = current.CreatedAt
	working.UpdatedAt = r.now().UTC()

	r.tasks[id] = *cloneTask(*working)
	return working, nil
}

func (r *TaskRepository) Delete(_ context.Context, id string, guard repository.TaskMutator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.tasks[id]
	if !ok {
		return domain.ErrTaskNotFound
	}
	if guard != nil {
		if err := guard(cloneTask(current)); err != nil {
			return err
		}
	}
	delete(r.tasks, id)
	delete(r.order, id)
	return nil
}

// Len reports how many tasks are stored across all users.
func (r *TaskRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

func cloneTask(task domain.Task) *domain.Task {
	if task.DueDate != nil {
		due := *task.DueDate
		task.DueDate = &due
	}
	return &task
}
