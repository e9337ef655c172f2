package task

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskmanager/domain"
	appLogger "github.com/fastygo/taskmanager/pkg/logger"
	"github.com/fastygo/taskmanager/repository"
)

// UseCase exposes task operations scoped to an authenticated identity. Every
// lookup by id passes through the ownership check; a task owned by someone
// else is reported exactly like a missing one.
type UseCase struct {
	tasks  repository.TaskRepository
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		logger: logger,
	}
}

// ListTasks returns the identity's own tasks; filter.UserID is always overwritten.
func (uc *UseCase) ListTasks(ctx context.Context, identity domain.Identity, filter repository.TaskFilter) ([]domain.Task, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	filter.UserID = identity.UserID

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, uc.internal(ctx, "list tasks", err)
	}
	return tasks, nil
}

func (uc *UseCase) GetTask(ctx context.Context, identity domain.Identity, id string) (*domain.Task, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}

	task, err := uc.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, uc.classify(ctx, "get task", err)
	}
	if err := uc.authorize(ctx, identity, task); err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask stores task as owned by identity, ignoring any owner or id the caller set.
func (uc *UseCase) CreateTask(ctx context.Context, identity domain.Identity, task *domain.Task) (*domain.Task, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	task.ID = ""
	task.UserID = identity.UserID

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		return nil, uc.internal(ctx, "create task", err)
	}
	return created, nil
}

// ReplaceTask overwrites every user-editable field of the task.
func (uc *UseCase) ReplaceTask(ctx context.Context, identity domain.Identity, id string, replacement *domain.Task) (*domain.Task, error) {
	if replacement == nil {
		return nil, domain.ErrInvalidPayload
	}
	return uc.mutate(ctx, identity, id, "replace task", func(task *domain.Task) {
		task.Title = replacement.Title
		task.Description = replacement.Description
		task.Category = replacement.Category
		task.Priority = replacement.Priority
		task.IsCompleted = replacement.IsCompleted
		task.DueDate = replacement.DueDate
	})
}

// PatchTask applies only the fields present in patch.
func (uc *UseCase) PatchTask(ctx context.Context, identity domain.Identity, id string, patch domain.TaskPatch) (*domain.Task, error) {
	return uc.mutate(ctx, identity, id, "patch task", patch.Apply)
}

func (uc *UseCase) DeleteTask(ctx context.Context, identity domain.Identity, id string) error {
	if identity.IsZero() {
		return domain.ErrUnauthorized
	}
	if !validID(id) {
		return domain.ErrTaskNotFound
	}

	err := uc.tasks.Delete(ctx, id, func(task *domain.Task) error {
		return uc.authorize(ctx, identity, task)
	})
	if err != nil {
		return uc.classify(ctx, "delete task", err)
	}
	return nil
}

func (uc *UseCase) mutate(ctx context.Context, identity domain.Identity, id, op string, change func(*domain.Task)) (*domain.Task, error) {
	if identity.IsZero() {
		return nil, domain.ErrUnauthorized
	}
	if !validID(id) {
		return nil, domain.ErrTaskNotFound
	}

	updated, err := uc.tasks.Update(ctx, id, func(task *domain.Task) error {
		if err := uc.authorize(ctx, identity, task); err != nil {
			return err
		}
		change(task)
		return nil
	})
	if err != nil {
		return nil, uc.classify(ctx, op, err)
	}
	return updated, nil
}

func (uc *UseCase) authorize(ctx context.Context, identity domain.Identity, task *domain.Task) error {
	if domain.Authorize(identity, task.UserID) == domain.Allowed {
		return nil
	}
	appLogger.FromContext(ctx, uc.logger).Warn("task ownership mismatch",
		zap.String("user_id", identity.UserID),
		zap.String("task_id", task.ID))
	return domain.ErrTaskNotFound
}

// classify passes domain errors through and wraps everything else as internal.
func (uc *UseCase) classify(ctx context.Context, op string, err error) error {
	var dErr *domain.Error
	if errors.As(err, &dErr) && dErr.Code != domain.ErrCodeInternal {
		return err
	}
	return uc.internal(ctx, op, err)
}

func (uc *UseCase) internal(ctx context.Context, op string, err error) error {
	appLogger.FromContext(ctx, uc.logger).Error("task operation failed", zap.String("operation", op), zap.Error(err))
	return domain.WrapError(domain.ErrCodeInternal, op, err)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
