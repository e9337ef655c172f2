package repository

import (
	"context"

	"github.com/fastygo/taskmanager/domain"
)

// MaxPageSize caps TaskFilter.Limit; a non-positive limit also means MaxPageSize.
const MaxPageSize = 100

type TaskFilter struct {
	UserID    string
	Category  string
	Priority  string
	Completed *bool
	Limit     int
	Offset    int
}

// Normalized returns the filter with Limit and Offset clamped to the page
// bounds every repository applies.
func (f TaskFilter) Normalized() TaskFilter {
	if f.Limit <= 0 || f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// TaskMutator inspects (and may modify) a locked task row inside a
// transaction. Returning an error rolls the transaction back.
type TaskMutator func(task *domain.Task) error

type TaskRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update locks the row, runs apply and persists the result atomically.
	Update(ctx context.Context, id string, apply TaskMutator) (*domain.Task, error)
	// Delete locks the row, runs guard and removes it atomically.
	Delete(ctx context.Context, id string, guard TaskMutator) error
}
