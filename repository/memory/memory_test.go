package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastygo/taskmanager/domain"
	"github.com/fastygo/taskmanager/repository"
)

func TestUserRepository_UniqueEmail(t *testing.T) {
	repo := NewUserRepository()
	ctx := context.Background()

	first := &domain.User{Email: "Alice@Example.com", PasswordHash: "hash-1"}
	require.NoError(t, repo.Create(ctx, first))
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "alice@example.com", first.Email)

	err := repo.Create(ctx, &domain.User{Email: "alice@example.com", PasswordHash: "hash-2"})
	assert.ErrorIs(t, err, domain.ErrIdentityTaken)

	stored, err := repo.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash-1", stored.PasswordHash)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestTaskRepository_UpdateRollsBackOnError(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Task{UserID: "u1", Title: "Buy milk", Priority: domain.PriorityLow})
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = repo.Update(ctx, created.ID, func(task *domain.Task) error {
		task.Title = "changed"
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Buy milk", stored.Title)

	updated, err := repo.Update(ctx, created.ID, func(task *domain.Task) error {
		task.Title = "Buy oat milk"
		task.UserID = "someone-else"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Buy oat milk", updated.Title)
	assert.Equal(t, "u1", updated.UserID, "owner cannot be reassigned")
}

func TestTaskRepository_DeleteGuard(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	created, err := repo.Create(ctx, &domain.Task{UserID: "u1", Title: "t", Priority: domain.PriorityLow})
	require.NoError(t, err)

	err = repo.Delete(ctx, created.ID, func(*domain.Task) error { return domain.ErrTaskNotFound })
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)
	assert.Equal(t, 1, repo.Len())

	require.NoError(t, repo.Delete(ctx, created.ID, nil))
	assert.Equal(t, 0, repo.Len())
	assert.ErrorIs(t, repo.Delete(ctx, created.ID, nil), domain.ErrTaskNotFound)
}

func TestTaskRepository_ListFilters(t *testing.T) {
	repo := NewTaskRepository()
	ctx := context.Background()

	seed := []domain.Task{
		{UserID: "u1", Title: "a", Category: "home", Priority: domain.PriorityLow},
		{UserID: "u1", Title: "b", Category: "work", Priority: domain.PriorityHigh, IsCompleted: true},
		{UserID: "u1", Title: "c", Category: "home", Priority: domain.PriorityHigh},
		{UserID: "u2", Title: "d", Category: "home", Priority: domain.PriorityLow},
	}
	for i := range seed {
		_, err := repo.Create(ctx, &seed[i])
		require.NoError(t, err)
	}

	done := true
	tests := []struct {
		name   string
		filter repository.TaskFilter
		titles []string
	}{
		{"owner only newest first", repository.TaskFilter{UserID: "u1"}, []string{"c", "b", "a"}},
		{"category", repository.TaskFilter{UserID: "u1", Category: "home"}, []string{"c", "a"}},
		{"priority", repository.TaskFilter{UserID: "u1", Priority: "high"}, []string{"c", "b"}},
		{"completed", repository.TaskFilter{UserID: "u1", Completed: &done}, []string{"b"}},
		{"paged", repository.TaskFilter{UserID: "u1", Limit: 1, Offset: 1}, []string{"b"}},
		{"offset past end", repository.TaskFilter{UserID: "u1", Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			titles := make([]string, 0, len(tasks))
			for _, task := range tasks {
				titles = append(titles, task.Title)
			}
			assert.Equal(t, tt.titles, titles)
		})
	}
}
