package repository

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/task-manager/internal/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleTask(id, assignee string, createdAt time.Time) *models.Task {
	done := createdAt.Add(time.Hour)
	return &models.Task{
		Id:          id,
		Title:       "Task " + id,
		Description: "Description " + id,
		AssignedTo:  assignee,
		AssignedBy:  "admin-1",
		Priority:    models.PriorityHigh,
		Status:      models.StatusInProgress,
		DueDate:     createdAt.Add(48 * time.Hour),
		Stages: []models.Stage{
			{Name: "draft", Completed: true, CompletedAt: &done, ApprovedBy: "admin-1"},
			{Name: "review"},
		},
		Notes: []models.Note{
			{Content: "first", CreatedBy: assignee, CreatedAt: createdAt},
		},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestTaskRepository_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	created := time.Date(2026, 1, 2, 3, 4, 5, 6000, time.UTC)

	task := sampleTask("t1", "user-1", created)
	require.NoError(t, repo.SaveTask(ctx, task))
	assert.Equal(t, int64(1), task.Version)

	got, err := repo.LoadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, task, got)
}

func TestTaskRepository_TimestampRange(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	for i, due := range []time.Time{
		time.Date(3000, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC),
		time.Date(1, 1, 1, 0, 0, 0, 1, time.UTC),
	} {
		task := sampleTask(fmt.Sprintf("t%d", i), "user-1", created)
		task.DueDate = due
		require.NoError(t, repo.SaveTask(ctx, task))

		got, err := repo.LoadTask(ctx, task.Id)
		require.NoError(t, err)
		assert.True(t, due.Equal(got.DueDate), "stored %s loaded %s", due, got.DueDate)
	}
}

func TestTaskRepository_LoadMissing(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))

	_, err := repo.LoadTask(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_UpdateReplacesChildren(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	task := sampleTask("t1", "user-1", time.Now().UTC())
	require.NoError(t, repo.SaveTask(ctx, task))

	task.Title = "Renamed"
	task.Stages = []models.Stage{{Name: "only"}}
	task.Notes = append(task.Notes, models.Note{Content: "second", CreatedBy: "admin-1", CreatedAt: task.CreatedAt})
	require.NoError(t, repo.SaveTask(ctx, task))
	assert.Equal(t, int64(2), task.Version)

	got, err := repo.LoadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	require.Len(t, got.Stages, 1)
	assert.Equal(t, "only", got.Stages[0].Name)
	require.Len(t, got.Notes, 2)
	assert.Equal(t, "second", got.Notes[1].Content)
}

func TestTaskRepository_VersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	require.NoError(t, repo.SaveTask(ctx, sampleTask("t1", "user-1", time.Now().UTC())))

	first, err := repo.LoadTask(ctx, "t1")
	require.NoError(t, err)
	second, err := repo.LoadTask(ctx, "t1")
	require.NoError(t, err)

	first.Title = "first writer"
	require.NoError(t, repo.SaveTask(ctx, first))

	second.Title = "second writer"
	err = repo.SaveTask(ctx, second)
	require.ErrorIs(t, err, ErrVersionConflict)

	got, err := repo.LoadTask(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "first writer", got.Title)
}

func TestTaskRepository_UpdateDeleted(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	task := sampleTask("t1", "user-1", time.Now().UTC())
	require.NoError(t, repo.SaveTask(ctx, task))
	require.NoError(t, repo.DeleteTask(ctx, "t1"))

	err := repo.SaveTask(ctx, task)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTaskRepository_ListOrderAndFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewTaskRepository(newTestDB(t))
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveTask(ctx, sampleTask("old", "user-1", base)))
	require.NoError(t, repo.SaveTask(ctx, sampleTask("mid", "user-2", base.Add(time.Hour))))
	require.NoError(t, repo.SaveTask(ctx, sampleTask("new", "user-1", base.Add(2*time.Hour))))

	all, err := repo.ListTasks(ctx, TaskFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].Id, all[1].Id, all[2].Id})
	assert.Len(t, all[0].Stages, 2)

	mine, err := repo.ListTasks(ctx, TaskFilter{AssignedTo: "user-1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "new", mine[0].Id)
	assert.Equal(t, "old", mine[1].Id)
}

func TestTaskRepository_Delete(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewTaskRepository(db)
	require.NoError(t, repo.SaveTask(ctx, sampleTask("t1", "user-1", time.Now().UTC())))

	require.NoError(t, repo.DeleteTask(ctx, "t1"))
	assert.ErrorIs(t, repo.DeleteTask(ctx, "t1"), ErrNotFound)

	var stages int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM task_stages WHERE task_id = 't1'`).Scan(&stages))
	assert.Zero(t, stages)
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Save(ctx, &models.User{Id: "u1", Name: "Ana", Email: "ana@example.com", Role: models.RoleAdmin}))
	require.NoError(t, repo.Save(ctx, &models.User{Id: "u2", Name: "Bruno", Email: "bruno@example.com", Role: models.RoleMember}))

	ok, err := repo.UserExists(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.UserExists(ctx, "ghost")
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := repo.GetUsers(ctx, []string{"u1", "u2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "Bruno", users["u2"].Name)

	require.NoError(t, repo.Save(ctx, &models.User{Id: "u2", Name: "Bruno S.", Email: "bruno@example.com", Role: models.RoleMember}))
	list, err := repo.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Bruno S.", list[1].Name)

	empty, err := repo.GetUsers(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
