package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TWRT/task-manager/internal/models"
)

var (
	admin    = models.Identity{ID: "admin-1", Role: models.RoleAdmin}
	assignee = models.Identity{ID: "user-1", Role: models.RoleMember}
	stranger = models.Identity{ID: "user-2", Role: models.RoleMember}
	now      = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
)

func newTask(stages ...string) *models.Task {
	t := &models.Task{
		Id:          "task-1",
		Title:       "Write report",
		Description: "Quarterly numbers",
		AssignedTo:  assignee.ID,
		AssignedBy:  admin.ID,
		Priority:    models.PriorityMedium,
		Status:      models.StatusPending,
		DueDate:     now.Add(72 * time.Hour),
		CreatedAt:   now,
	}
	for _, name := range stages {
		t.Stages = append(t.Stages, models.Stage{Name: name})
	}
	return t
}

func TestAuthorize(t *testing.T) {
	task := newTask("draft")

	tests := []struct {
		name    string
		actor   models.Identity
		action  Action
		allowed bool
	}{
		{"admin views", admin, ActionView, true},
		{"assignee views", assignee, ActionView, true},
		{"stranger views", stranger, ActionView, false},
		{"admin creates", admin, ActionCreate, true},
		{"member creates", assignee, ActionCreate, false},
		{"assignee updates fields", assignee, ActionUpdateFields, false},
		{"assignee updates status", assignee, ActionUpdateStatus, true},
		{"stranger updates status", stranger, ActionUpdateStatus, false},
		{"assignee adds note", assignee, ActionAddNote, true},
		{"stranger adds note", stranger, ActionAddNote, false},
		{"assignee toggles stage", assignee, ActionToggleStage, true},
		{"assignee approves stage", assignee, ActionApproveStage, false},
		{"admin approves stage", admin, ActionApproveStage, true},
		{"assignee deletes", assignee, ActionDelete, false},
		{"admin deletes", admin, ActionDelete, true},
		{"unknown role", models.Identity{ID: assignee.ID, Role: "owner"}, ActionView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Authorize(tt.actor, task, tt.action)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrForbidden)
		})
	}
}

func TestSetCompletion_StageNotFound(t *testing.T) {
	task := newTask("draft")

	for _, idx := range []int{-1, 1, 5} {
		err := SetCompletion(task, idx, true, assignee, now)
		assert.ErrorIs(t, err, ErrStageNotFound)
	}
}

func TestSetCompletion_Forbidden(t *testing.T) {
	task := newTask("draft")

	err := SetCompletion(task, 0, true, stranger, now)
	require.ErrorIs(t, err, ErrForbidden)
	assert.False(t, task.Stages[0].Completed)
}

func TestSetCompletion_ReopenClearsApproval(t *testing.T) {
	task := newTask("draft", "review")
	require.NoError(t, SetCompletion(task, 0, true, assignee, now))
	require.NoError(t, Approve(task, 0, admin))
	require.Equal(t, admin.ID, task.Stages[0].ApprovedBy)

	require.NoError(t, SetCompletion(task, 0, false, assignee, now))
	assert.False(t, task.Stages[0].Completed)
	assert.Nil(t, task.Stages[0].CompletedAt)
	assert.Empty(t, task.Stages[0].ApprovedBy)
}

func TestSetCompletion_RecompleteKeepsApproval(t *testing.T) {
	task := newTask("draft", "review")
	require.NoError(t, SetCompletion(task, 0, true, assignee, now))
	require.NoError(t, Approve(task, 0, admin))

	later := now.Add(time.Hour)
	require.NoError(t, SetCompletion(task, 0, true, assignee, later))
	assert.Equal(t, admin.ID, task.Stages[0].ApprovedBy)
	assert.Equal(t, later, *task.Stages[0].CompletedAt)
}

func TestApprove_IncompleteStage(t *testing.T) {
	task := newTask("draft")
	before := task.Clone()

	err := Approve(task, 0, admin)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, before, task)
}

func TestApprove_MemberForbidden(t *testing.T) {
	task := newTask("draft")
	require.NoError(t, SetCompletion(task, 0, true, assignee, now))

	err := Approve(task, 0, assignee)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Empty(t, task.Stages[0].ApprovedBy)
}

func TestApprove_Overwrites(t *testing.T) {
	task := newTask("draft")
	other := models.Identity{ID: "admin-2", Role: models.RoleAdmin}
	require.NoError(t, SetCompletion(task, 0, true, assignee, now))
	require.NoError(t, Approve(task, 0, admin))
	require.NoError(t, Approve(task, 0, other))
	assert.Equal(t, other.ID, task.Stages[0].ApprovedBy)
}

func TestAutoTransitions(t *testing.T) {
	task := newTask("draft", "review")

	require.NoError(t, SetCompletion(task, 0, true, assignee, now))
	assert.Equal(t, models.StatusPending, task.Status)

	require.NoError(t, SetCompletion(task, 1, true, assignee, now))
	assert.Equal(t, models.StatusCompleted, task.Status)

	// Completing an already complete stage changes nothing further.
	require.NoError(t, SetCompletion(task, 1, true, assignee, now))
	assert.Equal(t, models.StatusCompleted, task.Status)

	require.NoError(t, SetCompletion(task, 1, false, assignee, now))
	assert.Equal(t, models.StatusInProgress, task.Status)
}

func TestAutoTransitions_ReviewedUntouched(t *testing.T) {
	task := newTask("draft")
	require.NoError(t, RequestStatus(task, admin, models.StatusReviewed))

	require.NoError(t, SetCompletion(task, 0, true, assignee, now))
	assert.Equal(t, models.StatusReviewed, task.Status)

	require.NoError(t, SetCompletion(task, 0, false, assignee, now))
	assert.Equal(t, models.StatusReviewed, task.Status)
}

func TestAutoTransitions_ReopenIncompleteStageKeepsOverride(t *testing.T) {
	task := newTask("draft", "review")
	require.NoError(t, RequestStatus(task, admin, models.StatusCompleted))

	require.NoError(t, SetCompletion(task, 0, false, assignee, now))
	assert.Equal(t, models.StatusCompleted, task.Status)
}

func TestRequestStatus(t *testing.T) {
	t.Run("admin sets reviewed on incomplete task", func(t *testing.T) {
		task := newTask("draft")
		require.NoError(t, RequestStatus(task, admin, models.StatusReviewed))
		assert.Equal(t, models.StatusReviewed, task.Status)
	})

	t.Run("member reviewed is a no-op", func(t *testing.T) {
		task := newTask("draft")
		task.Status = models.StatusInProgress
		require.NoError(t, RequestStatus(task, assignee, models.StatusReviewed))
		assert.Equal(t, models.StatusInProgress, task.Status)
	})

	t.Run("member sets in-progress", func(t *testing.T) {
		task := newTask("draft")
		require.NoError(t, RequestStatus(task, assignee, models.StatusInProgress))
		assert.Equal(t, models.StatusInProgress, task.Status)
	})

	t.Run("member cannot complete with open stages", func(t *testing.T) {
		task := newTask("draft")
		err := RequestStatus(task, assignee, models.StatusCompleted)
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Contains(t, err.Error(), "an administrator can force completion")
		assert.Equal(t, models.StatusPending, task.Status)
	})

	t.Run("stranger forbidden", func(t *testing.T) {
		task := newTask("draft")
		err := RequestStatus(task, stranger, models.StatusInProgress)
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("unknown status", func(t *testing.T) {
		task := newTask("draft")
		err := RequestStatus(task, admin, models.Status("archived"))
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestAddNote(t *testing.T) {
	task := newTask("draft")

	require.NoError(t, AddNote(task, assignee, "  started  ", now))
	require.NoError(t, AddNote(task, admin, "thanks", now.Add(time.Minute)))
	require.Len(t, task.Notes, 2)
	assert.Equal(t, "started", task.Notes[0].Content)
	assert.Equal(t, assignee.ID, task.Notes[0].CreatedBy)
	assert.Equal(t, admin.ID, task.Notes[1].CreatedBy)

	assert.ErrorIs(t, AddNote(task, assignee, "   ", now), ErrValidation)
	assert.ErrorIs(t, AddNote(task, stranger, "hi", now), ErrForbidden)
	assert.Len(t, task.Notes, 2)
}

func TestErrorKinds(t *testing.T) {
	err := Errorf(KindConflict, "task %s was modified", "t1")
	assert.Equal(t, "task t1 was modified", err.Error())
	assert.Equal(t, KindConflict, KindOf(err))
	assert.True(t, errors.Is(err, ErrConflict))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, Kind(""), KindOf(errors.New("disk full")))
}

func TestCheckInvariants(t *testing.T) {
	task := newTask()
	assert.ErrorIs(t, CheckInvariants(task), ErrValidation)

	task = newTask("draft")
	require.NoError(t, CheckInvariants(task))

	task.Stages[0].Completed = true
	assert.ErrorIs(t, CheckInvariants(task), ErrInvalidState)

	task.Stages[0] = models.Stage{Name: "draft", ApprovedBy: admin.ID}
	assert.ErrorIs(t, CheckInvariants(task), ErrInvalidState)
}
