package lifecycle

import (
	"time"

	"github.com/TWRT/task-manager/internal/models"
)

func stageAt(task *models.Task, index int) (*models.Stage, error) {
	if index < 0 || index >= len(task.Stages) {
		return nil, Errorf(KindStageNotFound, "stage %d not found", index)
	}
	return &task.Stages[index], nil
}

// SetCompletion marks the stage at index complete or incomplete and applies
// the resulting automatic status transition. Reopening a stage clears its
// completion time and approval; completing it leaves an existing approval in
// place.
func SetCompletion(task *models.Task, index int, completed bool, actor models.Identity, now time.Time) error {
	stage, err := stageAt(task, index)
	if err != nil {
		return err
	}
	if err := Authorize(actor, task, ActionToggleStage); err != nil {
		return err
	}

	wasCompleted := stage.Completed
	if completed {
		at := now
		stage.Completed = true
		stage.CompletedAt = &at
		afterStageCompleted(task)
		return nil
	}

	stage.Completed = false
	stage.CompletedAt = nil
	stage.ApprovedBy = ""
	afterStageReopened(task, wasCompleted)
	return nil
}

// Approve records actor as the approver of a completed stage. Approving again
// overwrites the previous approver.
func Approve(task *models.Task, index int, actor models.Identity) error {
	if err := Authorize(actor, task, ActionApproveStage); err != nil {
		return err
	}
	stage, err := stageAt(task, index)
	if err != nil {
		return err
	}
	if !stage.Completed {
		return Errorf(KindInvalidState, "stage must be completed before approval")
	}
	stage.ApprovedBy = actor.ID
	return nil
}
