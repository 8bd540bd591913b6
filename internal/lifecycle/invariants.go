package lifecycle

import "github.com/TWRT/task-manager/internal/models"

// CheckInvariants verifies the structural invariants every stored task must
// satisfy: at least one named stage, completion time present exactly for
// completed stages, and approvals only on completed stages.
func CheckInvariants(task *models.Task) error {
	if len(task.Stages) == 0 {
		return Errorf(KindValidation, "task must have at least one stage")
	}
	for i, s := range task.Stages {
		if s.Name == "" {
			return Errorf(KindValidation, "stage %d has no name", i)
		}
		if s.Completed != (s.CompletedAt != nil) {
			return Errorf(KindInvalidState, "stage %d completion time does not match its state", i)
		}
		if s.ApprovedBy != "" && !s.Completed {
			return Errorf(KindInvalidState, "stage %d is approved but not completed", i)
		}
	}
	return nil
}
