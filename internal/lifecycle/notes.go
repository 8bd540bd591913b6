package lifecycle

import (
	"strings"
	"time"

	"github.com/TWRT/task-manager/internal/models"
)

// AddNote appends a note authored by actor. Notes are never edited or removed.
func AddNote(task *models.Task, actor models.Identity, content string, now time.Time) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return Errorf(KindValidation, "note content is required")
	}
	if err := Authorize(actor, task, ActionAddNote); err != nil {
		return err
	}
	task.Notes = append(task.Notes, models.Note{
		Content:   content,
		CreatedBy: actor.ID,
		CreatedAt: now,
	})
	return nil
}
