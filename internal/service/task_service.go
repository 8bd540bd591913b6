package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/TWRT/task-manager/internal/lifecycle"
	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/repository"
)

type CreateTaskInput struct {
	Title       string
	Description string
	AssignedTo  string
	Priority    models.Priority
	DueDate     time.Time
	Stages      []string
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	AssignedTo  *string
	Priority    *models.Priority
	DueDate     *time.Time
	Status      *models.Status
	Stages      []StageInput
}

func (p TaskPatch) hasAdminFields() bool {
	return p.Title != nil || p.Description != nil || p.AssignedTo != nil ||
		p.Priority != nil || p.DueDate != nil || p.Stages != nil
}

type StageInput struct {
	Name      string
	Completed bool
}

type TaskService struct {
	store TaskStore
	users UserDirectory
	log   *slog.Logger
	now   func() time.Time
	newID func() string
}

func NewTaskService(store TaskStore, users UserDirectory, logger *slog.Logger) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		store: store,
		users: users,
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

func (s *TaskService) CreateTask(ctx context.Context, actor models.Identity, input CreateTaskInput) (*models.TaskView, error) {
	if err := lifecycle.Authorize(actor, nil, lifecycle.ActionCreate); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "title is required")
	}
	if description == "" {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "description is required")
	}
	if input.AssignedTo == "" {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "assignedTo is required")
	}
	if input.DueDate.IsZero() {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "dueDate is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "invalid priority %q", priority)
	}
	if len(input.Stages) == 0 {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "at least one stage is required")
	}

	stages := make([]models.Stage, len(input.Stages))
	for i, name := range input.Stages {
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, lifecycle.Errorf(lifecycle.KindValidation, "stage %d has no name", i)
		}
		stages[i] = models.Stage{Name: name}
	}

	if err := s.requireUser(ctx, input.AssignedTo); err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		Id:          s.newID(),
		Title:       title,
		Description: description,
		AssignedTo:  input.AssignedTo,
		AssignedBy:  actor.ID,
		Priority:    priority,
		Status:      models.StatusPending,
		DueDate:     input.DueDate.UTC(),
		Stages:      stages,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.log.InfoContext(ctx, "task created", "task_id", task.Id, "actor", actor.ID, "assigned_to", task.AssignedTo)
	return s.resolve(ctx, task)
}

// GetTasks lists every task for an admin and only the actor's own tasks for
// anyone else, newest first.
func (s *TaskService) GetTasks(ctx context.Context, actor models.Identity) ([]models.TaskView, error) {
	filter := repository.TaskFilter{AssignedTo: actor.ID}
	if actor.IsAdmin() {
		filter = repository.TaskFilter{}
	}

	tasks, err := s.store.ListTasks(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	var ids []string
	for i := range tasks {
		ids = append(ids, tasks[i].ReferencedUsers()...)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}

	views := make([]models.TaskView, len(tasks))
	for i := range tasks {
		views[i] = tasks[i].Resolve(users)
	}
	return views, nil
}

func (s *TaskService) GetTask(ctx context.Context, actor models.Identity, id string) (*models.TaskView, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := lifecycle.Authorize(actor, task, lifecycle.ActionView); err != nil {
		return nil, err
	}
	return s.resolve(ctx, task)
}

// UpdateTask applies a partial update. Admins may change any field and write
// any status directly. The assignee may only change the status.
func (s *TaskService) UpdateTask(ctx context.Context, actor models.Identity, id string, patch TaskPatch) (*models.TaskView, error) {
	return s.mutate(ctx, actor, id, "task updated", func(task *models.Task, now time.Time) error {
		if !actor.IsAdmin() {
			if err := lifecycle.Authorize(actor, task, lifecycle.ActionUpdateStatus); err != nil {
				return err
			}
			if patch.hasAdminFields() {
				return lifecycle.Errorf(lifecycle.KindForbidden, "only administrators can change fields other than status")
			}
			if patch.Status != nil {
				return lifecycle.RequestStatus(task, actor, *patch.Status)
			}
			return nil
		}
		return s.applyAdminPatch(ctx, task, actor, patch, now)
	})
}

func (s *TaskService) applyAdminPatch(ctx context.Context, task *models.Task, actor models.Identity, patch TaskPatch, now time.Time) error {
	if err := lifecycle.Authorize(actor, task, lifecycle.ActionUpdateFields); err != nil {
		return err
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return lifecycle.Errorf(lifecycle.KindValidation, "title must not be empty")
		}
		task.Title = title
	}
	if patch.Description != nil {
		description := strings.TrimSpace(*patch.Description)
		if description == "" {
			return lifecycle.Errorf(lifecycle.KindValidation, "description must not be empty")
		}
		task.Description = description
	}
	if patch.Priority != nil {
		if !patch.Priority.IsValid() {
			return lifecycle.Errorf(lifecycle.KindValidation, "invalid priority %q", *patch.Priority)
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate != nil {
		if patch.DueDate.IsZero() {
			return lifecycle.Errorf(lifecycle.KindValidation, "dueDate must not be empty")
		}
		task.DueDate = patch.DueDate.UTC()
	}
	if patch.Stages != nil {
		stages, err := replaceStages(task.Stages, patch.Stages, now)
		if err != nil {
			return err
		}
		task.Stages = stages
	}
	if patch.Status != nil {
		if err := lifecycle.RequestStatus(task, actor, *patch.Status); err != nil {
			return err
		}
	}
	if patch.AssignedTo != nil && *patch.AssignedTo != task.AssignedTo {
		if err := s.requireUser(ctx, *patch.AssignedTo); err != nil {
			return err
		}
		task.AssignedTo = *patch.AssignedTo
	}
	return nil
}

// replaceStages builds a new stage list. A stage whose name and completion
// match the stage at the same position keeps its completion time and approval.
func replaceStages(current []models.Stage, inputs []StageInput, now time.Time) ([]models.Stage, error) {
	if len(inputs) == 0 {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "at least one stage is required")
	}
	stages := make([]models.Stage, len(inputs))
	for i, in := range inputs {
		name := strings.TrimSpace(in.Name)
		if name == "" {
			return nil, lifecycle.Errorf(lifecycle.KindValidation, "stage %d has no name", i)
		}
		if i < len(current) && current[i].Name == name && current[i].Completed == in.Completed {
			stages[i] = current[i]
			continue
		}
		stage := models.Stage{Name: name, Completed: in.Completed}
		if in.Completed {
			at := now
			stage.CompletedAt = &at
		}
		stages[i] = stage
	}
	return stages, nil
}

func (s *TaskService) AddNote(ctx context.Context, actor models.Identity, id, content string) (*models.TaskView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, lifecycle.Errorf(lifecycle.KindValidation, "note content is required")
	}
	return s.mutate(ctx, actor, id, "note added", func(task *models.Task, now time.Time) error {
		return lifecycle.AddNote(task, actor, content, now)
	})
}

func (s *TaskService) SetStageCompletion(ctx context.Context, actor models.Identity, id string, stageIndex int, completed bool) (*models.TaskView, error) {
	return s.mutate(ctx, actor, id, "stage updated", func(task *models.Task, now time.Time) error {
		return lifecycle.SetCompletion(task, stageIndex, completed, actor, now)
	})
}

func (s *TaskService) ApproveStage(ctx context.Context, actor models.Identity, id string, stageIndex int) (*models.TaskView, error) {
	return s.mutate(ctx, actor, id, "stage approved", func(task *models.Task, _ time.Time) error {
		return lifecycle.Approve(task, stageIndex, actor)
	})
}

func (s *TaskService) DeleteTask(ctx context.Context, actor models.Identity, id string) error {
	if err := lifecycle.Authorize(actor, nil, lifecycle.ActionDelete); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return storeError(err, id)
	}
	s.log.InfoContext(ctx, "task deleted", "task_id", id, "actor", actor.ID)
	return nil
}

// mutate runs one read-modify-write cycle. Nothing is persisted unless apply
// succeeds and the result passes the structural invariants.
func (s *TaskService) mutate(
	ctx context.Context,
	actor models.Identity,
	id string,
	event string,
	apply func(task *models.Task, now time.Time) error,
) (*models.TaskView, error) {
	task, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := apply(task, now); err != nil {
		return nil, err
	}
	if err := lifecycle.CheckInvariants(task); err != nil {
		return nil, err
	}
	task.UpdatedAt = now

	if err := s.store.SaveTask(ctx, task); err != nil {
		return nil, storeError(err, id)
	}

	s.log.InfoContext(ctx, event, "task_id", id, "actor", actor.ID, "status", task.Status, "version", task.Version)
	return s.resolve(ctx, task)
}

func (s *TaskService) load(ctx context.Context, id string) (*models.Task, error) {
	task, err := s.store.LoadTask(ctx, id)
	if err != nil {
		return nil, storeError(err, id)
	}
	return task, nil
}

func (s *TaskService) requireUser(ctx context.Context, id string) error {
	ok, err := s.users.UserExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check assignee: %w", err)
	}
	if !ok {
		return lifecycle.Errorf(lifecycle.KindInvalidReference, "assigned user not found")
	}
	return nil
}

func (s *TaskService) resolve(ctx context.Context, task *models.Task) (*models.TaskView, error) {
	users, err := s.users.GetUsers(ctx, task.ReferencedUsers())
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	view := task.Resolve(users)
	return &view, nil
}

func storeError(err error, id string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return lifecycle.Errorf(lifecycle.KindNotFound, "task %s not found", id)
	case errors.Is(err, repository.ErrVersionConflict):
		return lifecycle.Errorf(lifecycle.KindConflict, "task %s was modified by another request, reload and retry", id)
	default:
		return fmt.Errorf("task %s: %w", id, err)
	}
}
