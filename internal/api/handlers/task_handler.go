package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/TWRT/task-manager/internal/lifecycle"
	"github.com/TWRT/task-manager/internal/models"
	"github.com/TWRT/task-manager/internal/service"
)

type StageRequest struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type CreateTaskRequestBody struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	AssignedTo  string          `json:"assignedTo"`
	Priority    models.Priority `json:"priority"`
	DueDate     time.Time       `json:"dueDate"`
	Stages      []StageRequest  `json:"stages"`
}

type UpdateTaskRequestBody struct {
	Title       *string          `json:"title"`
	Description *string          `json:"description"`
	AssignedTo  *string          `json:"assignedTo"`
	Priority    *models.Priority `json:"priority"`
	DueDate     *time.Time       `json:"dueDate"`
	Status      *models.Status   `json:"status"`
	Stages      []StageRequest   `json:"stages"`
}

type AddNoteRequestBody struct {
	Content string `json:"content"`
}

type StageCompletionRequestBody struct {
	Completed *bool `json:"completed"`
}

type TaskHandler struct {
	taskService *service.TaskService
	log         *slog.Logger
}

func NewTaskHandler(taskService *service.TaskService, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		log:         logger,
	}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var reqBody CreateTaskRequestBody
	if !decodeBody(w, r, &reqBody) {
		return
	}

	// Blank stage rows from the form are dropped before the engine sees them.
	var stages []string
	for _, s := range reqBody.Stages {
		if strings.TrimSpace(s.Name) != "" {
			stages = append(stages, s.Name)
		}
	}

	task, err := h.taskService.CreateTask(r.Context(), actor, service.CreateTaskInput{
		Title:       reqBody.Title,
		Description: reqBody.Description,
		AssignedTo:  reqBody.AssignedTo,
		Priority:    reqBody.Priority,
		DueDate:     reqBody.DueDate,
		Stages:      stages,
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	tasks, err := h.taskService.GetTasks(r.Context(), actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	if tasks == nil {
		tasks = []models.TaskView{}
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	task, err := h.taskService.GetTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var reqBody UpdateTaskRequestBody
	if !decodeBody(w, r, &reqBody) {
		return
	}

	patch := service.TaskPatch{
		Title:       reqBody.Title,
		Description: reqBody.Description,
		AssignedTo:  reqBody.AssignedTo,
		Priority:    reqBody.Priority,
		DueDate:     reqBody.DueDate,
		Status:      reqBody.Status,
	}
	if reqBody.Stages != nil {
		patch.Stages = make([]service.StageInput, len(reqBody.Stages))
		for i, s := range reqBody.Stages {
			patch.Stages[i] = service.StageInput{Name: s.Name, Completed: s.Completed}
		}
	}

	task, err := h.taskService.UpdateTask(r.Context(), actor, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	if err := h.taskService.DeleteTask(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Task removed"})
}

func (h *TaskHandler) AddNote(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	var reqBody AddNoteRequestBody
	if !decodeBody(w, r, &reqBody) {
		return
	}
	task, err := h.taskService.AddNote(r.Context(), actor, chi.URLParam(r, "id"), reqBody.Content)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	index, ok := h.stageIndex(w, r)
	if !ok {
		return
	}
	var reqBody StageCompletionRequestBody
	if !decodeBody(w, r, &reqBody) {
		return
	}
	if reqBody.Completed == nil {
		writeError(w, r, h.log, lifecycle.Errorf(lifecycle.KindValidation, "completed is required"))
		return
	}

	task, err := h.taskService.SetStageCompletion(r.Context(), actor, chi.URLParam(r, "id"), index, *reqBody.Completed)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) ApproveStage(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}
	index, ok := h.stageIndex(w, r)
	if !ok {
		return
	}
	task, err := h.taskService.ApproveStage(r.Context(), actor, chi.URLParam(r, "id"), index)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) stageIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "stageIndex")
	index, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, r, h.log, lifecycle.Errorf(lifecycle.KindStageNotFound, "stage %q not found", raw))
		return 0, false
	}
	return index, true
}
