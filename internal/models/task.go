package models

import (
	"slices"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusReviewed   Status = "reviewed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusReviewed:
		return true
	default:
		return false
	}
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	default:
		return false
	}
}

// Stage is one completable milestone of a task. CompletedAt is set exactly
// when Completed is true, and ApprovedBy is only ever set on a completed stage.
type Stage struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ApprovedBy  string     `json:"approvedBy,omitempty"`
}

type Note struct {
	Content   string    `json:"content"`
	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssignedTo  string    `json:"assignedTo"`
	AssignedBy  string    `json:"assignedBy"`
	Priority    Priority  `json:"priority"`
	Status      Status    `json:"status"`
	DueDate     time.Time `json:"dueDate"`
	Stages      []Stage   `json:"stages"`
	Notes       []Note    `json:"notes"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Version     int64     `json:"version"`
}

func (t *Task) IsAssignedTo(userID string) bool {
	return t.AssignedTo == userID
}

// AllStagesCompleted reports whether every stage is completed. A task with no
// stages reports false.
func (t *Task) AllStagesCompleted() bool {
	if len(t.Stages) == 0 {
		return false
	}
	for _, s := range t.Stages {
		if !s.Completed {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of t for snapshots and in-memory stores. The copy
// shares no stage, note or completion time storage with t.
func (t *Task) Clone() *Task {
	c := *t
	c.Stages = slices.Clone(t.Stages)
	for i, st := range c.Stages {
		if st.CompletedAt != nil {
			at := *st.CompletedAt
			c.Stages[i].CompletedAt = &at
		}
	}
	c.Notes = slices.Clone(t.Notes)
	return &c
}
