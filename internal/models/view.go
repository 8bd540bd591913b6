package models

import "time"

// TaskView is a task with every identity reference resolved against the user
// directory. Unknown users keep their id and an empty name.
type TaskView struct {
	Id          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	AssignedTo  UserRef     `json:"assignedTo"`
	AssignedBy  UserRef     `json:"assignedBy"`
	Priority    Priority    `json:"priority"`
	Status      Status      `json:"status"`
	DueDate     time.Time   `json:"dueDate"`
	Stages      []StageView `json:"stages"`
	Notes       []NoteView  `json:"notes"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
	Version     int64       `json:"version"`
}

type StageView struct {
	Name        string     `json:"name"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	ApprovedBy  *UserRef   `json:"approvedBy,omitempty"`
}

type NoteView struct {
	Content   string    `json:"content"`
	CreatedBy UserRef   `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReferencedUsers returns the distinct user ids a task points at.
func (t *Task) ReferencedUsers() []string {
	seen := make(map[string]struct{})
	var ids []string
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	add(t.AssignedTo)
	add(t.AssignedBy)
	for _, s := range t.Stages {
		add(s.ApprovedBy)
	}
	for _, n := range t.Notes {
		add(n.CreatedBy)
	}
	return ids
}

// Resolve builds the display form of t using users keyed by id.
func (t *Task) Resolve(users map[string]User) TaskView {
	ref := func(id string) UserRef {
		if u, ok := users[id]; ok {
			return UserRef{Id: u.Id, Name: u.Name, Email: u.Email}
		}
		return UserRef{Id: id}
	}

	view := TaskView{
		Id:          t.Id,
		Title:       t.Title,
		Description: t.Description,
		AssignedTo:  ref(t.AssignedTo),
		AssignedBy:  ref(t.AssignedBy),
		Priority:    t.Priority,
		Status:      t.Status,
		DueDate:     t.DueDate,
		Stages:      make([]StageView, len(t.Stages)),
		Notes:       make([]NoteView, len(t.Notes)),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		Version:     t.Version,
	}
	for i, s := range t.Stages {
		sv := StageView{Name: s.Name, Completed: s.Completed, CompletedAt: s.CompletedAt}
		if s.ApprovedBy != "" {
			r := ref(s.ApprovedBy)
			sv.ApprovedBy = &r
		}
		view.Stages[i] = sv
	}
	for i, n := range t.Notes {
		view.Notes[i] = NoteView{Content: n.Content, CreatedBy: ref(n.CreatedBy), CreatedAt: n.CreatedAt}
	}
	return view
}
