package twenty

import (
	"context"
	"sort"
	"time"
)

// ── tasks ───────────────────────────────────────────────────

type taskNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Markdown string `json:"markdown"`
	} `json:"bodyV2"`
	Status     string     `json:"status"`
	DueAt      *time.Time `json:"dueAt"`
	AssigneeID string     `json:"assigneeId"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (n taskNode) toTask() Task {
	return Task{
		ID:         n.ID,
		Title:      n.Title,
		Body:       n.Body.Markdown,
		Status:     n.Status,
		DueAt:      n.DueAt,
		AssigneeID: n.AssigneeID,
		CreatedAt:  n.CreatedAt,
		UpdatedAt:  n.UpdatedAt,
	}
}

const taskFields = `
	id
	title
	bodyV2 { markdown }
	status
	dueAt
	assigneeId
	createdAt
	updatedAt`

const createTaskDoc = `
mutation CreateTask($data: TaskCreateInput!) {
	createTask(data: $data) {` + taskFields + `
	}
}`

const getTaskDoc = `
query GetTask($id: UUID!) {
	task(filter: { id: { eq: $id } }) {` + taskFields + `
	}
}`

const updateTaskDoc = `
mutation UpdateTask($id: UUID!, $data: TaskUpdateInput!) {
	updateTask(id: $id, data: $data) {` + taskFields + `
	}
}`

const deleteTaskDoc = `
mutation DeleteTask($id: UUID!) {
	deleteTask(id: $id) { id }
}`

const listTasksDoc = `
query ListTasks($filter: TaskFilterInput, $limit: Int) {
	tasks(filter: $filter, first: $limit) {
		edges { node {` + taskFields + `
		} }
	}
}`

func (in TaskInput) toData() map[string]any {
	data := map[string]any{}
	if in.Title != "" {
		data["title"] = in.Title
	}
	if in.Body != "" {
		data["bodyV2"] = map[string]any{"markdown": in.Body}
	}
	if in.Status != "" {
		data["status"] = in.Status
	}
	if in.DueAt != nil {
		data["dueAt"] = in.DueAt.UTC().Format(time.RFC3339)
	}
	if in.AssigneeID != "" {
		data["assigneeId"] = in.AssigneeID
	}
	return data
}

// CreateTask creates a task; status defaults upstream to TODO.
func (c *Client) CreateTask(ctx context.Context, in TaskInput) (*Task, error) {
	var resp struct {
		CreateTask taskNode `json:"createTask"`
	}
	if err := c.run(ctx, createTaskDoc, map[string]any{"data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	t := resp.CreateTask.toTask()
	return &t, nil
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var resp struct {
		Task taskNode `json:"task"`
	}
	if err := c.run(ctx, getTaskDoc, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	t := resp.Task.toTask()
	return &t, nil
}

// UpdateTask applies non-empty input fields to an existing task.
func (c *Client) UpdateTask(ctx context.Context, id string, in TaskInput) (*Task, error) {
	var resp struct {
		UpdateTask taskNode `json:"updateTask"`
	}
	if err := c.run(ctx, updateTaskDoc, map[string]any{"id": id, "data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	t := resp.UpdateTask.toTask()
	return &t, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	var resp struct {
		DeleteTask struct {
			ID string `json:"id"`
		} `json:"deleteTask"`
	}
	return c.run(ctx, deleteTaskDoc, map[string]any{"id": id}, &resp)
}

// ListTasks returns tasks, optionally filtered to one status.
func (c *Client) ListTasks(ctx context.Context, status string, limit int) ([]Task, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp struct {
		Tasks struct {
			Edges []struct {
				Node taskNode `json:"node"`
			} `json:"edges"`
		} `json:"tasks"`
	}
	vars := map[string]any{"limit": limit}
	if status != "" {
		vars["filter"] = map[string]any{"status": map[string]any{"eq": status}}
	}
	if err := c.run(ctx, listTasksDoc, vars, &resp); err != nil {
		return nil, err
	}
	out := make([]Task, 0, len(resp.Tasks.Edges))
	for _, edge := range resp.Tasks.Edges {
		out = append(out, edge.Node.toTask())
	}
	return out, nil
}

// ── notes ───────────────────────────────────────────────────

type noteNode struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  struct {
		Markdown string `json:"markdown"`
	} `json:"bodyV2"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (n noteNode) toNote() Note {
	return Note{
		ID:        n.ID,
		Title:     n.Title,
		Body:      n.Body.Markdown,
		CreatedAt: n.CreatedAt,
		UpdatedAt: n.UpdatedAt,
	}
}

const noteFields = `
	id
	title
	bodyV2 { markdown }
	createdAt
	updatedAt`

const createNoteDoc = `
mutation CreateNote($data: NoteCreateInput!) {
	createNote(data: $data) {` + noteFields + `
	}
}`

const getNoteDoc = `
query GetNote($id: UUID!) {
	note(filter: { id: { eq: $id } }) {` + noteFields + `
	}
}`

const updateNoteDoc = `
mutation UpdateNote($id: UUID!, $data: NoteUpdateInput!) {
	updateNote(id: $id, data: $data) {` + noteFields + `
	}
}`

const deleteNoteDoc = `
mutation DeleteNote($id: UUID!) {
	deleteNote(id: $id) { id }
}`

const listNotesDoc = `
query ListNotes($limit: Int) {
	notes(first: $limit) {
		edges { node {` + noteFields + `
		} }
	}
}`

func (in NoteInput) toData() map[string]any {
	data := map[string]any{}
	if in.Title != "" {
		data["title"] = in.Title
	}
	if in.Body != "" {
		data["bodyV2"] = map[string]any{"markdown": in.Body}
	}
	return data
}

// CreateNote creates a note.
func (c *Client) CreateNote(ctx context.Context, in NoteInput) (*Note, error) {
	var resp struct {
		CreateNote noteNode `json:"createNote"`
	}
	if err := c.run(ctx, createNoteDoc, map[string]any{"data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	n := resp.CreateNote.toNote()
	return &n, nil
}

// GetNote fetches one note by id.
func (c *Client) GetNote(ctx context.Context, id string) (*Note, error) {
	var resp struct {
		Note noteNode `json:"note"`
	}
	if err := c.run(ctx, getNoteDoc, map[string]any{"id": id}, &resp); err != nil {
		return nil, err
	}
	n := resp.Note.toNote()
	return &n, nil
}

// UpdateNote applies non-empty input fields to an existing note.
func (c *Client) UpdateNote(ctx context.Context, id string, in NoteInput) (*Note, error) {
	var resp struct {
		UpdateNote noteNode `json:"updateNote"`
	}
	if err := c.run(ctx, updateNoteDoc, map[string]any{"id": id, "data": in.toData()}, &resp); err != nil {
		return nil, err
	}
	n := resp.UpdateNote.toNote()
	return &n, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, id string) error {
	var resp struct {
		DeleteNote struct {
			ID string `json:"id"`
		} `json:"deleteNote"`
	}
	return c.run(ctx, deleteNoteDoc, map[string]any{"id": id}, &resp)
}

// ListNotes returns recent notes.
func (c *Client) ListNotes(ctx context.Context, limit int) ([]Note, error) {
	if limit <= 0 {
		limit = 50
	}
	var resp struct {
		Notes struct {
			Edges []struct {
				Node noteNode `json:"node"`
			} `json:"edges"`
		} `json:"notes"`
	}
	if err := c.run(ctx, listNotesDoc, map[string]any{"limit": limit}, &resp); err != nil {
		return nil, err
	}
	out := make([]Note, 0, len(resp.Notes.Edges))
	for _, edge := range resp.Notes.Edges {
		out = append(out, edge.Node.toNote())
	}
	return out, nil
}

// ── activity timeline ───────────────────────────────────────

// ListActivities merges recent tasks and notes into one timeline, newest
// first. This is the one composite read in the adapter: two upstream
// queries, merged client-side.
func (c *Client) ListActivities(ctx context.Context, limit int) ([]Activity, error) {
	if limit <= 0 {
		limit = 50
	}

	tasks, err := c.ListTasks(ctx, "", limit)
	if err != nil {
		return nil, err
	}
	notes, err := c.ListNotes(ctx, limit)
	if err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(tasks)+len(notes))
	for _, t := range tasks {
		activities = append(activities, Activity{
			Kind:      "task",
			ID:        t.ID,
			Title:     t.Title,
			Detail:    t.Status,
			Timestamp: t.UpdatedAt,
		})
	}
	for _, n := range notes {
		activities = append(activities, Activity{
			Kind:      "note",
			ID:        n.ID,
			Title:     n.Title,
			Detail:    n.Body,
			Timestamp: n.UpdatedAt,
		})
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].Timestamp.After(activities[j].Timestamp)
	})
	if len(activities) > limit {
		activities = activities[:limit]
	}
	return activities, nil
}
