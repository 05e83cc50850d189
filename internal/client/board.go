package client

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/s1natex/task-tracker/internal/tasks"
)

// Filter selects which tasks a board shows.
type Filter string

const (
	FilterAll       Filter = "all"
	FilterActive    Filter = "active"
	FilterCompleted Filter = "completed"
)

// Filters lists every filter in display order.
var Filters = []Filter{FilterAll, FilterActive, FilterCompleted}

func ParseFilter(s string) (Filter, error) {
	f := Filter(strings.ToLower(strings.TrimSpace(s)))
	if f == "" {
		return FilterAll, nil
	}
	if !slices.Contains(Filters, f) {
		return "", fmt.Errorf("unknown filter %q (want all, active or completed)", s)
	}
	return f, nil
}

// Next returns the filter after f, wrapping around.
func (f Filter) Next() Filter {
	i := slices.Index(Filters, f)
	return Filters[(i+1)%len(Filters)]
}

func (f Filter) match(t tasks.Task) bool {
	switch f {
	case FilterActive:
		return !t.Completed
	case FilterCompleted:
		return t.Completed
	default:
		return true
	}
}

// API is the subset of Client a Board needs.
type API interface {
	List(ctx context.Context) ([]tasks.Task, error)
	Create(ctx context.Context, title, dueDate string) (tasks.Task, error)
	Update(ctx context.Context, id int64, p Patch) (tasks.Task, error)
	Delete(ctx context.Context, id int64) (DeleteAck, error)
}

// Board mirrors the server's task list. After every successful call the
// mirror is re-sorted; a failed call records a banner message and leaves
// the mirror as it was. A Board is not safe for concurrent use.
type Board struct {
	api    API
	tasks  []tasks.Task
	banner string
	loaded bool
}

func NewBoard(api API) *Board {
	return &Board{api: api}
}

// Load replaces the mirror with the server's list.
func (b *Board) Load(ctx context.Context) error {
	list, err := b.api.List(ctx)
	if err != nil {
		b.banner = "Failed to fetch tasks: " + err.Error()
		return err
	}
	tasks.Sort(list)
	b.tasks = list
	b.loaded = true
	b.banner = ""
	return nil
}

// Add creates a task. A blank title is rejected locally with
// tasks.ErrTitleRequired and never sent.
func (b *Board) Add(ctx context.Context, title, dueDate string) (tasks.Task, error) {
	title, err := tasks.ValidateTitle(title)
	if err != nil {
		return tasks.Task{}, err
	}
	t, err := b.api.Create(ctx, title, dueDate)
	if err != nil {
		b.banner = "Error creating task: " + err.Error()
		return tasks.Task{}, err
	}
	b.tasks = append(b.tasks, t)
	tasks.Sort(b.tasks)
	b.banner = ""
	return t, nil
}

// Toggle flips the completion flag of task id.
func (b *Board) Toggle(ctx context.Context, id int64) (tasks.Task, error) {
	cur, ok := b.Get(id)
	if !ok {
		return tasks.Task{}, fmt.Errorf("task %d is not on the board", id)
	}
	completed := !cur.Completed
	return b.update(ctx, id, Patch{Completed: &completed})
}

// SetCompleted marks task id done or not done.
func (b *Board) SetCompleted(ctx context.Context, id int64, completed bool) (tasks.Task, error) {
	return b.update(ctx, id, Patch{Completed: &completed})
}

// Edit replaces the title and due date of task id. An empty dueDate clears
// it. A blank title is rejected locally.
func (b *Board) Edit(ctx context.Context, id int64, title, dueDate string) (tasks.Task, error) {
	title, err := tasks.ValidateTitle(title)
	if err != nil {
		return tasks.Task{}, err
	}
	p := Patch{Title: &title}
	p.SetDueDate(dueDate)
	return b.update(ctx, id, p)
}

// Update sends an arbitrary patch for task id.
func (b *Board) Update(ctx context.Context, id int64, p Patch) (tasks.Task, error) {
	return b.update(ctx, id, p)
}

func (b *Board) update(ctx context.Context, id int64, p Patch) (tasks.Task, error) {
	t, err := b.api.Update(ctx, id, p)
	if err != nil {
		b.banner = "Error updating task: " + err.Error()
		return tasks.Task{}, err
	}
	replaced := false
	for i := range b.tasks {
		if b.tasks[i].ID == id {
			b.tasks[i] = t
			replaced = true
			break
		}
	}
	if !replaced {
		b.tasks = append(b.tasks, t)
	}
	tasks.Sort(b.tasks)
	b.banner = ""
	return t, nil
}

// Remove deletes task id.
func (b *Board) Remove(ctx context.Context, id int64) error {
	if _, err := b.api.Delete(ctx, id); err != nil {
		b.banner = "Error deleting task: " + err.Error()
		return err
	}
	b.tasks = slices.DeleteFunc(b.tasks, func(t tasks.Task) bool { return t.ID == id })
	b.banner = ""
	return nil
}

// Get returns the mirrored task with the given id.
func (b *Board) Get(id int64) (tasks.Task, bool) {
	for _, t := range b.tasks {
		if t.ID == id {
			return t, true
		}
	}
	return tasks.Task{}, false
}

// Visible returns the mirrored tasks matching f, in display order.
func (b *Board) Visible(f Filter) []tasks.Task {
	out := make([]tasks.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		if f.match(t) {
			out = append(out, t)
		}
	}
	return out
}

// Counts summarizes the mirror.
type Counts struct {
	Active, Completed, Total int
}

func (b *Board) Counts() Counts {
	var c Counts
	for _, t := range b.tasks {
		if t.Completed {
			c.Completed++
		} else {
			c.Active++
		}
	}
	c.Total = len(b.tasks)
	return c
}

// Banner is the last request error, or "" after a success.
func (b *Board) Banner() string { return b.banner }

// Loaded reports whether a Load has succeeded.
func (b *Board) Loaded() bool { return b.loaded }

// Overdue reports whether t is active and due before today's UTC date.
func Overdue(t tasks.Task, today time.Time) bool {
	if t.Completed || t.DueDate == nil {
		return false
	}
	return *t.DueDate < today.UTC().Format("2006-01-02")
}
