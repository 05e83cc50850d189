package tasks

import "time"

// Task is a stored task. Marshalled as JSON it is the DTO returned by the API.
type Task struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	DueDate   *string   `json:"dueDate"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasDueDate reports whether the task has a deadline.
func (t Task) HasDueDate() bool { return t.DueDate != nil }

// NewTask holds the already-normalized fields of a task to create.
type NewTask struct {
	Title   string
	DueDate *string
}
