package tasks

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayout is the only accepted due date form.
const dateLayout = "2006-01-02"

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidationError is a client input error. Error returns the message sent
// back to the caller verbatim.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

var (
	ErrTitleRequired    = &ValidationError{Field: "title", Message: "Task title is required"}
	ErrInvalidDueDate   = &ValidationError{Field: "dueDate", Message: "Due date must be in YYYY-MM-DD format"}
	ErrInvalidCompleted = &ValidationError{Field: "completed", Message: "Completed must be a boolean value"}
	ErrInvalidID        = &ValidationError{Field: "id", Message: "Valid task ID is required"}
)

// ValidateTitle trims title and rejects it if nothing is left.
func ValidateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" {
		return "", ErrTitleRequired
	}
	return trimmed, nil
}

// NormalizeDueDate maps "" to no due date and otherwise requires a real
// calendar date in YYYY-MM-DD form.
func NormalizeDueDate(dueDate string) (*string, error) {
	if dueDate == "" {
		return nil, nil
	}
	if !dueDatePattern.MatchString(dueDate) {
		return nil, ErrInvalidDueDate
	}
	// time.Parse rejects days past the end of the month, e.g. 2024-02-30.
	if _, err := time.Parse(dateLayout, dueDate); err != nil {
		return nil, ErrInvalidDueDate
	}
	return &dueDate, nil
}

// ParseID parses a task id path segment.
func ParseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}

// ParseNewTask validates a decoded create body.
func ParseNewTask(body map[string]json.RawMessage) (NewTask, error) {
	raw, ok := body["title"]
	if !ok {
		return NewTask{}, ErrTitleRequired
	}
	title, err := decodeTitle(raw)
	if err != nil {
		return NewTask{}, err
	}

	var due *string
	if raw, ok := body["dueDate"]; ok {
		if due, err = decodeDueDate(raw); err != nil {
			return NewTask{}, err
		}
	}
	return NewTask{Title: title, DueDate: due}, nil
}

// ApplyPatch validates the supplied fields of a decoded update body and
// merges them onto current. Fields that are absent keep their value.
func ApplyPatch(current Task, body map[string]json.RawMessage) (Task, error) {
	next := current

	if raw, ok := body["title"]; ok {
		title, err := decodeTitle(raw)
		if err != nil {
			return Task{}, err
		}
		next.Title = title
	}

	if raw, ok := body["completed"]; ok {
		var completed bool
		if isNull(raw) || json.Unmarshal(raw, &completed) != nil {
			return Task{}, ErrInvalidCompleted
		}
		next.Completed = completed
	}

	if raw, ok := body["dueDate"]; ok {
		due, err := decodeDueDate(raw)
		if err != nil {
			return Task{}, err
		}
		next.DueDate = due
	}

	return next, nil
}

func decodeTitle(raw json.RawMessage) (string, error) {
	var title string
	if isNull(raw) || json.Unmarshal(raw, &title) != nil {
		return "", ErrTitleRequired
	}
	return ValidateTitle(title)
}

func decodeDueDate(raw json.RawMessage) (*string, error) {
	if isNull(raw) {
		return nil, nil
	}
	var due string
	if err := json.Unmarshal(raw, &due); err != nil {
		return nil, ErrInvalidDueDate
	}
	return NormalizeDueDate(due)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
