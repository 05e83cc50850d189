// Package ui renders task lists for the terminal: a plain listing for
// scripts and an interactive board.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/s1natex/task-tracker/internal/client"
	"github.com/s1natex/task-tracker/internal/tasks"
)

// WriteList prints one line per task in the order given.
func WriteList(w io.Writer, list []tasks.Task, today time.Time) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No tasks.")
		return err
	}
	for _, t := range list {
		if _, err := fmt.Fprintln(w, formatRow(t, today)); err != nil {
			return err
		}
	}
	return nil
}

func formatRow(t tasks.Task, today time.Time) string {
	check := " "
	if t.Completed {
		check = "x"
	}
	due := "-"
	if t.DueDate != nil {
		due = *t.DueDate
	}
	line := fmt.Sprintf("[%s] %4d  %-10s  %s", check, t.ID, due, t.Title)
	if client.Overdue(t, today) {
		line += "  (overdue)"
	}
	return line
}

// splitInput parses "title | YYYY-MM-DD". The due part is optional.
func splitInput(s string) (title, due string) {
	i := strings.LastIndex(s, "|")
	if i < 0 {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
}

// IsTTY returns true if w is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
