package tasks

import (
	"cmp"
	"slices"
	"strings"
)

// Compare orders tasks for display: active before completed, dated before
// undated, earlier due date first, then newest first. Ids break any
// remaining tie, newest first as well.
func Compare(a, b Task) int {
	if a.Completed != b.Completed {
		if a.Completed {
			return 1
		}
		return -1
	}

	switch {
	case a.HasDueDate() && !b.HasDueDate():
		return -1
	case !a.HasDueDate() && b.HasDueDate():
		return 1
	case a.HasDueDate() && b.HasDueDate():
		// YYYY-MM-DD sorts chronologically as text.
		if c := strings.Compare(*a.DueDate, *b.DueDate); c != 0 {
			return c
		}
	}

	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

// Sort orders list in place using Compare.
func Sort(list []Task) {
	slices.SortStableFunc(list, Compare)
}
