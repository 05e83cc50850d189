package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/s1natex/task-tracker/internal/client"
	"github.com/s1natex/task-tracker/internal/tasks"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true)
	activeFilter  = lipgloss.NewStyle().Bold(true).Underline(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	bannerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Padding(0, 1)
	hintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type inputMode int

const (
	modeList inputMode = iota
	modeAdd
	modeEdit
)

// RunTUI starts the interactive board. It loads the board first if it has
// not been loaded yet; a failed load shows up as the banner.
func RunTUI(ctx context.Context, board *client.Board) error {
	if !board.Loaded() {
		_ = board.Load(ctx)
	}
	program := tea.NewProgram(newModel(ctx, board), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := program.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

// model calls the board synchronously from Update; a Board is not safe for
// concurrent use.
type model struct {
	ctx    context.Context
	board  *client.Board
	filter client.Filter
	cursor int

	mode    inputMode
	input   string
	editing int64
	notice  string

	now func() time.Time
}

func newModel(ctx context.Context, board *client.Board) *model {
	return &model{
		ctx:    ctx,
		board:  board,
		filter: client.FilterAll,
		now:    time.Now,
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	if key.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.mode != modeList {
		m.updateInput(key)
		return m, nil
	}

	switch key.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case " ", "space", "x":
		if t, ok := m.selected(); ok {
			_, _ = m.board.Toggle(m.ctx, t.ID)
			m.clamp()
		}
	case "d":
		if t, ok := m.selected(); ok {
			_ = m.board.Remove(m.ctx, t.ID)
			m.clamp()
		}
	case "a":
		m.mode, m.input, m.notice = modeAdd, "", ""
	case "e":
		if t, ok := m.selected(); ok {
			m.mode, m.editing, m.notice = modeEdit, t.ID, ""
			m.input = t.Title
			if t.DueDate != nil {
				m.input += " | " + *t.DueDate
			}
		}
	case "tab":
		m.setFilter(m.filter.Next())
	case "1":
		m.setFilter(client.FilterAll)
	case "2":
		m.setFilter(client.FilterActive)
	case "3":
		m.setFilter(client.FilterCompleted)
	case "r":
		_ = m.board.Load(m.ctx)
		m.clamp()
	}
	return m, nil
}

func (m *model) updateInput(key tea.KeyMsg) {
	switch key.Type {
	case tea.KeyEsc:
		m.mode, m.input, m.notice = modeList, "", ""
	case tea.KeyEnter:
		m.submit()
	case tea.KeyBackspace:
		if r := []rune(m.input); len(r) > 0 {
			m.input = string(r[:len(r)-1])
		}
	case tea.KeySpace:
		m.input += " "
	case tea.KeyRunes:
		m.input += string(key.Runes)
	}
}

func (m *model) submit() {
	title, due := splitInput(m.input)
	var err error
	if m.mode == modeAdd {
		_, err = m.board.Add(m.ctx, title, due)
	} else {
		_, err = m.board.Edit(m.ctx, m.editing, title, due)
	}

	var verr *tasks.ValidationError
	if errors.As(err, &verr) {
		// stay in the prompt so the user can fix the title
		m.notice = verr.Message
		return
	}
	m.mode, m.input, m.notice = modeList, "", ""
	m.clamp()
}

func (m *model) visible() []tasks.Task { return m.board.Visible(m.filter) }

func (m *model) selected() (tasks.Task, bool) {
	list := m.visible()
	if m.cursor < 0 || m.cursor >= len(list) {
		return tasks.Task{}, false
	}
	return list[m.cursor], true
}

func (m *model) move(delta int) {
	m.cursor += delta
	m.clamp()
}

func (m *model) clamp() {
	n := len(m.visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m *model) setFilter(f client.Filter) {
	m.filter = f
	m.cursor = 0
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Task Tracker") + "\n\n")
	m.writeFilters(&b)

	counts := m.board.Counts()
	fmt.Fprintf(&b, "%d active, %d completed, %d total\n\n", counts.Active, counts.Completed, counts.Total)

	if !m.board.Loaded() && m.board.Banner() == "" {
		b.WriteString("Loading...\n\n")
	} else {
		m.writeRows(&b)
	}

	if banner := m.board.Banner(); banner != "" {
		b.WriteString(bannerStyle.Render(banner) + "\n\n")
	}
	m.writePrompt(&b)
	return b.String()
}

func (m *model) writeFilters(b *strings.Builder) {
	parts := make([]string, 0, len(client.Filters))
	for i, f := range client.Filters {
		label := fmt.Sprintf("%d:%s", i+1, f)
		if f == m.filter {
			label = activeFilter.Render("[" + label + "]")
		}
		parts = append(parts, label)
	}
	b.WriteString(strings.Join(parts, "  ") + "\n")
}

func (m *model) writeRows(b *strings.Builder) {
	list := m.visible()
	if len(list) == 0 {
		b.WriteString("  No tasks.\n\n")
		return
	}
	today := m.now()
	for i, t := range list {
		row := formatRow(t, today)
		switch {
		case i == m.cursor:
			row = selectedStyle.Render("> " + row)
		case t.Completed:
			row = "  " + doneStyle.Render(row)
		case client.Overdue(t, today):
			row = "  " + overdueStyle.Render(row)
		default:
			row = "  " + row
		}
		b.WriteString(row + "\n")
	}
	b.WriteString("\n")
}

func (m *model) writePrompt(b *strings.Builder) {
	switch m.mode {
	case modeAdd:
		b.WriteString("New task (title | YYYY-MM-DD): " + m.input + "_\n")
	case modeEdit:
		fmt.Fprintf(b, "Edit task %d (title | YYYY-MM-DD): %s_\n", m.editing, m.input)
	default:
		b.WriteString(hintStyle.Render("j/k move  space toggle  a add  e edit  d delete  tab filter  r reload  q quit") + "\n")
		return
	}
	if m.notice != "" {
		b.WriteString(overdueStyle.Render(m.notice) + "\n")
	}
	b.WriteString(hintStyle.Render("enter save  esc cancel") + "\n")
}
