// Command taskctl is a terminal client for the task API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/s1natex/task-tracker/internal/client"
	"github.com/s1natex/task-tracker/internal/logging"
	"github.com/s1natex/task-tracker/internal/tasks"
	"github.com/s1natex/task-tracker/internal/ui"
)

const defaultServer = "http://localhost:8080"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		os.Exit(1)
	}
}

type app struct {
	api    *client.Client
	logger *slog.Logger
	out    io.Writer
	now    func() time.Time
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	fs := flag.NewFlagSet("taskctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printUsage(fs, stderr) }

	server := defaultServer
	if v := getenv("TASKS_SERVER"); v != "" {
		server = v
	}
	fs.StringVar(&server, "server", server, "API base URL (env TASKS_SERVER)")
	level := fs.String("log-level", "info", "Log level (debug|info|warn|error)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := logging.NewConsole(stderr, *level, "taskctl")
	a := &app{
		api:    client.New(server),
		logger: logger,
		out:    stdout,
		now:    time.Now,
	}
	logger.Debug("using server", "url", server)

	rest := fs.Args()
	if len(rest) == 0 {
		printUsage(fs, stderr)
		return errors.New("missing command")
	}

	var err error
	switch cmd, cmdArgs := rest[0], rest[1:]; cmd {
	case "ls", "list":
		err = a.list(ctx, cmdArgs)
	case "add":
		err = a.add(ctx, cmdArgs)
	case "done":
		err = a.setCompleted(ctx, cmdArgs, true)
	case "undo":
		err = a.setCompleted(ctx, cmdArgs, false)
	case "edit":
		err = a.edit(ctx, cmdArgs)
	case "rm", "delete":
		err = a.remove(ctx, cmdArgs)
	case "tui":
		err = a.tui(ctx)
	case "help":
		printUsage(fs, stdout)
		return nil
	default:
		printUsage(fs, stderr)
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil && !errors.Is(err, flag.ErrHelp) {
		logger.Error(err.Error())
	}
	return err
}

func (a *app) list(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskctl ls", flag.ContinueOnError)
	filterFlag := fs.String("filter", "all", "Which tasks to show (all|active|completed)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	filter, err := client.ParseFilter(*filterFlag)
	if err != nil {
		return err
	}

	board := client.NewBoard(a.api)
	if err := board.Load(ctx); err != nil {
		return errors.New(board.Banner())
	}
	if err := ui.WriteList(a.out, board.Visible(filter), a.now()); err != nil {
		return err
	}
	c := board.Counts()
	_, err = fmt.Fprintf(a.out, "\n%d active, %d completed\n", c.Active, c.Completed)
	return err
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskctl add", flag.ContinueOnError)
	due := fs.String("due", "", "Due date (YYYY-MM-DD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	title, err := tasks.ValidateTitle(strings.Join(fs.Args(), " "))
	if err != nil {
		return err
	}
	t, err := a.api.Create(ctx, title, *due)
	if err != nil {
		return fmt.Errorf("Error creating task: %w", err)
	}
	a.logger.Debug("task created", "id", t.ID)
	return ui.WriteList(a.out, []tasks.Task{t}, a.now())
}

func (a *app) setCompleted(ctx context.Context, args []string, completed bool) error {
	if len(args) != 1 {
		return errors.New("expected exactly one task ID")
	}
	id, err := tasks.ParseID(args[0])
	if err != nil {
		return err
	}
	t, err := a.api.Update(ctx, id, client.Patch{Completed: &completed})
	if err != nil {
		return fmt.Errorf("Error updating task: %w", err)
	}
	return ui.WriteList(a.out, []tasks.Task{t}, a.now())
}

func (a *app) edit(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("taskctl edit", flag.ContinueOnError)
	title := fs.String("title", "", "New title")
	due := fs.String("due", "", "New due date (YYYY-MM-DD)")
	clearDue := fs.Bool("clear-due", false, "Remove the due date")

	rawID, rest := splitLeadingArg(args)
	if err := fs.Parse(rest); err != nil {
		return err
	}
	if rawID == "" && fs.NArg() > 0 {
		rawID = fs.Arg(0)
	}
	id, err := tasks.ParseID(rawID)
	if err != nil {
		return err
	}

	var p client.Patch
	changed := false
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "title":
			p.Title = title
		case "due":
			p.SetDueDate(*due)
		}
		changed = true
	})
	if *clearDue {
		if *due != "" {
			return errors.New("-due and -clear-due are mutually exclusive")
		}
		p.SetDueDate("")
	}
	if !changed {
		return errors.New("nothing to change: pass -title, -due or -clear-due")
	}
	if p.Title != nil {
		v, err := tasks.ValidateTitle(*p.Title)
		if err != nil {
			return err
		}
		p.Title = &v
	}

	t, err := a.api.Update(ctx, id, p)
	if err != nil {
		return fmt.Errorf("Error updating task: %w", err)
	}
	return ui.WriteList(a.out, []tasks.Task{t}, a.now())
}

func (a *app) remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one task ID")
	}
	id, err := tasks.ParseID(args[0])
	if err != nil {
		return err
	}
	ack, err := a.api.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("Error deleting task: %w", err)
	}
	_, err = fmt.Fprintf(a.out, "%s (id %d)\n", ack.Message, ack.ID)
	return err
}

func (a *app) tui(ctx context.Context) error {
	if !ui.IsTTY(a.out) {
		return errors.New("tui requires a TTY")
	}
	return ui.RunTUI(ctx, client.NewBoard(a.api))
}

// splitLeadingArg lets "edit 3 -title x" put the ID before the flags.
func splitLeadingArg(args []string) (string, []string) {
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		return args[0], args[1:]
	}
	return "", args
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintln(w, "Usage: taskctl [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  ls [-filter all|active|completed]   List tasks")
	fmt.Fprintln(w, "  add [-due YYYY-MM-DD] TITLE...      Create a task")
	fmt.Fprintln(w, "  done ID                             Mark a task completed")
	fmt.Fprintln(w, "  undo ID                             Mark a task active")
	fmt.Fprintln(w, "  edit ID [-title T] [-due D|-clear-due]")
	fmt.Fprintln(w, "                                      Change a task")
	fmt.Fprintln(w, "  rm ID                               Delete a task")
	fmt.Fprintln(w, "  tui                                 Interactive board")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
