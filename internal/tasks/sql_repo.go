package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

func (d Dialect) driverName() (string, error) {
	switch d {
	case DialectSQLite:
		return "sqlite", nil
	case DialectPostgres:
		return "pgx", nil
	case DialectMySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", d)
}

var schemas = map[Dialect]string{
	DialectSQLite: `
CREATE TABLE IF NOT EXISTS tasks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	due_date TEXT,
	created_at TEXT NOT NULL
)`,
	DialectPostgres: `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL,
	completed SMALLINT NOT NULL DEFAULT 0,
	due_date TEXT,
	created_at TEXT NOT NULL
)`,
	DialectMySQL: `
CREATE TABLE IF NOT EXISTS tasks (
	id BIGINT PRIMARY KEY AUTO_INCREMENT,
	title TEXT NOT NULL,
	completed TINYINT NOT NULL DEFAULT 0,
	due_date VARCHAR(10) NULL,
	created_at VARCHAR(40) NOT NULL
)`,
}

const taskColumns = `id, title, completed, due_date, created_at`

// SQLRepo is a Repository over database/sql. Ordering is done in Go with
// Compare because NULL ordering differs between the supported dialects.
type SQLRepo struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	tracer  trace.Tracer
}

// OpenSQL opens dsn with the driver for dialect. An empty sqlite dsn opens a
// private in-memory database.
func OpenSQL(dialect Dialect, dsn string, opts ...RepoOption) (*SQLRepo, error) {
	driver, err := dialect.driverName()
	if err != nil {
		return nil, err
	}

	inMemory := dialect == DialectSQLite && (dsn == "" || strings.Contains(dsn, ":memory:"))
	if dialect == DialectSQLite && dsn == "" {
		dsn = ":memory:"
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if inMemory {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	}

	if dialect == DialectSQLite && !inMemory {
		if _, err := db.Exec(`
			PRAGMA journal_mode=WAL;
			PRAGMA synchronous=NORMAL;
			PRAGMA foreign_keys=ON;
		`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite pragmas: %w", err)
		}
	}

	c := newRepoConfig(opts)
	return &SQLRepo{
		db:      db,
		dialect: dialect,
		now:     c.now,
		tracer:  otel.Tracer("github.com/s1natex/task-tracker/internal/tasks"),
	}, nil
}

func (r *SQLRepo) Close() error { return r.db.Close() }

func (r *SQLRepo) PingContext(ctx context.Context) error { return r.db.PingContext(ctx) }

// ApplyMigrations ensures schema exists
func (r *SQLRepo) ApplyMigrations(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemas[r.dialect]); err != nil {
		return fmt.Errorf("migrate tasks: %w", err)
	}
	return nil
}

func (r *SQLRepo) Create(ctx context.Context, in NewTask) (_ Task, err error) {
	ctx, end := r.span(ctx, "create")
	defer func() { end(err) }()

	now := r.now().UTC()
	const insert = `INSERT INTO tasks (title, completed, due_date, created_at) VALUES (?, 0, ?, ?)`
	args := []any{in.Title, nullString(in.DueDate), now.Format(time.RFC3339Nano)}

	var id int64
	if r.dialect == DialectPostgres {
		err = r.db.QueryRowContext(ctx, r.rebind(insert+` RETURNING id`), args...).Scan(&id)
	} else {
		var res sql.Result
		if res, err = r.db.ExecContext(ctx, r.rebind(insert), args...); err == nil {
			id, err = res.LastInsertId()
		}
	}
	if err != nil {
		return Task{}, fmt.Errorf("insert task: %w", err)
	}

	return Task{
		ID:        id,
		Title:     in.Title,
		Completed: false,
		DueDate:   cloneString(in.DueDate),
		CreatedAt: now,
	}, nil
}

func (r *SQLRepo) Get(ctx context.Context, id int64) (_ Task, err error) {
	ctx, end := r.span(ctx, "get", attribute.Int64("task.id", id))
	defer func() { end(err) }()

	return r.get(ctx, id)
}

func (r *SQLRepo) get(ctx context.Context, id int64) (Task, error) {
	row := r.db.QueryRowContext(ctx, r.rebind(`SELECT `+taskColumns+` FROM tasks WHERE id = ?`), id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	if err != nil {
		return Task{}, fmt.Errorf("select task %d: %w", id, err)
	}
	return t, nil
}

func (r *SQLRepo) Update(ctx context.Context, t Task) (_ Task, err error) {
	ctx, end := r.span(ctx, "update", attribute.Int64("task.id", t.ID))
	defer func() { end(err) }()

	if _, err = r.db.ExecContext(ctx,
		r.rebind(`UPDATE tasks SET title = ?, completed = ?, due_date = ? WHERE id = ?`),
		t.Title, boolToInt(t.Completed), nullString(t.DueDate), t.ID,
	); err != nil {
		return Task{}, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	// MySQL reports zero affected rows when nothing changed, so the
	// re-select decides whether the row still exists.
	return r.get(ctx, t.ID)
}

func (r *SQLRepo) Delete(ctx context.Context, id int64) (err error) {
	ctx, end := r.span(ctx, "delete", attribute.Int64("task.id", id))
	defer func() { end(err) }()

	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM tasks WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLRepo) List(ctx context.Context) (_ []Task, err error) {
	ctx, end := r.span(ctx, "list")
	defer func() { end(err) }()

	rows, err := r.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}

	Sort(out)
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(s rowScanner) (Task, error) {
	var (
		t         Task
		completed int64
		due       sql.NullString
		created   string
	)
	if err := s.Scan(&t.ID, &t.Title, &completed, &due, &created); err != nil {
		return Task{}, err
	}
	t.Completed = completed != 0
	if due.Valid {
		v := due.String
		t.DueDate = &v
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Task{}, fmt.Errorf("task %d created_at %q: %w", t.ID, created, err)
	}
	t.CreatedAt = ts
	return t, nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (r *SQLRepo) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

func (r *SQLRepo) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	attrs = append(attrs,
		attribute.String("db.system", string(r.dialect)),
		attribute.String("db.operation", op),
	)
	ctx, span := r.tracer.Start(ctx, "tasks."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil && !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Helper to build DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
