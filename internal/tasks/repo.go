package tasks

import (
	"context"
	"errors"
	"sync"
	"time"
)

var ErrNotFound = errors.New("task not found")

// Repository stores tasks. Implementations assign ids and creation times;
// ids are never reused after a delete.
type Repository interface {
	Create(ctx context.Context, in NewTask) (Task, error)
	Get(ctx context.Context, id int64) (Task, error)
	// Update rewrites every mutable column of t.
	Update(ctx context.Context, t Task) (Task, error)
	Delete(ctx context.Context, id int64) error
	// List returns every task ordered by Compare.
	List(ctx context.Context) ([]Task, error)
	PingContext(ctx context.Context) error
}

type repoConfig struct {
	now func() time.Time
}

// RepoOption configures a repository.
type RepoOption func(*repoConfig)

// WithClock overrides the clock used to stamp CreatedAt.
func WithClock(now func() time.Time) RepoOption {
	return func(c *repoConfig) { c.now = now }
}

func newRepoConfig(opts []RepoOption) repoConfig {
	c := repoConfig{now: time.Now}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[int64]Task
	now   func() time.Time
}

func NewInMemoryRepo(opts ...RepoOption) *InMemoryRepo {
	c := newRepoConfig(opts)
	return &InMemoryRepo{
		store: make(map[int64]Task),
		now:   c.now,
	}
}

func (r *InMemoryRepo) Create(_ context.Context, in NewTask) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t := Task{
		ID:        r.seq,
		Title:     in.Title,
		Completed: false,
		DueDate:   cloneString(in.DueDate),
		CreatedAt: r.now().UTC(),
	}
	r.store[t.ID] = t
	return cloneTask(t), nil
}

func (r *InMemoryRepo) Get(_ context.Context, id int64) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return cloneTask(t), nil
}

func (r *InMemoryRepo) Update(_ context.Context, t Task) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.store[t.ID]
	if !ok {
		return Task{}, ErrNotFound
	}
	cur.Title = t.Title
	cur.Completed = t.Completed
	cur.DueDate = cloneString(t.DueDate)
	r.store[t.ID] = cur
	return cloneTask(cur), nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (r *InMemoryRepo) List(_ context.Context) ([]Task, error) {
	r.mu.Lock()
	out := make([]Task, 0, len(r.store))
	for _, t := range r.store {
		out = append(out, cloneTask(t))
	}
	r.mu.Unlock()

	Sort(out)
	return out, nil
}

func (r *InMemoryRepo) PingContext(ctx context.Context) error { return ctx.Err() }

// stored tasks must not share DueDate pointers with callers
func cloneTask(t Task) Task {
	t.DueDate = cloneString(t.DueDate)
	return t
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
