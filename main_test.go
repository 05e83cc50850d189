package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/s1natex/task-tracker/internal/config"
	"github.com/s1natex/task-tracker/internal/middleware"
	"github.com/s1natex/task-tracker/internal/tasks"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestHealthEndpoint(t *testing.T) {
	r := newRouter(tasks.NewInMemoryRepo(), discardLogger(), routerOptions{})

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	expected := `{"status":"ok"}`
	if strings.TrimSpace(w.Body.String()) != expected {
		t.Errorf("expected body %s, got %s", expected, w.Body.String())
	}
}

type downRepo struct{ *tasks.InMemoryRepo }

func (downRepo) PingContext(context.Context) error { return errors.New("db down") }

func TestReadyz(t *testing.T) {
	ok := newRouter(tasks.NewInMemoryRepo(), discardLogger(), routerOptions{})
	w := httptest.NewRecorder()
	ok.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}

	down := newRouter(downRepo{tasks.NewInMemoryRepo()}, discardLogger(), routerOptions{})
	w = httptest.NewRecorder()
	down.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
}

func TestRouter_TasksAndMetrics(t *testing.T) {
	repo := tasks.NewInMemoryRepo()
	reg := prometheus.NewRegistry()
	reg.MustRegister(tasks.NewCollector(repo))
	r := newRouter(repo, discardLogger(), routerOptions{
		requestTimeout: time.Second,
		metrics:        middleware.NewMetrics(reg),
		gatherer:       reg,
	})

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"wire it"}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d (%s)", w.Code, w.Body.String())
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := w.Body.String()
	for _, want := range []string{
		`http_requests_total{method="POST",route="/api/tasks",status="201"} 1`,
		`tasks_stored{state="active"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected metrics to contain %q\n%s", want, body)
		}
	}
}

func TestRouter_CORSPreflight(t *testing.T) {
	r := newRouter(tasks.NewInMemoryRepo(), discardLogger(), routerOptions{corsOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/tasks/1", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example" {
		t.Fatalf("expected allowed origin header, got %q (status %d)", got, w.Code)
	}
}

func TestOpenRepository(t *testing.T) {
	ctx := context.Background()

	repo, closeFn, err := openRepository(ctx, config.StoreConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	closeFn()
	if _, ok := repo.(*tasks.InMemoryRepo); !ok {
		t.Fatalf("expected in-memory repo, got %T", repo)
	}

	path := t.TempDir() + "/data/tasks.db"
	repo, closeFn, err = openRepository(ctx, config.StoreConfig{Driver: "sqlite", DSN: path})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer closeFn()
	if _, err := repo.Create(ctx, tasks.NewTask{Title: "persisted"}); err != nil {
		t.Fatalf("create: %v", err)
	}
}
