package tasks

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

var errInvalidJSON = errors.New("Request body must be valid JSON")

type errResponse struct {
	Error string `json:"error"`
}

type deleteResponse struct {
	Message string `json:"message"`
	ID      int64  `json:"id"`
}

func RegisterRoutes(r chi.Router, repo Repository, logger *slog.Logger) {
	r.Get("/api/tasks", listTasks(repo, logger))
	r.Post("/api/tasks", createTask(repo, logger))
	r.Patch("/api/tasks/{id}", updateTask(repo, logger))
	r.Delete("/api/tasks/{id}", deleteTask(repo, logger))
}

func listTasks(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.List(r.Context())
		if err != nil {
			storeFailure(w, r, logger, "list", err, "Failed to fetch tasks")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func createTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := decodeBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		in, err := ParseNewTask(body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		t, err := repo.Create(r.Context(), in)
		if err != nil {
			storeFailure(w, r, logger, "create", err, "Failed to create task")
			return
		}

		writeJSON(w, http.StatusCreated, t)
	}
}

func updateTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ParseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		body, err := decodeBody(w, r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		current, err := repo.Get(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			storeFailure(w, r, logger, "update", err, "Failed to update task")
			return
		}

		next, err := ApplyPatch(current, body)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		saved, err := repo.Update(r.Context(), next)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			storeFailure(w, r, logger, "update", err, "Failed to update task")
			return
		}

		writeJSON(w, http.StatusOK, saved)
	}
}

func deleteTask(repo Repository, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := ParseID(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		err = repo.Delete(r.Context(), id)
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			storeFailure(w, r, logger, "delete", err, "Failed to delete task")
			return
		}

		writeJSON(w, http.StatusOK, deleteResponse{Message: "Task deleted successfully", ID: id})
	}
}

// decodeBody reads a JSON object body. An empty body decodes as {}.
func decodeBody(w http.ResponseWriter, r *http.Request) (map[string]json.RawMessage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	var body map[string]json.RawMessage
	if err := dec.Decode(&body); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, errInvalidJSON
	}
	if body == nil || dec.More() {
		return nil, errInvalidJSON
	}
	return body, nil
}

func storeFailure(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error, msg string) {
	logger.Error("task_store_error",
		slog.String("op", op),
		slog.String("req_id", chimw.GetReqID(r.Context())),
		slog.String("error", err.Error()),
	)
	writeError(w, http.StatusInternalServerError, msg)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
