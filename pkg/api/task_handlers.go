package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/httputil"
	"github.com/taskforge/taskforge/pkg/observability"
)

// TaskHandlers serves task CRUD and statistics
type TaskHandlers struct {
	tasks  TaskStore
	server *Server
	logger *observability.Logger
}

// NewTaskHandlers creates the task handler group.
func NewTaskHandlers(tasks TaskStore, server *Server, logger *observability.Logger) *TaskHandlers {
	return &TaskHandlers{
		tasks:  tasks,
		server: server,
		logger: logger,
	}
}

// RegisterRoutes registers the task routes.
func (h *TaskHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/task/", h.listTasks).Methods("GET")
	router.HandleFunc("/api/task/", h.createTask).Methods("POST")
	router.HandleFunc("/api/task/all", h.listAllTasks).Methods("GET")
	router.HandleFunc("/api/task/stats/summary", h.stats).Methods("GET")
	router.HandleFunc("/api/task/{id:[0-9]+}", h.getTask).Methods("GET")
	router.HandleFunc("/api/task/{id:[0-9]+}", h.updateTask).Methods("PUT")
	router.HandleFunc("/api/task/{id:[0-9]+}", h.deleteTask).Methods("DELETE")
	router.HandleFunc("/api/task/{id:[0-9]+}/toggle", h.toggleTask).Methods("PATCH")
	router.HandleFunc("/api/task/{id:[0-9]+}/complete", h.completeTask).Methods("PATCH")
}

// loadTask fetches a task and enforces the ownership rule: owners and
// admins pass, anyone else gets 403, missing tasks get 404.
func (h *TaskHandlers) loadTask(w http.ResponseWriter, r *http.Request, user *auth.User) (*Task, bool) {
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return nil, false
	}

	task, err := h.tasks.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrTaskNotFound) {
			httputil.WriteNotFoundError(w, err.Error())
			return nil, false
		}
		h.logger.WithError(err).Error("failed to load task")
		httputil.WriteInternalError(w)
		return nil, false
	}

	if !auth.CanAccessTask(user, task.UserID) {
		httputil.WriteForbidden(w, "not authorized to access this task")
		return nil, false
	}
	return task, true
}

// listTasks handles GET /api/task/ and returns the caller's own tasks, or
// everyone's for admins
func (h *TaskHandlers) listTasks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}

	skip, limit := httputil.ParsePagination(r, 100, 1000)

	var tasks []*Task
	var err error
	if user.IsAdmin {
		tasks, err = h.tasks.ListAllTasks(r.Context(), skip, limit)
	} else {
		tasks, err = h.tasks.ListTasksByUser(r.Context(), user.ID, skip, limit)
	}
	if err != nil {
		h.logger.WithError(err).Error("failed to list tasks")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, tasks)
}

// listAllTasks handles GET /api/task/all (admin)
func (h *TaskHandlers) listAllTasks(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.server.CurrentAdmin(w, r); !ok {
		return
	}

	skip, limit := httputil.ParsePagination(r, 100, 1000)
	tasks, err := h.tasks.ListAllTasks(r.Context(), skip, limit)
	if err != nil {
		h.logger.WithError(err).Error("failed to list tasks")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, tasks)
}

// createTask handles POST /api/task/
func (h *TaskHandlers) createTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}

	var req TaskCreateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if err := ValidateTaskTitle(req.Title); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if err := ValidateTaskDescription(req.Description); err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	task := &Task{
		Title:       req.Title,
		Description: req.Description,
		UserID:      user.ID,
	}
	if err := h.tasks.CreateTask(r.Context(), task); err != nil {
		h.logger.WithError(err).Error("failed to create task")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteCreated(w, task)
}

// getTask handles GET /api/task/{id}
func (h *TaskHandlers) getTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	task, ok := h.loadTask(w, r, user)
	if !ok {
		return
	}
	httputil.WriteSuccess(w, task)
}

// updateTask handles PUT /api/task/{id}
func (h *TaskHandlers) updateTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	task, ok := h.loadTask(w, r, user)
	if !ok {
		return
	}

	var req TaskUpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Title != nil {
		if err := ValidateTaskTitle(*req.Title); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		task.Title = *req.Title
	}
	if req.Description != nil {
		if err := ValidateTaskDescription(*req.Description); err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
		task.Description = *req.Description
	}
	if req.Done != nil {
		task.Done = *req.Done
	}

	if err := h.tasks.UpdateTask(r.Context(), task); err != nil {
		h.logger.WithError(err).Error("failed to update task")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, task)
}

// deleteTask handles DELETE /api/task/{id}
func (h *TaskHandlers) deleteTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	task, ok := h.loadTask(w, r, user)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), task.ID); err != nil {
		h.logger.WithError(err).Error("failed to delete task")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteNoContent(w)
}

// toggleTask handles PATCH /api/task/{id}/toggle
func (h *TaskHandlers) toggleTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	task, ok := h.loadTask(w, r, user)
	if !ok {
		return
	}

	task.Done = !task.Done
	if err := h.tasks.UpdateTask(r.Context(), task); err != nil {
		h.logger.WithError(err).Error("failed to toggle task")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, task)
}

// completeTask handles PATCH /api/task/{id}/complete
func (h *TaskHandlers) completeTask(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}
	task, ok := h.loadTask(w, r, user)
	if !ok {
		return
	}

	task.Done = true
	if err := h.tasks.UpdateTask(r.Context(), task); err != nil {
		h.logger.WithError(err).Error("failed to complete task")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, task)
}

// stats handles GET /api/task/stats/summary, scoped per-user for regular
// users and system-wide for admins
func (h *TaskHandlers) stats(w http.ResponseWriter, r *http.Request) {
	user, ok := h.server.CurrentActiveUser(w, r)
	if !ok {
		return
	}

	scopeID := user.ID
	if user.IsAdmin {
		scopeID = 0
	}

	stats, err := h.tasks.Stats(r.Context(), scopeID)
	if err != nil {
		h.logger.WithError(err).Error("failed to aggregate task stats")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, stats)
}
