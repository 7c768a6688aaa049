package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/auth"
)

func (e *testEnv) addTask(t *testing.T, owner *auth.User, title string, done bool) *Task {
	t.Helper()
	task := &Task{Title: title, Done: done, UserID: owner.ID}
	require.NoError(t, e.tasks.CreateTask(context.Background(), task))
	if done {
		task.Done = true
		require.NoError(t, e.tasks.UpdateTask(context.Background(), task))
	}
	return task
}

func TestCreateTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)

	rec := env.do(http.MethodPost, "/api/task/", env.bearerFor(t, alice),
		`{"title":"write report","description":"quarterly numbers"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var task Task
	decodeJSON(t, rec, &task)
	assert.Equal(t, alice.ID, task.UserID)
	assert.False(t, task.Done)
}

func TestCreateTaskValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	token := env.bearerFor(t, alice)

	rec := env.do(http.MethodPost, "/api/task/", token, `{"title":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	longTitle := strings.Repeat("x", 201)
	rec = env.do(http.MethodPost, "/api/task/", token, `{"title":"`+longTitle+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	longDesc := strings.Repeat("x", 1001)
	rec = env.do(http.MethodPost, "/api/task/", token, `{"title":"ok","description":"`+longDesc+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListTasksScoping(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	bob := env.addUser(t, "bob", "Password1", false, false)
	admin := env.addUser(t, "root", "Password1", true, false)

	env.addTask(t, alice, "alice task", false)
	env.addTask(t, bob, "bob task", false)

	rec := env.do(http.MethodGet, "/api/task/", env.bearerFor(t, alice), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tasks []*Task
	decodeJSON(t, rec, &tasks)
	require.Len(t, tasks, 1)
	assert.Equal(t, "alice task", tasks[0].Title)

	// Admins see everything.
	rec = env.do(http.MethodGet, "/api/task/", env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &tasks)
	assert.Len(t, tasks, 2)
}

func TestListAllTasksRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)

	rec := env.do(http.MethodGet, "/api/task/all", env.bearerFor(t, alice), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTaskOwnership(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	bob := env.addUser(t, "bob", "Password1", false, false)
	admin := env.addUser(t, "root", "Password1", true, false)

	task := env.addTask(t, alice, "private", false)
	path := fmt.Sprintf("/api/task/%d", task.ID)

	// The owner reads it.
	rec := env.do(http.MethodGet, path, env.bearerFor(t, alice), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Another user gets 403.
	rec = env.do(http.MethodGet, path, env.bearerFor(t, bob), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// An admin reads any task.
	rec = env.do(http.MethodGet, path, env.bearerFor(t, admin), "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// Missing task is 404, not 403.
	rec = env.do(http.MethodGet, "/api/task/999", env.bearerFor(t, bob), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	task := env.addTask(t, alice, "old title", false)

	rec := env.do(http.MethodPut, fmt.Sprintf("/api/task/%d", task.ID), env.bearerFor(t, alice),
		`{"title":"new title","done":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Task
	decodeJSON(t, rec, &got)
	assert.Equal(t, "new title", got.Title)
	assert.True(t, got.Done)
}

func TestDeleteTaskReturns204(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	task := env.addTask(t, alice, "to delete", false)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/task/%d", task.ID), env.bearerFor(t, alice), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, env.tasks.tasks, task.ID)
}

func TestToggleAndCompleteTask(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	token := env.bearerFor(t, alice)
	task := env.addTask(t, alice, "work", false)

	togglePath := fmt.Sprintf("/api/task/%d/toggle", task.ID)
	rec := env.do(http.MethodPatch, togglePath, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.tasks.tasks[task.ID].Done)

	rec = env.do(http.MethodPatch, togglePath, token, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, env.tasks.tasks[task.ID].Done)

	// Complete is idempotent, not a toggle.
	completePath := fmt.Sprintf("/api/task/%d/complete", task.ID)
	for i := 0; i < 2; i++ {
		rec = env.do(http.MethodPatch, completePath, token, "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.tasks.tasks[task.ID].Done)
	}
}

func TestTaskStats(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addUser(t, "alice", "Password1", false, false)
	bob := env.addUser(t, "bob", "Password1", false, false)
	admin := env.addUser(t, "root", "Password1", true, false)

	env.addTask(t, alice, "done one", true)
	env.addTask(t, alice, "done two", true)
	env.addTask(t, alice, "open one", false)
	env.addTask(t, bob, "bob open", false)

	rec := env.do(http.MethodGet, "/api/task/stats/summary", env.bearerFor(t, alice), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats TaskStats
	decodeJSON(t, rec, &stats)
	assert.Equal(t, "user", stats.Scope)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 1, stats.Pending)
	assert.InDelta(t, 66.7, stats.CompletionRate, 0.01)

	// Admin stats cover all users.
	rec = env.do(http.MethodGet, "/api/task/stats/summary", env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeJSON(t, rec, &stats)
	assert.Equal(t, "all", stats.Scope)
	assert.Equal(t, 4, stats.Total)
}

func TestServiceInfo(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ServiceName)
}
