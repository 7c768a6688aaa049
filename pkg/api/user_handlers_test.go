package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/auth"
)

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodPost, "/api/auth/users", "",
		`{"username":"Alice","email":"alice@example.com","password":"Password1","full_name":"Alice"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var got auth.User
	decodeJSON(t, rec, &got)
	assert.Equal(t, "alice", got.Username, "usernames are lowercased")
	assert.NotZero(t, got.ID)

	// The password hash never leaves the server.
	assert.NotContains(t, rec.Body.String(), "hashed_password")
	assert.NotContains(t, rec.Body.String(), "Password1")
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "short username", body: `{"username":"ab","email":"a@b.co","password":"Password1"}`},
		{name: "bad characters", body: `{"username":"has space","email":"a@b.co","password":"Password1"}`},
		{name: "bad email", body: `{"username":"alice","email":"nope","password":"Password1"}`},
		{name: "weak password", body: `{"username":"alice","email":"a@b.co","password":"password"}`},
		{name: "no digit", body: `{"username":"alice","email":"a@b.co","password":"Passwords"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/auth/users", "", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "alice", "Password1", false, false)

	rec := env.do(http.MethodPost, "/api/auth/users", "",
		`{"username":"alice","email":"other@example.com","password":"Password1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/auth/users", "",
		`{"username":"other","email":"alice@example.com","password":"Password1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListUsersRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "alice", "Password1", false, false)
	admin := env.addUser(t, "root", "Password1", true, false)

	rec := env.do(http.MethodGet, "/api/auth/users", env.bearerFor(t, user), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/auth/users", env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*auth.User
	decodeJSON(t, rec, &users)
	assert.Len(t, users, 2)
}

func TestListUsersPagination(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	for i := 0; i < 5; i++ {
		env.addUser(t, fmt.Sprintf("user%d", i), "Password1", false, false)
	}

	rec := env.do(http.MethodGet, "/api/auth/users?skip=2&limit=3", env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)

	var users []*auth.User
	decodeJSON(t, rec, &users)
	assert.Len(t, users, 3)
}

func TestToggleStatus(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	target := env.addUser(t, "alice", "Password1", false, false)

	path := fmt.Sprintf("/api/auth/users/%d/toggle-status", target.ID)
	rec := env.do(http.MethodPatch, path, env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)

	stored := env.users.users[target.ID]
	assert.True(t, stored.Disabled)
	assert.NotNil(t, stored.DisableDate)

	// Toggling back clears the disable date.
	rec = env.do(http.MethodPatch, path, env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	stored = env.users.users[target.ID]
	assert.False(t, stored.Disabled)
	assert.Nil(t, stored.DisableDate)
}

func TestAdminSelfProtection(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	token := env.bearerFor(t, admin)

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodPatch, fmt.Sprintf("/api/auth/users/%d/toggle-status", admin.ID)},
		{http.MethodPatch, fmt.Sprintf("/api/auth/users/%d/toggle-admin", admin.ID)},
		{http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", admin.ID)},
	}

	for _, p := range paths {
		rec := env.do(p.method, p.path, token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s should reject self-target", p.method, p.path)
	}
}

func TestAdminOperationsMissingTarget(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	token := env.bearerFor(t, admin)

	rec := env.do(http.MethodPatch, "/api/auth/users/999/toggle-status", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodDelete, "/api/auth/users/999", token, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestToggleAdmin(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	target := env.addUser(t, "alice", "Password1", false, false)

	rec := env.do(http.MethodPatch, fmt.Sprintf("/api/auth/users/%d/toggle-admin", target.ID),
		env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.users.users[target.ID].IsAdmin)
}

func TestDeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "root", "Password1", true, false)
	target := env.addUser(t, "alice", "Password1", false, false)

	rec := env.do(http.MethodDelete, fmt.Sprintf("/api/auth/users/%d", target.ID),
		env.bearerFor(t, admin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, env.users.users, target.ID)
}
