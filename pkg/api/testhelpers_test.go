package api

import (
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/observability"
)

// memUserStore is an in-memory UserStore for handler tests
type memUserStore struct {
	users  map[int64]*auth.User
	nextID int64

	// findErr, when set, is returned by FindByUsername to simulate a store
	// outage.
	findErr error
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[int64]*auth.User), nextID: 1}
}

func (s *memUserStore) CreateUser(_ context.Context, user *auth.User) error {
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return ErrDuplicateUsername
		}
		if existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	user.ID = s.nextID
	s.nextID++
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserStore) GetUserByID(_ context.Context, id int64) (*auth.User, error) {
	if u, ok := s.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	for _, u := range s.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) GetUserByEmail(_ context.Context, email string) (*auth.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, auth.ErrUserNotFound
}

func (s *memUserStore) ListUsers(_ context.Context, skip, limit int) ([]*auth.User, error) {
	ids := make([]int64, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	users := make([]*auth.User, 0)
	for i, id := range ids {
		if i < skip {
			continue
		}
		if len(users) >= limit {
			break
		}
		clone := *s.users[id]
		users = append(users, &clone)
	}
	return users, nil
}

func (s *memUserStore) UpdateUser(_ context.Context, user *auth.User) error {
	if _, ok := s.users[user.ID]; !ok {
		return auth.ErrUserNotFound
	}
	for _, existing := range s.users {
		if existing.ID != user.ID && existing.Email == user.Email {
			return ErrDuplicateEmail
		}
	}
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *memUserStore) UpdateLastLogin(_ context.Context, id int64, at time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func (s *memUserStore) DeleteUser(_ context.Context, id int64) error {
	if _, ok := s.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(s.users, id)
	return nil
}

// memTaskStore is an in-memory TaskStore for handler tests
type memTaskStore struct {
	tasks  map[int64]*Task
	nextID int64
}

func newMemTaskStore() *memTaskStore {
	return &memTaskStore{tasks: make(map[int64]*Task), nextID: 1}
}

func (s *memTaskStore) CreateTask(_ context.Context, task *Task) error {
	task.ID = s.nextID
	s.nextID++
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

func (s *memTaskStore) GetTask(_ context.Context, id int64) (*Task, error) {
	if t, ok := s.tasks[id]; ok {
		clone := *t
		return &clone, nil
	}
	return nil, ErrTaskNotFound
}

func (s *memTaskStore) list(filter func(*Task) bool, skip, limit int) []*Task {
	ids := make([]int64, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })

	tasks := make([]*Task, 0)
	matched := 0
	for _, id := range ids {
		t := s.tasks[id]
		if !filter(t) {
			continue
		}
		matched++
		if matched <= skip {
			continue
		}
		if len(tasks) >= limit {
			break
		}
		clone := *t
		tasks = append(tasks, &clone)
	}
	return tasks
}

func (s *memTaskStore) ListTasksByUser(_ context.Context, userID int64, skip, limit int) ([]*Task, error) {
	return s.list(func(t *Task) bool { return t.UserID == userID }, skip, limit), nil
}

func (s *memTaskStore) ListAllTasks(_ context.Context, skip, limit int) ([]*Task, error) {
	return s.list(func(*Task) bool { return true }, skip, limit), nil
}

func (s *memTaskStore) UpdateTask(_ context.Context, task *Task) error {
	if _, ok := s.tasks[task.ID]; !ok {
		return ErrTaskNotFound
	}
	task.UpdatedAt = time.Now().UTC()
	clone := *task
	s.tasks[task.ID] = &clone
	return nil
}

func (s *memTaskStore) DeleteTask(_ context.Context, id int64) error {
	if _, ok := s.tasks[id]; !ok {
		return ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *memTaskStore) Stats(_ context.Context, userID int64) (*TaskStats, error) {
	stats := &TaskStats{Scope: "all"}
	if userID > 0 {
		stats.Scope = "user"
	}
	for _, t := range s.tasks {
		if userID > 0 && t.UserID != userID {
			continue
		}
		stats.Total++
		if t.Done {
			stats.Completed++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	if stats.Total > 0 {
		stats.CompletionRate = math.Round(float64(stats.Completed)/float64(stats.Total)*1000) / 10
	}
	return stats, nil
}

// testEnv bundles the server and its fakes
type testEnv struct {
	server *Server
	users  *memUserStore
	tasks  *memTaskStore
	codec  *auth.TokenCodec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	codec, err := auth.NewTokenCodec("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)

	users := newMemUserStore()
	tasks := newMemTaskStore()
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)

	server := NewServer(ServerConfig{
		Users:        users,
		Tasks:        tasks,
		Resolver:     auth.NewResolver(codec, users),
		TokenCodec:   codec,
		CookieSecure: true,
		Logger:       logger,
	})

	return &testEnv{server: server, users: users, tasks: tasks, codec: codec}
}

// addUser registers a user directly in the store with the given password.
func (e *testEnv) addUser(t *testing.T, username, password string, isAdmin, disabled bool) *auth.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)

	user := &auth.User{
		Username:       username,
		Email:          username + "@example.com",
		HashedPassword: hash,
		IsAdmin:        isAdmin,
		Disabled:       disabled,
		CreationDate:   time.Now().UTC(),
	}
	require.NoError(t, e.users.CreateUser(context.Background(), user))
	return user
}

// bearerFor issues a token for the user.
func (e *testEnv) bearerFor(t *testing.T, user *auth.User) string {
	t.Helper()
	token, err := e.codec.Issue(user.Username, user.ID)
	require.NoError(t, err)
	return token
}

// do runs a request through the server and returns the recorder.
func (e *testEnv) do(method, path, token string, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

// doForm posts form-encoded credentials.
func (e *testEnv) doForm(path string, form string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	e.server.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest))
}
