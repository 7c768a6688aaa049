package admin

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskforge/taskforge/pkg/api"
	"github.com/taskforge/taskforge/pkg/auth"
	"github.com/taskforge/taskforge/pkg/config"
	"github.com/taskforge/taskforge/pkg/observability"
)

// fakeUserStore implements just enough of api.UserStore for bootstrap
type fakeUserStore struct {
	byName map[string]*auth.User
	nextID int64
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byName: make(map[string]*auth.User), nextID: 1}
}

func (s *fakeUserStore) CreateUser(_ context.Context, user *auth.User) error {
	user.ID = s.nextID
	s.nextID++
	clone := *user
	s.byName[user.Username] = &clone
	return nil
}

func (s *fakeUserStore) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	if u, ok := s.byName[username]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, auth.ErrUserNotFound
}

func (s *fakeUserStore) UpdateUser(_ context.Context, user *auth.User) error {
	clone := *user
	s.byName[user.Username] = &clone
	return nil
}

func (s *fakeUserStore) GetUserByID(context.Context, int64) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}
func (s *fakeUserStore) GetUserByEmail(context.Context, string) (*auth.User, error) {
	return nil, auth.ErrUserNotFound
}
func (s *fakeUserStore) ListUsers(context.Context, int, int) ([]*auth.User, error) { return nil, nil }
func (s *fakeUserStore) UpdateLastLogin(context.Context, int64, time.Time) error   { return nil }
func (s *fakeUserStore) DeleteUser(context.Context, int64) error                   { return nil }

var _ api.UserStore = (*fakeUserStore)(nil)

func testLogger() *observability.Logger {
	return observability.NewLogger(observability.ErrorLevel, io.Discard)
}

func baseConfig() config.AdminConfig {
	return config.AdminConfig{
		Username: "admin",
		Password: "Bootstrap1",
		Email:    "admin@example.com",
		FullName: "Administrator",
	}
}

func TestBootstrapCreatesAdmin(t *testing.T) {
	store := newFakeUserStore()

	require.NoError(t, Bootstrap(context.Background(), store, baseConfig(), testLogger()))

	admin := store.byName["admin"]
	require.NotNil(t, admin)
	assert.True(t, admin.IsAdmin)
	assert.True(t, auth.VerifyPassword("Bootstrap1", admin.HashedPassword))
}

func TestBootstrapFatalWithoutPassword(t *testing.T) {
	store := newFakeUserStore()
	cfg := baseConfig()
	cfg.Password = ""

	err := Bootstrap(context.Background(), store, cfg, testLogger())
	assert.ErrorIs(t, err, ErrNoAdminPassword)
}

func TestBootstrapIdempotent(t *testing.T) {
	store := newFakeUserStore()
	cfg := baseConfig()

	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))
	first := *store.byName["admin"]

	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))
	second := *store.byName["admin"]

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.HashedPassword, second.HashedPassword, "rerun must not rehash a matching password")
}

func TestBootstrapRehashesRotatedPassword(t *testing.T) {
	store := newFakeUserStore()
	cfg := baseConfig()
	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))

	// A rotated configured password takes effect on the next boot without
	// any extra operator action.
	cfg.Password = "Changed00"
	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))

	assert.True(t, auth.VerifyPassword("Changed00", store.byName["admin"].HashedPassword))
	assert.False(t, auth.VerifyPassword("Bootstrap1", store.byName["admin"].HashedPassword))
}

func TestBootstrapRestoresAdminRole(t *testing.T) {
	store := newFakeUserStore()
	cfg := baseConfig()
	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))

	store.byName["admin"].IsAdmin = false

	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))
	assert.True(t, store.byName["admin"].IsAdmin)
}

func TestBootstrapReenablesDisabledAdmin(t *testing.T) {
	store := newFakeUserStore()
	cfg := baseConfig()
	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))

	now := time.Now()
	store.byName["admin"].Disabled = true
	store.byName["admin"].DisableDate = &now

	require.NoError(t, Bootstrap(context.Background(), store, cfg, testLogger()))
	assert.False(t, store.byName["admin"].Disabled)
	assert.Nil(t, store.byName["admin"].DisableDate)
}
