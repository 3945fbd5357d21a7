package auth

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/event"
	"github.com/nodesight/nodesight/internal/store"
)

func newTestSessionStore(t *testing.T) *SessionStore {
	t.Helper()

	db, err := store.New(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := NewSessionStore(context.Background(), db)
	require.NoError(t, err)
	return s
}

func newTestManager(t *testing.T, s *SessionStore, ttl time.Duration) *SessionManager {
	t.Helper()
	m, err := NewSessionManager(context.Background(), s, event.NewBus(zap.NewNop()), ttl, zap.NewNop())
	require.NoError(t, err)
	return m
}

func testUser(role Role) User {
	return User{
		Subject:  "sub-1",
		Username: "budi",
		Email:    "budi@example.com",
		Role:     role,
		Groups:   []string{"netops"},
	}
}

func TestSessionManagerCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, newTestSessionStore(t), time.Hour)

	sess, err := m.Create(ctx, testUser(RoleMember))
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	got, ok := m.Get(ctx, sess.ID)
	require.True(t, ok, "created session not found")
	assert.Equal(t, "budi", got.User.Username)
	assert.Equal(t, RoleMember, got.User.Role)
	assert.Equal(t, 1, m.Count())
}

func TestSessionManagerDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionStore(t)
	m := newTestManager(t, s, time.Hour)

	sess, err := m.Create(ctx, testUser(RoleMember))
	require.NoError(t, err)

	m.Delete(ctx, sess.ID)

	_, ok := m.Get(ctx, sess.ID)
	assert.False(t, ok, "deleted session still resolvable")

	persisted, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, persisted, "deleted session still persisted")
}

func TestSessionManagerExpiredSessionIsAbsent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t, newTestSessionStore(t), -time.Minute)

	sess, err := m.Create(ctx, testUser(RoleMember))
	require.NoError(t, err)

	_, ok := m.Get(ctx, sess.ID)
	assert.False(t, ok, "expired session resolved")
	// The lazy expiry also evicts it.
	assert.Equal(t, 0, m.Count())
}

func TestSessionManagerRestoresPersistedSessions(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionStore(t)

	first := newTestManager(t, s, time.Hour)
	sess, err := first.Create(ctx, testUser(RoleAdmin))
	require.NoError(t, err)

	// A new manager over the same store simulates a restart.
	second := newTestManager(t, s, time.Hour)

	got, ok := second.Get(ctx, sess.ID)
	require.True(t, ok, "persisted session not restored")
	assert.True(t, got.User.IsAdmin(), "restored session lost the admin role")
}

func TestSessionManagerSkipsExpiredOnRestore(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionStore(t)

	expired := &Session{
		ID:        "stale",
		User:      testUser(RoleMember),
		CreatedAt: time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.Save(ctx, expired))

	m := newTestManager(t, s, time.Hour)
	assert.Equal(t, 0, m.Count(), "expired leftovers must not be restored")
}

func TestSessionManagerSweepPublishesExpiry(t *testing.T) {
	ctx := context.Background()
	s := newTestSessionStore(t)
	bus := event.NewBus(zap.NewNop())

	var expiredIDs []string
	bus.Subscribe(event.TopicSessionExpired, func(ctx context.Context, e event.Event) {
		expiredIDs = append(expiredIDs, e.Payload.(string))
	})

	m, err := NewSessionManager(ctx, s, bus, -time.Minute, zap.NewNop())
	require.NoError(t, err)
	sess, err := m.Create(ctx, testUser(RoleMember))
	require.NoError(t, err)

	m.sweep(ctx)

	assert.Equal(t, 0, m.Count())
	require.Len(t, expiredIDs, 1)
	assert.Equal(t, sess.ID, expiredIDs[0])

	persisted, err := s.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Nil(t, persisted, "swept session still persisted")
}

func TestRoleForGroups(t *testing.T) {
	tests := []struct {
		name       string
		groups     []string
		adminGroup string
		want       Role
	}{
		{"member of admin group", []string{"netops", "authentik Admins"}, "authentik Admins", RoleAdmin},
		{"no admin group", []string{"netops"}, "authentik Admins", RoleMember},
		{"no groups", nil, "authentik Admins", RoleMember},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RoleForGroups(tc.groups, tc.adminGroup))
		})
	}
}
