package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/event"
)

// SessionManager tracks active sessions in a sync.Map, backed by the SQLite
// session store so logins survive restarts. Lifecycle changes are published
// on the event bus.
type SessionManager struct {
	sessions sync.Map
	store    *SessionStore
	bus      *event.Bus
	ttl      time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSessionManager creates a manager and restores persisted, unexpired
// sessions from the store. Expired leftovers are dropped on load.
func NewSessionManager(ctx context.Context, store *SessionStore, bus *event.Bus, ttl time.Duration, logger *zap.Logger) (*SessionManager, error) {
	m := &SessionManager{
		store:  store,
		bus:    bus,
		ttl:    ttl,
		logger: logger,
	}

	persisted, err := store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("restore sessions: %w", err)
	}
	now := time.Now()
	restored := 0
	for _, s := range persisted {
		if s.Expired(now) {
			continue
		}
		m.sessions.Store(s.ID, s)
		restored++
	}
	if restored > 0 {
		logger.Info("restored persisted sessions", zap.Int("count", restored))
	}
	return m, nil
}

// Create issues a fresh session for the user.
func (m *SessionManager) Create(ctx context.Context, user User) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:        uuid.NewString(),
		User:      user,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	m.sessions.Store(sess.ID, sess)

	m.bus.Publish(ctx, event.Event{
		Topic:   event.TopicSessionCreated,
		Source:  "auth",
		Time:    now,
		Payload: sess.User.Username,
	})
	return sess, nil
}

// Get returns an active session. Expired sessions are treated as absent and
// removed lazily.
func (m *SessionManager) Get(ctx context.Context, id string) (*Session, bool) {
	val, ok := m.sessions.Load(id)
	if !ok {
		return nil, false
	}
	sess := val.(*Session)
	if sess.Expired(time.Now()) {
		m.Delete(ctx, id)
		return nil, false
	}
	return sess, true
}

// Delete removes a session from memory and the store.
func (m *SessionManager) Delete(ctx context.Context, id string) {
	m.sessions.Delete(id)
	if err := m.store.Delete(ctx, id); err != nil {
		m.logger.Warn("delete persisted session", zap.String("session_id", id), zap.Error(err))
	}
}

// Count returns the number of sessions currently held in memory.
func (m *SessionManager) Count() int {
	count := 0
	m.sessions.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// StartSweeper launches the background loop that evicts expired sessions at
// the given interval.
func (m *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	ctx, m.cancel = context.WithCancel(ctx)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
}

// StopSweeper stops the background eviction loop.
func (m *SessionManager) StopSweeper() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}

func (m *SessionManager) sweep(ctx context.Context) {
	now := time.Now()

	m.sessions.Range(func(key, value any) bool {
		if value.(*Session).Expired(now) {
			m.sessions.Delete(key)
			m.bus.Publish(ctx, event.Event{
				Topic:   event.TopicSessionExpired,
				Source:  "auth",
				Time:    now,
				Payload: key.(string),
			})
		}
		return true
	})

	ids, err := m.store.DeleteExpired(ctx, now)
	if err != nil {
		m.logger.Warn("sweep persisted sessions", zap.Error(err))
		return
	}
	if len(ids) > 0 {
		m.logger.Debug("swept expired sessions", zap.Int("count", len(ids)))
	}
}
