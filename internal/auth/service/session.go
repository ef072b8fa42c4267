package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"estate-portal/internal/common/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionStore выдаёт и проверяет bearer токены сессий.
type SessionStore interface {
	Issue(ctx context.Context, userID string) (string, error)
	Resolve(ctx context.Context, token string) (string, error)
	Revoke(ctx context.Context, token string) error
	// RevokeUser завершает все сессии пользователя (удаление, блокировка).
	RevokeUser(ctx context.Context, userID string) error
}

// NewSessionStore выбирает backend по конфигурации.
func NewSessionStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (SessionStore, error) {
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			return nil, fmt.Errorf("connect redis %s: %w", cfg.Redis.Addr, err)
		}
		log.Info("sessions stored in redis", zap.String("addr", cfg.Redis.Addr))
		return NewRedisStore(client, cfg.Session.TTL), nil
	default:
		return NewMemoryStore(cfg.Session.TTL), nil
	}
}

// ============================================================
// Memory Store
// ============================================================

type memorySession struct {
	userID  string
	expires time.Time
}

type MemoryStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	tokens map[string]memorySession
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		ttl:    ttl,
		now:    time.Now,
		tokens: make(map[string]memorySession),
	}
}

func (m *MemoryStore) Issue(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	token := uuid.NewString()
	m.tokens[token] = memorySession{userID: userID, expires: m.now().Add(m.ttl)}
	return token, nil
}

func (m *MemoryStore) Resolve(_ context.Context, token string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.tokens[token]
	if !ok {
		return "", ErrSessionNotFound
	}
	if !m.now().Before(s.expires) {
		delete(m.tokens, token)
		return "", ErrSessionNotFound
	}
	return s.userID, nil
}

func (m *MemoryStore) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, token)
	return nil
}

func (m *MemoryStore) RevokeUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for token, s := range m.tokens {
		if s.userID == userID {
			delete(m.tokens, token)
		}
	}
	return nil
}
