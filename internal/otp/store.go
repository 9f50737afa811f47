package otp

import (
	"context"
	"sync"
	"time"

	"rath-service/internal/contact"
	rredis "rath-service/pkg/redis"
)

// ConsumeResult is the outcome of Store.Consume.
type ConsumeResult int

const (
	Missing ConsumeResult = iota
	Mismatch
	Matched
)

// Store keeps at most one live code per contact. Consume must compare and
// delete atomically.
type Store interface {
	Put(ctx context.Context, c contact.Contact, code string, ttl time.Duration) error
	Consume(ctx context.Context, c contact.Contact, code string) (ConsumeResult, error)
}

// ---- in-memory ----

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is a Store for single-instance deployments and tests.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]entry
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]entry), now: time.Now}
}

func (m *MemoryStore) Put(_ context.Context, c contact.Contact, code string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[c.Key()] = entry{code: code, expiresAt: m.now().Add(ttl)}
	return nil
}

func (m *MemoryStore) Consume(_ context.Context, c contact.Contact, code string) (ConsumeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.codes[c.Key()]
	if !ok {
		return Missing, nil
	}
	if !m.now().Before(e.expiresAt) {
		delete(m.codes, c.Key())
		return Missing, nil
	}
	if e.code != code {
		return Mismatch, nil
	}
	delete(m.codes, c.Key())
	return Matched, nil
}

// ---- redis ----

// RedisStore keeps codes in Redis with a native TTL.
type RedisStore struct {
	client *rredis.Client
}

func NewRedisStore(client *rredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Put(ctx context.Context, c contact.Contact, code string, ttl time.Duration) error {
	return r.client.PutOTP(ctx, c.Key(), code, ttl)
}

func (r *RedisStore) Consume(ctx context.Context, c contact.Contact, code string) (ConsumeResult, error) {
	res, err := r.client.ConsumeOTP(ctx, c.Key(), code)
	if err != nil {
		return Missing, err
	}
	switch res {
	case rredis.OTPMatched:
		return Matched, nil
	case rredis.OTPMismatch:
		return Mismatch, nil
	default:
		return Missing, nil
	}
}
