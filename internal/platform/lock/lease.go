// Package lock provides a time-bounded distributed lease backed by
// Redis. A lease carries an owner token so that release and renewal
// only ever act on the holder's own acquisition; an expired lease is
// reclaimed by the next acquirer via the key TTL.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

var (
	// ErrNotAcquired is returned when an unexpired lease is held elsewhere.
	ErrNotAcquired = errors.New("lease is held by another owner")
	// ErrNotHeld is returned when renewing a lease that no longer belongs
	// to the caller (expired and reclaimed, or already released).
	ErrNotHeld = errors.New("lease is no longer held")
)

// Compare the stored token before deleting or extending, so a slow
// holder cannot release a lease that was reclaimed after its TTL.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var renewScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// Lease is a held acquisition. Zero value is not usable; obtain one
// from Manager.Acquire.
type Lease struct {
	key       string
	token     string
	expiresAt time.Time
	m         *Manager
}

func (l *Lease) ExpiresAt() time.Time {
	return l.expiresAt
}

// Release deletes the lease if the caller still owns it. Releasing a
// lease that already expired is not an error.
func (l *Lease) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.m.client, []string{l.key}, l.token).Err()
}

// Renew extends the lease by the manager's TTL.
func (l *Lease) Renew(ctx context.Context) error {
	ok, err := renewScript.Run(ctx, l.m.client, []string{l.key}, l.token, l.m.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return ErrNotHeld
	}
	l.expiresAt = time.Now().Add(l.m.ttl)
	return nil
}

// Manager acquires leases under a common key prefix and TTL.
type Manager struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

func NewManager(client goredis.Cmdable, prefix string, ttl time.Duration) *Manager {
	return &Manager{client: client, prefix: prefix, ttl: ttl}
}

// Acquire attempts a test-and-set on the lease key. Returns
// ErrNotAcquired when an unexpired lease exists.
func (m *Manager) Acquire(ctx context.Context, id string) (*Lease, error) {
	key := m.prefix + id
	token := uuid.New().String()

	ok, err := m.client.SetNX(ctx, key, token, m.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAcquired
	}

	return &Lease{
		key:       key,
		token:     token,
		expiresAt: time.Now().Add(m.ttl),
		m:         m,
	}, nil
}
