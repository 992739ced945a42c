package calls

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "call:"

// RedisRegistry backs the call registry with Redis so records survive a
// process restart and are visible to operational tooling.
//
// Write ordering: a single orchestrator process owns all writes for a call,
// so per-key in-process locks are what serialize transitions; Redis adds
// durability, not coordination. Terminal records expire after TerminalTTL.
type RedisRegistry struct {
	rdb *redis.Client

	// TerminalTTL bounds how long ended/failed records are retained.
	TerminalTTL time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewRedisRegistry(rdb *redis.Client) *RedisRegistry {
	return &RedisRegistry{
		rdb:         rdb,
		TerminalTTL: 24 * time.Hour,
		locks:       map[string]*sync.Mutex{},
	}
}

func (r *RedisRegistry) keyLock(roomName string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[roomName]
	if !ok {
		l = &sync.Mutex{}
		r.locks[roomName] = l
	}
	return l
}

func (r *RedisRegistry) set(ctx context.Context, c Call) error {
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("calls: marshal call record: %w", err)
	}
	var ttl time.Duration
	if c.Terminal() {
		ttl = r.TerminalTTL
	}
	return r.rdb.Set(ctx, redisKeyPrefix+c.RoomName, b, ttl).Err()
}

func (r *RedisRegistry) Upsert(ctx context.Context, c Call) error {
	l := r.keyLock(c.RoomName)
	l.Lock()
	defer l.Unlock()
	return r.set(ctx, c)
}

func (r *RedisRegistry) Get(ctx context.Context, roomName string) (Call, bool, error) {
	b, err := r.rdb.Get(ctx, redisKeyPrefix+roomName).Bytes()
	if errors.Is(err, redis.Nil) {
		return Call{}, false, nil
	}
	if err != nil {
		return Call{}, false, fmt.Errorf("calls: redis get: %w", err)
	}
	var c Call
	if err := json.Unmarshal(b, &c); err != nil {
		return Call{}, false, fmt.Errorf("calls: decode call record: %w", err)
	}
	return c, true, nil
}

func (r *RedisRegistry) Update(ctx context.Context, roomName string, fn func(Call) (Call, error)) (Call, error) {
	l := r.keyLock(roomName)
	l.Lock()
	defer l.Unlock()

	cur, ok, err := r.Get(ctx, roomName)
	if err != nil {
		return Call{}, err
	}
	if !ok {
		return Call{}, ErrNotFound
	}
	next, err := fn(cur)
	if err != nil {
		return cur, err
	}
	if err := r.set(ctx, next); err != nil {
		return cur, err
	}
	return next, nil
}

func (r *RedisRegistry) Delete(ctx context.Context, roomName string) error {
	l := r.keyLock(roomName)
	l.Lock()
	defer l.Unlock()
	if err := r.rdb.Del(ctx, redisKeyPrefix+roomName).Err(); err != nil {
		return fmt.Errorf("calls: redis del: %w", err)
	}
	return nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Call, error) {
	var out []Call
	iter := r.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		b, err := r.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("calls: redis get: %w", err)
		}
		var c Call
		if err := json.Unmarshal(b, &c); err != nil {
			continue
		}
		out = append(out, c)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("calls: redis scan: %w", err)
	}
	return out, nil
}
