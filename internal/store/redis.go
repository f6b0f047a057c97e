package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MikeSquared-Agency/slice/internal/wager"
)

// Redis keeps snapshots as JSON strings that expire ttl after the last save.
//
// Key schema:
//
//	slice:conversation:{id} - JSON snapshot
//	slice:lock:{id}         - turn lock token
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to redisURL (redis://[:password@]host:port/db) and pings it.
func NewRedis(ctx context.Context, redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}

func conversationKey(id string) string { return "slice:conversation:" + id }
func lockKey(id string) string         { return "slice:lock:" + id }

func (r *Redis) Load(ctx context.Context, id string) (wager.State, error) {
	data, err := r.rdb.Get(ctx, conversationKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return wager.State{}, ErrNotFound
	}
	if err != nil {
		return wager.State{}, fmt.Errorf("redis: get conversation %s: %w", id, err)
	}
	return decode(id, data)
}

func (r *Redis) Save(ctx context.Context, s wager.State) error {
	data, err := encode(s)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, conversationKey(s.ConversationID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set conversation %s: %w", s.ConversationID, err)
	}
	return nil
}

// unlockLua deletes the lock only when it still holds the caller's token.
const unlockLua = `
if redis.call('GET', KEYS[1]) == ARGV[1] then
    return redis.call('DEL', KEYS[1])
end
return 0
`

var unlockScript = redis.NewScript(unlockLua)

// ErrLockTimeout is returned when a conversation lock cannot be taken before
// the context ends.
var ErrLockTimeout = errors.New("conversation lock not acquired")

// Lock takes the turn lock of a conversation, polling until it is free or ctx
// ends. The lock expires after ttl if never released. The returned unlock
// function is safe to call more than once.
func (r *Redis) Lock(ctx context.Context, id string, ttl time.Duration) (func(), error) {
	token := uuid.NewString()
	key := lockKey(id)

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s", ErrLockTimeout, id)
			}
			return nil, fmt.Errorf("redis: lock %s: %w", id, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, id)
		case <-ticker.C:
		}
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true
		uctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = unlockScript.Run(uctx, r.rdb, []string{key}, token).Err()
	}, nil
}
