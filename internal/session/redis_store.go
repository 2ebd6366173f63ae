package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "session:"
	flashTTL  = 10 * time.Minute
)

// RedisStore keeps sessions as Redis hashes expiring with the session.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// pushFlashScript appends to the flash list only while the session hash
// still exists. It returns 0 for unknown or expired sessions.
var pushFlashScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("RPUSH", KEYS[2], ARGV[1])
redis.call("EXPIRE", KEYS[2], ARGV[2])
return 1
`)

func sessionKey(id string) string { return keyPrefix + id }
func flashKey(id string) string { return keyPrefix + id + ":flash" }

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, sessionKey(sess.ID),
		"user_id", sess.UserID,
		"created_at", sess.CreatedAt.Unix(),
		"expires_at", sess.ExpiresAt.Unix(),
	)
	pipe.Expire(ctx, sessionKey(sess.ID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store session: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	vals, err := s.client.HGetAll(ctx, sessionKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if len(vals) == 0 {
		return nil, ErrNotFound
	}
	userID, err := strconv.ParseInt(vals["user_id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt session %s: %w", id, err)
	}
	created, _ := strconv.ParseInt(vals["created_at"], 10, 64)
	expires, _ := strconv.ParseInt(vals["expires_at"], 10, 64)
	return &Session{
		ID:        id,
		UserID:    userID,
		CreatedAt: time.Unix(created, 0).UTC(),
		ExpiresAt: time.Unix(expires, 0).UTC(),
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id), flashKey(id)).Err()
}

func (s *RedisStore) PushFlash(ctx context.Context, id, message string) error {
	pushed, err := pushFlashScript.Run(ctx, s.client,
		[]string{sessionKey(id), flashKey(id)},
		message, int64(flashTTL/time.Second),
	).Int()
	if err != nil {
		return fmt.Errorf("push flash: %w", err)
	}
	if pushed == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) PopFlashes(ctx context.Context, id string) ([]string, error) {
	pipe := s.client.TxPipeline()
	messages := pipe.LRange(ctx, flashKey(id), 0, -1)
	pipe.Del(ctx, flashKey(id))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	return messages.Val(), nil
}
