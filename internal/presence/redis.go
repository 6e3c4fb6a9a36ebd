package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps presence flags in a shared Redis so any gateway
// instance can consult them at send time.
// Keys: <prefix>:online:<userID> -> "1", <prefix>:socket:<userID> -> socketID.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "user"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) onlineKey(userID string) string {
	return fmt.Sprintf("%s:online:%s", s.prefix, userID)
}

func (s *RedisStore) socketKey(userID string) string {
	return fmt.Sprintf("%s:socket:%s", s.prefix, userID)
}

func (s *RedisStore) SetOnline(ctx context.Context, userID string) error {
	return s.client.Set(ctx, s.onlineKey(userID), "1", 0).Err()
}

func (s *RedisStore) SetOffline(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.onlineKey(userID)).Err()
}

func (s *RedisStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	res, err := s.client.Get(ctx, s.onlineKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	return res == "1", nil
}

func (s *RedisStore) SetSocket(ctx context.Context, userID, socketID string) error {
	return s.client.Set(ctx, s.socketKey(userID), socketID, 0).Err()
}

func (s *RedisStore) GetSocket(ctx context.Context, userID string) (string, error) {
	res, err := s.client.Get(ctx, s.socketKey(userID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", err
	}
	return res, nil
}

func (s *RedisStore) ClearSocket(ctx context.Context, userID string) error {
	return s.client.Del(ctx, s.socketKey(userID)).Err()
}
