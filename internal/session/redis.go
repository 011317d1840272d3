package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
)

// RedisStore keeps each session's window in a Redis list, trimmed to the most
// recent maxHistory exchanges so eviction happens server-side.
type RedisStore struct {
	client     *redisv9.Client
	maxHistory int
}

func NewRedisStore(client *redisv9.Client, maxHistory int) *RedisStore {
	if maxHistory <= 0 {
		maxHistory = 1
	}
	return &RedisStore{client: client, maxHistory: maxHistory}
}

// Create issues a fresh session id. The list key is created lazily on the
// first append; an id with no key reads back as an empty history.
func (s *RedisStore) Create(context.Context) (string, error) {
	return uuid.NewString(), nil
}

func (s *RedisStore) Context(ctx context.Context, sessionID string) (string, error) {
	raws, err := s.client.LRange(ctx, s.historyKey(sessionID), 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("redis read history failed: %w", err)
	}
	exchanges := make([]Exchange, 0, len(raws))
	for _, raw := range raws {
		var ex Exchange
		if err := json.Unmarshal([]byte(raw), &ex); err != nil {
			return "", fmt.Errorf("unmarshal stored exchange failed: %w", err)
		}
		exchanges = append(exchanges, ex)
	}
	return FormatHistory(exchanges), nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, query, answer string) error {
	payload, err := json.Marshal(Exchange{Query: query, Answer: answer})
	if err != nil {
		return fmt.Errorf("marshal exchange failed: %w", err)
	}
	key := s.historyKey(sessionID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-s.maxHistory), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis append exchange failed: %w", err)
	}
	return nil
}

func (s *RedisStore) historyKey(sessionID string) string {
	return fmt.Sprintf("chat:history:%s", sessionID)
}
