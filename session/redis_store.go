package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/agentgraph/config"
	"github.com/BaSui01/agentgraph/types"
)

// RedisStore 基于 Redis 列表的会话历史存储，适合多实例部署。
// 每个会话一个 list，元素为 JSON 序列化的 Turn；
// 超出 MaxTurns 的旧轮次被修剪，TTL 到期整个会话过期。
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	maxTurns  int
	ttl       time.Duration
	logger    *zap.Logger
}

// NewRedisStore 连接 Redis 并创建会话存储。
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) (*RedisStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	keyPrefix := cfg.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = "agentgraph:"
	}

	return &RedisStore{
		client:    client,
		keyPrefix: keyPrefix + "session:",
		maxTurns:  cfg.MaxTurns,
		ttl:       cfg.TTL,
		logger:    logger.With(zap.String("component", "redis_session_store")),
	}, nil
}

// Close 关闭底层连接。
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping 检查存储可用性。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) sessionKey(sessionID string) string {
	return s.keyPrefix + sessionID
}

func (s *RedisStore) GetHistory(ctx context.Context, sessionID string) ([]types.Turn, error) {
	items, err := s.client.LRange(ctx, s.sessionKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, storeErr("get history", err)
	}

	turns := make([]types.Turn, 0, len(items))
	for _, item := range items {
		var turn types.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			s.logger.Warn("skipping corrupt history entry",
				zap.String("session_id", sessionID), zap.Error(err))
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, turns ...types.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	values := make([]interface{}, 0, len(turns))
	for _, turn := range turns {
		data, err := json.Marshal(turn)
		if err != nil {
			return fmt.Errorf("failed to marshal turn: %w", err)
		}
		values = append(values, data)
	}

	key := s.sessionKey(sessionID)
	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, values...)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return storeErr("append history", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.sessionKey(sessionID)).Err(); err != nil {
		return storeErr("clear history", err)
	}
	return nil
}

func (s *RedisStore) Sessions(ctx context.Context) ([]string, error) {
	var ids []string
	iter := s.client.Scan(ctx, 0, s.keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), s.keyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, storeErr("list sessions", err)
	}
	return ids, nil
}

func storeErr(op string, err error) error {
	return types.NewError(types.ErrStoreUnavailable, "session store "+op+" failed").WithCause(err)
}

var _ Store = (*RedisStore)(nil)
