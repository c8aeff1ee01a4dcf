package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"fleetdesk/internal/config"
	"fleetdesk/internal/models"

	"github.com/redis/go-redis/v9"
)

var errNilRedis = errors.New("redis client is nil")

type RedisChatStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisChatStateRepository(client *redis.Client, ttl time.Duration) *RedisChatStateRepository {
	return &RedisChatStateRepository{
		client: client,
		ttl:    ttl,
	}
}

func chatStateKey(chatID int64) string {
	return fmt.Sprintf("chat_state:%d", chatID)
}

func (r *RedisChatStateRepository) GetState(ctx context.Context, chatID int64) (*models.ChatState, error) {
	if r.client == nil {
		return nil, errNilRedis
	}
	val, err := r.client.Get(ctx, chatStateKey(chatID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chat state from redis: %w", err)
	}

	var state models.ChatState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chat state: %w", err)
	}
	return &state, nil
}

func (r *RedisChatStateRepository) SetState(ctx context.Context, state *models.ChatState) error {
	if r.client == nil {
		return errNilRedis
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal chat state: %w", err)
	}
	if err := r.client.Set(ctx, chatStateKey(state.ChatID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set chat state in redis: %w", err)
	}
	return nil
}

func (r *RedisChatStateRepository) ClearState(ctx context.Context, chatID int64) error {
	if r.client == nil {
		return errNilRedis
	}
	if err := r.client.Del(ctx, chatStateKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to delete chat state from redis: %w", err)
	}
	return nil
}

func (r *RedisChatStateRepository) CheckRateLimit(ctx context.Context, chatID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, errNilRedis
	}
	key := fmt.Sprintf("rate_limit:%d", chatID)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close закрывает соединение с Redis
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
