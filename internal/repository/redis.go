package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fieldbook/internal/config"
	"fieldbook/internal/models"

	"github.com/redis/go-redis/v9"
)

const dayLayout = "2006-01-02"

type RedisSlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient создает новый клиент Redis на основе конфигурации
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	client := redis.NewClient(options)

	return client
}

func NewRedisSlotCache(client *redis.Client, ttl time.Duration) *RedisSlotCache {
	return &RedisSlotCache{
		client: client,
		ttl:    ttl,
	}
}

func slotKey(fieldID int64, day time.Time) string {
	return fmt.Sprintf("slots:%d:%s", fieldID, day.UTC().Format(dayLayout))
}

// GetDay returns the cached slot list for a field's day, nil on miss.
func (r *RedisSlotCache) GetDay(ctx context.Context, fieldID int64, day time.Time) ([]models.SlotView, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, slotKey(fieldID, day)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slots from redis: %w", err)
	}

	var slots []models.SlotView
	if err := json.Unmarshal([]byte(val), &slots); err != nil {
		return nil, fmt.Errorf("failed to unmarshal slots: %w", err)
	}

	return slots, nil
}

func (r *RedisSlotCache) SetDay(ctx context.Context, fieldID int64, day time.Time, slots []models.SlotView) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return fmt.Errorf("failed to marshal slots: %w", err)
	}

	if err := r.client.Set(ctx, slotKey(fieldID, day), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set slots in redis: %w", err)
	}

	return nil
}

func (r *RedisSlotCache) InvalidateDay(ctx context.Context, fieldID int64, day time.Time) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, slotKey(fieldID, day)).Err(); err != nil {
		return fmt.Errorf("failed to delete slots from redis: %w", err)
	}
	return nil
}

// Ping проверяет соединение с Redis
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
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
