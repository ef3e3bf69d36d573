package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"camgate-go/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each camera as a JSON string under prefix+"camera:"+id.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend creates a new Redis storage backend
func NewRedisBackend(addr, password string, db int, prefix string) (*RedisBackend, error) {
	if addr == "" {
		return nil, fmt.Errorf("redis address cannot be empty")
	}
	if prefix == "" {
		prefix = "camgate:"
	}
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
	return &RedisBackend{client: client, prefix: prefix}, nil
}

func (r *RedisBackend) key(id string) string {
	return r.prefix + "camera:" + id
}

// Initialize tests Redis connection
func (r *RedisBackend) Initialize(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

func (r *RedisBackend) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

func (r *RedisBackend) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisBackend) FetchAll(ctx context.Context) ([]models.CameraConfig, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, r.prefix+"camera:*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	out := make([]models.CameraConfig, 0, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// deleted between SCAN and MGET
			continue
		}
		cfg, err := decodeConfig([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", keys[i], err)
		}
		out = append(out, cfg)
	}
	sortConfigs(out)
	return out, nil
}

func (r *RedisBackend) Insert(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	payload, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(cfg.ID), payload, 0).Result()
	if err != nil {
		return err
	}
	if !ok {
		return &ErrAlreadyExists{Key: cfg.ID}
	}
	return nil
}

func (r *RedisBackend) Save(ctx context.Context, cfg models.CameraConfig) error {
	if err := validateForWrite(cfg); err != nil {
		return err
	}
	payload, err := encodeConfig(cfg)
	if err != nil {
		return err
	}
	// SET XX only writes when the key already exists
	err = r.client.SetArgs(ctx, r.key(cfg.ID), payload, redis.SetArgs{Mode: "XX"}).Err()
	if errors.Is(err, redis.Nil) {
		return &ErrNotFound{Key: cfg.ID}
	}
	return err
}

func (r *RedisBackend) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
