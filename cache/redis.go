package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/imageflow/json"
	"github.com/leeforge/imageflow/logging"
	"github.com/leeforge/imageflow/meta"
)

const redisKeyPrefix = "imageflow:meta:"

// RedisConfig addresses the metadata cache backend.
type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr" validate:"required"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db" json:"db"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl" default:"24h"`
}

// Redis is a MetadataCache backed by a Redis instance.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(cfg RedisConfig, logger logging.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	if logger == nil {
		logger = logging.Global()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Redis{
		client: client,
		ttl:    ttl,
		logger: logger.Named("cache"),
	}, nil
}

func (r *Redis) Get(ctx context.Context, digest string) (meta.Visual, bool) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+digest).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("metadata cache read failed", zap.Error(err))
		}
		return meta.Visual{}, false
	}

	var visual meta.Visual
	if err := json.Unmarshal(raw, &visual); err != nil {
		r.logger.Warn("metadata cache entry corrupt", zap.Error(err))
		return meta.Visual{}, false
	}
	return visual, true
}

func (r *Redis) Set(ctx context.Context, digest string, visual meta.Visual) {
	raw, err := json.Marshal(&visual)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, redisKeyPrefix+digest, raw, r.ttl).Err(); err != nil {
		r.logger.Warn("metadata cache write failed", zap.Error(err))
	}
}

// Close releases the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
