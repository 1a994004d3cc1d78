package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var RedisClient *redis.Client

// RedisOptions parses redisURI and applies the pool settings used by the
// session, cache and rate-limit paths. The pub/sub subscriber takes its own
// connection outside the pool.
func RedisOptions(redisURI string) (*redis.Options, error) {
	opt, err := redis.ParseURL(redisURI)
	if err != nil {
		return nil, fmt.Errorf("parse redis uri: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.MaxRetries = 3
	opt.DialTimeout = 5 * time.Second
	opt.ReadTimeout = 3 * time.Second
	opt.WriteTimeout = 3 * time.Second
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute
	return opt, nil
}

// ConnectRedis opens RedisClient and pings it. Redis is required: sessions
// and login throttling both depend on it.
func ConnectRedis(redisURI string, log *zap.Logger) error {
	opt, err := RedisOptions(redisURI)
	if err != nil {
		return err
	}

	client := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), opt.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis at %s: %w", opt.Addr, err)
	}

	RedisClient = client
	log.Info("connected to Redis", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return nil
}

func DisconnectRedis() error {
	if RedisClient == nil {
		return nil
	}
	return RedisClient.Close()
}
