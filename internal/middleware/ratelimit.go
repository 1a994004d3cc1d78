package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// AttemptWindow is the fixed window login attempts are counted in
	AttemptWindow = 120 * time.Second
	// AttemptMax is the number of attempts allowed per window before the IP is blocked
	AttemptMax = 25
	// BlockDuration is how long an IP stays blocked once it exceeds AttemptMax
	BlockDuration = 15 * time.Minute

	AttemptKeyPrefix   = "ratelimit:login:"
	BlockedIPKeyPrefix = "blocked_ip:"
)

// AttemptCounter tracks login attempts per IP.
type AttemptCounter interface {
	Blocked(ctx context.Context, ip string) (bool, error)
	// Hit records one attempt and returns the count in the current window.
	Hit(ctx context.Context, ip string) (int64, error)
	Block(ctx context.Context, ip string) error
	// Unblock lifts a block and resets the attempt window.
	Unblock(ctx context.Context, ip string) error
}

// RedisAttempts is a fixed-window AttemptCounter shared by every replica.
type RedisAttempts struct {
	client *redis.Client
}

func NewRedisAttempts(client *redis.Client) *RedisAttempts {
	return &RedisAttempts{client: client}
}

func (a *RedisAttempts) Blocked(ctx context.Context, ip string) (bool, error) {
	n, err := a.client.Exists(ctx, BlockedIPKeyPrefix+ip).Result()
	return n > 0, err
}

func (a *RedisAttempts) Hit(ctx context.Context, ip string) (int64, error) {
	key := AttemptKeyPrefix + ip
	pipe := a.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	// NX keeps the window fixed from the first attempt
	pipe.ExpireNX(ctx, key, AttemptWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

func (a *RedisAttempts) Block(ctx context.Context, ip string) error {
	return a.client.Set(ctx, BlockedIPKeyPrefix+ip, "1", BlockDuration).Err()
}

func (a *RedisAttempts) Unblock(ctx context.Context, ip string) error {
	return a.client.Del(ctx, BlockedIPKeyPrefix+ip, AttemptKeyPrefix+ip).Err()
}

// LoginAttemptLimit blocks an IP for BlockDuration after AttemptMax attempts
// inside AttemptWindow. Counter failures let the request through.
func LoginAttemptLimit(counter AttemptCounter, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ClientIP(r)
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()

			blocked, err := counter.Blocked(ctx, ip)
			if err == nil && blocked {
				writeError(w, http.StatusTooManyRequests, "Your IP has been temporarily blocked due to excessive login attempts. Please try again later.")
				return
			}

			count, err := counter.Hit(ctx, ip)
			if err != nil {
				log.Warn("login rate limit unavailable", zap.String("ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if count > AttemptMax {
				if err := counter.Block(ctx, ip); err != nil {
					log.Warn("failed to block ip", zap.String("ip", ip), zap.Error(err))
				} else {
					log.Warn("ip blocked after repeated login attempts", zap.String("ip", ip), zap.Int64("attempts", count))
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(BlockDuration.Seconds())))
				writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Your IP has been temporarily blocked. Please try again later.")
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(AttemptMax))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(AttemptMax-count, 10))
			next.ServeHTTP(w, r)
		})
	}
}
