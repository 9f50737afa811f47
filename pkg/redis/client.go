package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Results of ConsumeOTP.
const (
	OTPMissing  int64 = -1
	OTPMismatch int64 = 0
	OTPMatched  int64 = 1
)

// consumeOTP deletes the code only when it matches, in one round trip.
var consumeOTP = goredis.NewScript(`
local stored = redis.call("GET", KEYS[1])
if not stored then
	return -1
end
if stored ~= ARGV[1] then
	return 0
end
redis.call("DEL", KEYS[1])
return 1
`)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr string) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr})
	for i := 0; i < 20; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := rdb.Ping(ctx).Err(); err == nil {
			cancel()
			log.Println("[redis] connected")
			return &Client{rdb: rdb}, nil
		}
		cancel()
		log.Printf("[redis] waiting... (%d/20)", i+1)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("redis: failed to connect after 20 attempts")
}

func otpKey(key string) string { return "otp:" + key }

// PutOTP stores code under key, replacing any previous code.
func (c *Client) PutOTP(ctx context.Context, key, code string, ttl time.Duration) error {
	return c.rdb.Set(ctx, otpKey(key), code, ttl).Err()
}

// ConsumeOTP compares code with the stored one and deletes it on match.
// It returns OTPMatched, OTPMismatch or OTPMissing.
func (c *Client) ConsumeOTP(ctx context.Context, key, code string) (int64, error) {
	return consumeOTP.Run(ctx, c.rdb, []string{otpKey(key)}, code).Int64()
}

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
