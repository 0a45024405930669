package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var Redis *redis.Client

const (
	RefreshQueueKey   = "narrativelens:queue:refresh"
	DeadLetterKey     = "narrativelens:queue:failed"
	NarrativeCacheKey = "narrativelens:cache:narratives"
)

func ConnectRedis(ctx context.Context, redisURL string) error {
	if redisURL == "" {
		return errors.New("REDIS_URL is not set")
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}

	Redis = redis.NewClient(opt)

	return Redis.Ping(ctx).Err()
}

func CloseRedis() {
	if Redis != nil {
		Redis.Close()
	}
}

// Queue is a Redis list used as a FIFO job queue: LPUSH in, BRPOP out.
type Queue struct {
	rdb *redis.Client
	key string
}

func NewQueue(rdb *redis.Client, key string) *Queue {
	return &Queue{rdb: rdb, key: key}
}

func (q *Queue) Push(ctx context.Context, data string) error {
	return q.rdb.LPush(ctx, q.key, data).Err()
}

// Pop blocks for up to timeout. It returns "", nil when nothing arrived.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	result, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return result[1], nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

// Cache stores serialized values under a single key with a TTL.
type Cache struct {
	rdb *redis.Client
	key string
	ttl time.Duration
}

func NewCache(rdb *redis.Client, key string, ttl time.Duration) *Cache {
	return &Cache{rdb: rdb, key: key, ttl: ttl}
}

// Get returns nil, nil on a miss.
func (c *Cache) Get(ctx context.Context) ([]byte, error) {
	b, err := c.rdb.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return b, err
}

func (c *Cache) Set(ctx context.Context, value []byte) error {
	return c.rdb.Set(ctx, c.key, value, c.ttl).Err()
}

func (c *Cache) Invalidate(ctx context.Context) error {
	return c.rdb.Del(ctx, c.key).Err()
}
