package queue

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// getRedisURL returns REDIS_URL or the local default
func getRedisURL() string {
	if url := os.Getenv("REDIS_URL"); url != "" {
		return url
	}
	return "redis://localhost:6379"
}

// requireRedis skips the test when no Redis server answers
func requireRedis(t *testing.T) {
	t.Helper()

	opts, err := redis.ParseURL(getRedisURL())
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if client.Ping(ctx).Err() != nil {
		t.Skip("Redis not available, skipping test")
	}
}

func newTestRedisQueue(t *testing.T) *RedisQueue {
	t.Helper()
	requireRedis(t)

	q, err := NewRedisQueue(RedisConfig{
		URL:    getRedisURL(),
		Stream: fmt.Sprintf("insight-test-%d", time.Now().UnixNano()),
		Group:  "test-group",
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		ctx := context.Background()
		keys, _ := q.client.Keys(ctx, q.config.Stream+":*").Result()
		if len(keys) > 0 {
			q.client.Del(ctx, keys...)
		}
		_ = q.Close()
	})
	return q
}

func TestRedisConfig_Defaults(t *testing.T) {
	cfg := RedisConfig{}.withDefaults()

	assert.Equal(t, "insight", cfg.Stream)
	assert.Equal(t, "insight-group", cfg.Group)
	assert.NotEmpty(t, cfg.Consumer)
}

func TestNewRedisQueue_Unreachable(t *testing.T) {
	_, err := NewRedisQueue(RedisConfig{URL: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisQueue_StreamName(t *testing.T) {
	q := &RedisQueue{config: RedisConfig{Stream: "insight"}}

	assert.Equal(t, "insight:insight.analyze.requests", q.streamName("insight.analyze.requests"))
}

func TestRedisQueue_PublishSubscribe(t *testing.T) {
	q := newTestRedisQueue(t)

	c := &collector{}
	require.NoError(t, q.Subscribe("jobs", c.handle))

	require.NoError(t, q.Publish(context.Background(), "jobs", []byte("one")))
	n, err := q.PublishBatch(context.Background(), []BatchMessage{
		{Subject: "jobs", Data: []byte("two")},
		{Subject: "jobs", Data: []byte("three")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Eventually(t, func() bool { return c.count() == 3 }, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, []string{"one", "two", "three"}, c.messages())
}

func TestRedisQueue_SubscribeTwice(t *testing.T) {
	q := newTestRedisQueue(t)

	c := &collector{}
	require.NoError(t, q.Subscribe("dup", c.handle))
	assert.ErrorIs(t, q.Subscribe("dup", c.handle), ErrAlreadySubscribed)

	require.NoError(t, q.Unsubscribe("dup"))
	assert.ErrorIs(t, q.Unsubscribe("dup"), ErrNotSubscribed)
}
