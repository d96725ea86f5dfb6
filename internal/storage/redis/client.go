package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// presenceTTL страхует от зависших ключей, если процесс умер без offline-отметки.
const presenceTTL = 24 * time.Hour

const presenceKeyPrefix = "presence:"

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetOnline ставит или снимает ключ presence:{username}.
func (c *Client) SetOnline(ctx context.Context, username string, online bool) error {
	if online {
		return c.cli.Set(ctx, presenceKeyPrefix+username, "1", presenceTTL).Err()
	}
	return c.cli.Del(ctx, presenceKeyPrefix+username).Err()
}

func (c *Client) IsOnline(ctx context.Context, username string) (bool, error) {
	n, err := c.cli.Exists(ctx, presenceKeyPrefix+username).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// OnlineUsers возвращает usernames с активным presence-ключом (SCAN, не KEYS).
func (c *Client) OnlineUsers(ctx context.Context) ([]string, error) {
	var names []string
	iter := c.cli.Scan(ctx, 0, presenceKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		names = append(names, iter.Val()[len(presenceKeyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// FlushDB очищает текущую БД Redis (для сброса presence при тестах/перезапуске).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
