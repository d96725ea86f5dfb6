package memory

import (
	"context"
	"sync"
)

// Client — presence в памяти процесса для режима -dev (без Redis).
type Client struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

func New() *Client {
	return &Client{online: make(map[string]struct{})}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetOnline(ctx context.Context, username string, online bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if online {
		c.online[username] = struct{}{}
	} else {
		delete(c.online, username)
	}
	return nil
}

func (c *Client) IsOnline(ctx context.Context, username string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.online[username]
	return ok, nil
}

func (c *Client) OnlineUsers(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.online))
	for name := range c.online {
		names = append(names, name)
	}
	return names, nil
}
