package storage

import "context"

// PresenceStore — быстрое хранилище online-статусов для опроса без похода в БД.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type PresenceStore interface {
	SetOnline(ctx context.Context, username string, online bool) error
	IsOnline(ctx context.Context, username string) (bool, error)
	OnlineUsers(ctx context.Context) ([]string, error)
	Close() error
}
