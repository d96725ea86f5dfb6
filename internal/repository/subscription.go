package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/push"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository хранит Web Push подписки пользователей.
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

func (r *SubscriptionRepository) Save(ctx context.Context, username string, sub push.Subscription) error {
	defer logger.DeferLogDuration("sub.Save", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO push_subscriptions (username, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (username, endpoint) DO UPDATE SET p256dh = $3, auth = $4`,
		username, sub.Endpoint, sub.Keys.P256dh, sub.Keys.Auth, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("subRepo.Save: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) Delete(ctx context.Context, username, endpoint string) error {
	defer logger.DeferLogDuration("sub.Delete", time.Now())()
	_, err := r.pool.Exec(ctx,
		`DELETE FROM push_subscriptions WHERE username = $1 AND endpoint = $2`,
		username, endpoint,
	)
	if err != nil {
		return fmt.Errorf("subRepo.Delete: %w", err)
	}
	return nil
}

func (r *SubscriptionRepository) GetByUsername(ctx context.Context, username string) ([]push.Subscription, error) {
	defer logger.DeferLogDuration("sub.GetByUsername", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT endpoint, p256dh, auth FROM push_subscriptions WHERE username = $1`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("subRepo.GetByUsername query: %w", err)
	}
	defer rows.Close()
	subs := make([]push.Subscription, 0, 4)
	for rows.Next() {
		var s push.Subscription
		if err := rows.Scan(&s.Endpoint, &s.Keys.P256dh, &s.Keys.Auth); err != nil {
			return nil, fmt.Errorf("subRepo.GetByUsername scan: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("subRepo.GetByUsername rows: %w", err)
	}
	return subs, nil
}
