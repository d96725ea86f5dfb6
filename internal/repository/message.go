package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

func (r *MessageRepository) Create(ctx context.Context, m *model.Message) error {
	defer logger.DeferLogDuration("msg.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO messages (id, msg, msg_from, msg_date_time, type)
		 VALUES ($1, $2, $3, $4, $5)`,
		m.ID, m.Msg, m.MsgFrom, m.MsgDateTime, m.Type,
	)
	if err != nil {
		return fmt.Errorf("msgRepo.Create: %w", err)
	}
	return nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByID", time.Now())()
	m := &model.Message{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, msg, msg_from, msg_date_time, type FROM messages WHERE id = $1`, id,
	).Scan(&m.ID, &m.Msg, &m.MsgFrom, &m.MsgDateTime, &m.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByID: %w", err)
	}
	return m, nil
}

// GetByIDs возвращает сообщения в порядке переданных id (порядок чата сохраняется).
func (r *MessageRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Message, error) {
	defer logger.DeferLogDuration("msg.GetByIDs", time.Now())()
	if len(ids) == 0 {
		return []model.Message{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, msg, msg_from, msg_date_time, type FROM messages WHERE id = ANY($1)`, ids,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetByIDs query: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]model.Message, len(ids))
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.Msg, &m.MsgFrom, &m.MsgDateTime, &m.Type); err != nil {
			return nil, fmt.Errorf("msgRepo.GetByIDs scan: %w", err)
		}
		byID[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.GetByIDs rows: %w", err)
	}

	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		m, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("msgRepo.GetByIDs: message %s: %w", id, ErrNotFound)
		}
		out = append(out, m)
	}
	return out, nil
}
