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

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// Create сохраняет чат вместе с участниками и ссылками на уже созданные сообщения
// в одной транзакции. Сами сообщения создаются отдельно (msgRepo) и при ошибке
// здесь не откатываются.
func (r *ChatRepository) Create(ctx context.Context, c *model.Chat) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chatRepo.Create begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO chats (id, created_at, updated_at) VALUES ($1, $2, $3)`,
		c.ID, c.CreatedAt, c.UpdatedAt,
	); err != nil {
		return fmt.Errorf("chatRepo.Create chat: %w", err)
	}
	for _, username := range c.Participants {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_participants (chat_id, username) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			c.ID, username,
		); err != nil {
			return fmt.Errorf("chatRepo.Create participant: %w", err)
		}
	}
	for _, msgID := range c.Messages {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (chat_id, message_id) VALUES ($1, $2)`,
			c.ID, msgID,
		); err != nil {
			return fmt.Errorf("chatRepo.Create message link: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chatRepo.Create commit: %w", err)
	}
	return nil
}

func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.Chat{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, created_at, updated_at FROM chats WHERE id = $1`, id,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	if c.Participants, err = r.getParticipants(ctx, id); err != nil {
		return nil, err
	}
	if c.Messages, err = r.getMessageIDs(ctx, id); err != nil {
		return nil, err
	}
	return c, nil
}

// AppendMessage добавляет ссылку на сообщение в конец списка чата и возвращает
// обновлённый чат. ErrNotFound — если чата нет.
func (r *ChatRepository) AppendMessage(ctx context.Context, chatID, messageID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.AppendMessage", time.Now())()
	if err := r.exists(ctx, chatID); err != nil {
		return nil, err
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO chat_messages (chat_id, message_id) VALUES ($1, $2)`,
		chatID, messageID,
	); err != nil {
		return nil, fmt.Errorf("chatRepo.AppendMessage: %w", err)
	}
	if err := r.touch(ctx, chatID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, chatID)
}

// AddParticipant добавляет участника, если его ещё нет (идемпотентно), и
// возвращает обновлённый чат. ErrNotFound — если чата нет.
func (r *ChatRepository) AddParticipant(ctx context.Context, chatID, username string) (*model.Chat, error) {
	defer logger.DeferLogDuration("chat.AddParticipant", time.Now())()
	if err := r.exists(ctx, chatID); err != nil {
		return nil, err
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO chat_participants (chat_id, username) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		chatID, username,
	); err != nil {
		return nil, fmt.Errorf("chatRepo.AddParticipant: %w", err)
	}
	if err := r.touch(ctx, chatID); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, chatID)
}

// FindByParticipants возвращает чаты, множество участников которых содержит все
// переданные usernames (superset-совпадение, не точное).
func (r *ChatRepository) FindByParticipants(ctx context.Context, usernames []string) ([]model.Chat, error) {
	defer logger.DeferLogDuration("chat.FindByParticipants", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT cp.chat_id
		 FROM chat_participants cp
		 WHERE cp.username = ANY($1)
		 GROUP BY cp.chat_id
		 HAVING COUNT(DISTINCT cp.username) = cardinality($1::text[])
		 ORDER BY cp.chat_id`, usernames,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.FindByParticipants query: %w", err)
	}
	defer rows.Close()

	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chatRepo.FindByParticipants scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.FindByParticipants rows: %w", err)
	}

	chats := make([]model.Chat, 0, len(ids))
	for _, id := range ids {
		c, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, nil
}

func (r *ChatRepository) exists(ctx context.Context, chatID string) error {
	var found bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM chats WHERE id = $1)`, chatID,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("chatRepo.exists: %w", err)
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

func (r *ChatRepository) touch(ctx context.Context, chatID string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE chats SET updated_at = $1 WHERE id = $2`, time.Now().UTC(), chatID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.touch: %w", err)
	}
	return nil
}

func (r *ChatRepository) getParticipants(ctx context.Context, chatID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT username FROM chat_participants WHERE chat_id = $1 ORDER BY position`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.getParticipants query: %w", err)
	}
	defer rows.Close()
	names := make([]string, 0, 8)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("chatRepo.getParticipants scan: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.getParticipants rows: %w", err)
	}
	return names, nil
}

func (r *ChatRepository) getMessageIDs(ctx context.Context, chatID string) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT message_id FROM chat_messages WHERE chat_id = $1 ORDER BY position`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.getMessageIDs query: %w", err)
	}
	defer rows.Close()
	ids := make([]string, 0, 16)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chatRepo.getMessageIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("chatRepo.getMessageIDs rows: %w", err)
	}
	return ids, nil
}
