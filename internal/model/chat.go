package model

import "time"

// Chat — упорядоченный по добавлению список ссылок на сообщения плюс множество
// участников (usernames). Участники добавляются только append-only; операции
// удаления не предусмотрены.
type Chat struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Messages     []string  `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// PopulatedChat — чат с развёрнутыми сообщениями (каждое с автором) для ответа API.
type PopulatedChat struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	Messages     []Message `json:"messages"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateChatPayload — входной payload создания чата.
type CreateChatPayload struct {
	Participants []string       `json:"participants" validate:"required,min=1,dive,required"`
	Messages     []MessageInput `json:"messages" validate:"dive"`
}

// UpdateType помечает, что произошло с сущностью в realtime-событии.
type UpdateType string

const (
	UpdateCreated UpdateType = "created"
	UpdateDeleted UpdateType = "deleted"
	UpdateUpdated UpdateType = "updated"
)

// UserUpdatePayload — payload события userUpdate (справочник пользователей).
type UserUpdatePayload struct {
	User UserPublic `json:"user"`
	Type UpdateType `json:"type"`
}

// ChatUpdatePayload — payload события chatUpdate.
type ChatUpdatePayload struct {
	Chat Chat       `json:"chat"`
	Type UpdateType `json:"type"`
}
