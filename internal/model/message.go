package model

import "time"

type MessageType string

const (
	MessageTypeDirect MessageType = "direct"
	MessageTypeGlobal MessageType = "global"
)

// Message хранит ссылку на автора по username (msgFrom). Поля msg, msgFrom и
// msgDateTime — фиксированный wire-формат, имена менять нельзя.
type Message struct {
	ID          string      `json:"id"`
	Msg         string      `json:"msg"`
	MsgFrom     string      `json:"msgFrom"`
	MsgDateTime time.Time   `json:"msgDateTime"`
	Type        MessageType `json:"type"`

	// User — автор, подставляется при populate (денормализация msgFrom).
	User *UserPublic `json:"user,omitempty"`
}

// MessageInput — входной payload для создания сообщения.
type MessageInput struct {
	Msg         string    `json:"msg" validate:"required"`
	MsgFrom     string    `json:"msgFrom" validate:"required"`
	MsgDateTime time.Time `json:"msgDateTime"`
}
