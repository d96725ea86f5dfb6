package ws

import "github.com/chatter/internal/model"

type EventType string

const (
	// EventUserUpdate — изменение справочника пользователей: created | deleted | updated.
	EventUserUpdate EventType = "userUpdate"
	// EventChatUpdate — создание или изменение чата.
	EventChatUpdate EventType = "chatUpdate"
	EventError      EventType = "error"
)

// OutgoingEvent is what the server sends to the client.
// Payload uses typed structs to avoid heap-heavy map[string]any.
type OutgoingEvent struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// UserUpdateEvent собирает событие userUpdate.
func UserUpdateEvent(u model.UserPublic, typ model.UpdateType) OutgoingEvent {
	return OutgoingEvent{Type: EventUserUpdate, Payload: model.UserUpdatePayload{User: u, Type: typ}}
}

// ChatUpdateEvent собирает событие chatUpdate.
func ChatUpdateEvent(c model.Chat, typ model.UpdateType) OutgoingEvent {
	return OutgoingEvent{Type: EventChatUpdate, Payload: model.ChatUpdatePayload{Chat: c, Type: typ}}
}
