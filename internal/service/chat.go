// Package service реализует операции над чатами, сообщениями и пользователями.
// Тексты ошибок — фиксированный контракт API и не меняются.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/model"
	"github.com/chatter/internal/repository"
	"github.com/google/uuid"
)

// Ошибки, которые видит клиент. Внутренняя причина (ошибка запроса, нарушение
// ограничения) логируется, наружу уходит только обобщённый текст.
var (
	ErrSaveChat       = errors.New("Error when saving a chat")
	ErrSaveMessage    = errors.New("Error when saving a message")
	ErrChatNotFound   = errors.New("Chat not found")
	ErrAddMessage     = errors.New("Error when adding a message to a chat")
	ErrAddParticipant = errors.New("Error when adding a participant to a chat")
)

// UserStore — чтение пользователей (проверка автора, populate).
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// MessageStore — создание и чтение сообщений.
type MessageStore interface {
	Create(ctx context.Context, m *model.Message) error
	GetByIDs(ctx context.Context, ids []string) ([]model.Message, error)
}

// ChatStore — хранилище чатов. Реализация: repository.ChatRepository.
type ChatStore interface {
	Create(ctx context.Context, c *model.Chat) error
	GetByID(ctx context.Context, id string) (*model.Chat, error)
	AppendMessage(ctx context.Context, chatID, messageID string) (*model.Chat, error)
	AddParticipant(ctx context.Context, chatID, username string) (*model.Chat, error)
	FindByParticipants(ctx context.Context, usernames []string) ([]model.Chat, error)
}

type ChatService struct {
	chats    ChatStore
	messages MessageStore
	users    UserStore
}

func NewChatService(chats ChatStore, messages MessageStore, users UserStore) *ChatService {
	return &ChatService{chats: chats, messages: messages, users: users}
}

// SaveChat создаёт сообщения по одному, затем чат со ссылками на них.
// Записи не атомарны между хранилищами: если чат не сохранился, уже созданные
// сообщения не откатываются (известный пробел, см. DESIGN.md).
func (s *ChatService) SaveChat(ctx context.Context, p model.CreateChatPayload) (*model.Chat, error) {
	defer logger.DeferLogDuration("service.SaveChat", time.Now())()
	msgIDs := make([]string, 0, len(p.Messages))
	for _, in := range p.Messages {
		m, err := s.CreateMessage(ctx, in)
		if err != nil {
			return nil, ErrSaveChat
		}
		msgIDs = append(msgIDs, m.ID)
	}

	now := time.Now().UTC()
	c := &model.Chat{
		ID:           uuid.New().String(),
		Participants: p.Participants,
		Messages:     msgIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.chats.Create(ctx, c); err != nil {
		logger.Errorf("saveChat: %v", err)
		return nil, ErrSaveChat
	}
	return c, nil
}

// CreateMessage проверяет существование автора и сохраняет сообщение типа direct.
func (s *ChatService) CreateMessage(ctx context.Context, in model.MessageInput) (*model.Message, error) {
	defer logger.DeferLogDuration("service.CreateMessage", time.Now())()
	if _, err := s.users.GetByUsername(ctx, in.MsgFrom); err != nil {
		logger.Errorf("createMessage sender=%s: %v", in.MsgFrom, err)
		return nil, ErrSaveMessage
	}
	m := &model.Message{
		ID:          uuid.New().String(),
		Msg:         in.Msg,
		MsgFrom:     in.MsgFrom,
		MsgDateTime: in.MsgDateTime,
		Type:        model.MessageTypeDirect,
	}
	if err := s.messages.Create(ctx, m); err != nil {
		logger.Errorf("createMessage: %v", err)
		return nil, ErrSaveMessage
	}
	return m, nil
}

// AddMessageToChat дописывает ссылку на сообщение в конец списка чата.
func (s *ChatService) AddMessageToChat(ctx context.Context, chatID, messageID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("service.AddMessageToChat", time.Now())()
	c, err := s.chats.AppendMessage(ctx, chatID, messageID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		logger.Errorf("addMessageToChat chat=%s: %v", chatID, err)
		return nil, ErrAddMessage
	}
	return c, nil
}

// GetChat возвращает чат по id. "Нет записи" и "ошибка запроса" намеренно
// схлопнуты в один ответ "Chat not found" — это контракт API (см. DESIGN.md).
func (s *ChatService) GetChat(ctx context.Context, chatID string) (*model.Chat, error) {
	defer logger.DeferLogDuration("service.GetChat", time.Now())()
	c, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			logger.Errorf("getChat chat=%s: %v", chatID, err)
		}
		return nil, ErrChatNotFound
	}
	return c, nil
}

// AddParticipantToChat добавляет участника, если его ещё нет (идемпотентно).
func (s *ChatService) AddParticipantToChat(ctx context.Context, chatID, username string) (*model.Chat, error) {
	defer logger.DeferLogDuration("service.AddParticipantToChat", time.Now())()
	c, err := s.chats.AddParticipant(ctx, chatID, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		logger.Errorf("addParticipantToChat chat=%s user=%s: %v", chatID, username, err)
		return nil, ErrAddParticipant
	}
	return c, nil
}

// GetChatsByParticipants возвращает чаты, участники которых включают все
// переданные usernames (superset-совпадение). Никогда не возвращает ошибку:
// при любом сбое хранилища — пустой список.
func (s *ChatService) GetChatsByParticipants(ctx context.Context, usernames []string) []model.Chat {
	defer logger.DeferLogDuration("service.GetChatsByParticipants", time.Now())()
	unique := dedup(usernames)
	if len(unique) == 0 {
		return []model.Chat{}
	}
	chats, err := s.chats.FindByParticipants(ctx, unique)
	if err != nil {
		logger.Errorf("getChatsByParticipants: %v", err)
		return []model.Chat{}
	}
	return chats
}

// PopulateChat разворачивает ссылки на сообщения в полные документы, у каждого
// сообщения подставляет автора (денормализация для ответа API).
func (s *ChatService) PopulateChat(ctx context.Context, c *model.Chat) (*model.PopulatedChat, error) {
	defer logger.DeferLogDuration("service.PopulateChat", time.Now())()
	msgs, err := s.messages.GetByIDs(ctx, c.Messages)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		u, err := s.users.GetByUsername(ctx, msgs[i].MsgFrom)
		if err != nil {
			return nil, err
		}
		pub := u.ToPublic()
		msgs[i].User = &pub
	}
	return &model.PopulatedChat{
		ID:           c.ID,
		Participants: c.Participants,
		Messages:     msgs,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}, nil
}

func dedup(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
