package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatter/internal/model"
	"github.com/chatter/internal/repository"
)

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f *fakeUsers) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

type fakeMessages struct {
	created   []*model.Message
	createErr error
	byID      map[string]model.Message
	getErr    error
}

func (f *fakeMessages) Create(ctx context.Context, m *model.Message) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, m)
	if f.byID == nil {
		f.byID = make(map[string]model.Message)
	}
	f.byID[m.ID] = *m
	return nil
}

func (f *fakeMessages) GetByIDs(ctx context.Context, ids []string) ([]model.Message, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	out := make([]model.Message, 0, len(ids))
	for _, id := range ids {
		m, ok := f.byID[id]
		if !ok {
			return nil, repository.ErrNotFound
		}
		out = append(out, m)
	}
	return out, nil
}

type fakeChats struct {
	created     []*model.Chat
	createErr   error
	byID        map[string]*model.Chat
	getErr      error
	appendErr   error
	addPartErr  error
	findResult  []model.Chat
	findErr     error
	findQueries [][]string
}

func (f *fakeChats) Create(ctx context.Context, c *model.Chat) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, c)
	return nil
}

func (f *fakeChats) GetByID(ctx context.Context, id string) (*model.Chat, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	c, ok := f.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeChats) AppendMessage(ctx context.Context, chatID, messageID string) (*model.Chat, error) {
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	c, ok := f.byID[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c.Messages = append(c.Messages, messageID)
	return c, nil
}

func (f *fakeChats) AddParticipant(ctx context.Context, chatID, username string) (*model.Chat, error) {
	if f.addPartErr != nil {
		return nil, f.addPartErr
	}
	c, ok := f.byID[chatID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for _, p := range c.Participants {
		if p == username {
			return c, nil
		}
	}
	c.Participants = append(c.Participants, username)
	return c, nil
}

func (f *fakeChats) FindByParticipants(ctx context.Context, usernames []string) ([]model.Chat, error) {
	f.findQueries = append(f.findQueries, usernames)
	if f.findErr != nil {
		return nil, f.findErr
	}
	return f.findResult, nil
}

func newTestService() (*ChatService, *fakeChats, *fakeMessages, *fakeUsers) {
	users := &fakeUsers{users: map[string]*model.User{
		"alice": {Username: "alice"},
		"bob":   {Username: "bob"},
	}}
	msgs := &fakeMessages{}
	chats := &fakeChats{byID: map[string]*model.Chat{}}
	return NewChatService(chats, msgs, users), chats, msgs, users
}

func TestSaveChat(t *testing.T) {
	svc, chats, msgs, _ := newTestService()

	payload := model.CreateChatPayload{
		Participants: []string{"alice", "bob"},
		Messages: []model.MessageInput{
			{Msg: "hi", MsgFrom: "alice", MsgDateTime: time.Now()},
			{Msg: "hey", MsgFrom: "bob", MsgDateTime: time.Now()},
		},
	}
	chat, err := svc.SaveChat(context.Background(), payload)
	require.NoError(t, err)
	require.NotNil(t, chat)
	assert.NotEmpty(t, chat.ID)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)
	require.Len(t, chat.Messages, 2)
	require.Len(t, msgs.created, 2)
	// Порядок ссылок соответствует порядку входных сообщений.
	assert.Equal(t, msgs.created[0].ID, chat.Messages[0])
	assert.Equal(t, msgs.created[1].ID, chat.Messages[1])
	require.Len(t, chats.created, 1)
}

func TestSaveChatMessageFailure(t *testing.T) {
	svc, chats, msgs, _ := newTestService()
	msgs.createErr = errors.New("boom")

	_, err := svc.SaveChat(context.Background(), model.CreateChatPayload{
		Participants: []string{"alice"},
		Messages:     []model.MessageInput{{Msg: "hi", MsgFrom: "alice"}},
	})
	require.ErrorIs(t, err, ErrSaveChat)
	assert.EqualError(t, err, "Error when saving a chat")
	assert.Empty(t, chats.created)
}

func TestSaveChatStoreFailure(t *testing.T) {
	svc, chats, msgs, _ := newTestService()
	chats.createErr = errors.New("boom")

	_, err := svc.SaveChat(context.Background(), model.CreateChatPayload{
		Participants: []string{"alice"},
		Messages:     []model.MessageInput{{Msg: "hi", MsgFrom: "alice"}},
	})
	require.ErrorIs(t, err, ErrSaveChat)
	// Сообщения уже созданы и не откатываются.
	assert.Len(t, msgs.created, 1)
}

func TestCreateMessageUnknownSender(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateMessage(context.Background(), model.MessageInput{Msg: "hi", MsgFrom: "ghost"})
	require.ErrorIs(t, err, ErrSaveMessage)
	assert.EqualError(t, err, "Error when saving a message")
}

func TestCreateMessageDefaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	m, err := svc.CreateMessage(context.Background(), model.MessageInput{Msg: "hi", MsgFrom: "alice"})
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, model.MessageTypeDirect, m.Type)
}

func TestAddMessageToChatNotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.AddMessageToChat(context.Background(), "missing", "m1")
	require.ErrorIs(t, err, ErrChatNotFound)
	assert.EqualError(t, err, "Chat not found")
}

func TestAddMessageToChatStoreFailure(t *testing.T) {
	svc, chats, _, _ := newTestService()
	chats.appendErr = errors.New("boom")

	_, err := svc.AddMessageToChat(context.Background(), "c1", "m1")
	require.ErrorIs(t, err, ErrAddMessage)
	assert.EqualError(t, err, "Error when adding a message to a chat")
}

func TestAddMessageToChatAppends(t *testing.T) {
	svc, chats, _, _ := newTestService()
	chats.byID["c1"] = &model.Chat{ID: "c1", Messages: []string{"m1"}}

	c, err := svc.AddMessageToChat(context.Background(), "c1", "m2")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1", "m2"}, c.Messages)
}

func TestGetChatCollapsesErrors(t *testing.T) {
	svc, chats, _, _ := newTestService()

	// Отсутствующий чат.
	_, err := svc.GetChat(context.Background(), "missing")
	require.ErrorIs(t, err, ErrChatNotFound)

	// Ошибка хранилища даёт тот же ответ.
	chats.getErr = errors.New("connection reset")
	_, err = svc.GetChat(context.Background(), "c1")
	require.ErrorIs(t, err, ErrChatNotFound)
	assert.EqualError(t, err, "Chat not found")
}

func TestAddParticipantIdempotent(t *testing.T) {
	svc, chats, _, _ := newTestService()
	chats.byID["c1"] = &model.Chat{ID: "c1", Participants: []string{"alice"}}

	c, err := svc.AddParticipantToChat(context.Background(), "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, c.Participants)

	c, err = svc.AddParticipantToChat(context.Background(), "c1", "bob")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, c.Participants)
}

func TestAddParticipantErrors(t *testing.T) {
	svc, chats, _, _ := newTestService()

	_, err := svc.AddParticipantToChat(context.Background(), "missing", "bob")
	require.ErrorIs(t, err, ErrChatNotFound)

	chats.addPartErr = errors.New("boom")
	_, err = svc.AddParticipantToChat(context.Background(), "c1", "bob")
	assert.EqualError(t, err, "Error when adding a participant to a chat")
}

func TestGetChatsByParticipantsDedup(t *testing.T) {
	svc, chats, _, _ := newTestService()
	chats.findResult = []model.Chat{{ID: "c1"}}

	got := svc.GetChatsByParticipants(context.Background(), []string{"alice", "alice", "", "bob"})
	require.Len(t, got, 1)
	require.Len(t, chats.findQueries, 1)
	assert.Equal(t, []string{"alice", "bob"}, chats.findQueries[0])
}

func TestGetChatsByParticipantsNeverErrors(t *testing.T) {
	svc, chats, _, _ := newTestService()
	chats.findErr = errors.New("boom")

	got := svc.GetChatsByParticipants(context.Background(), []string{"alice"})
	assert.NotNil(t, got)
	assert.Empty(t, got)

	got = svc.GetChatsByParticipants(context.Background(), nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPopulateChat(t *testing.T) {
	svc, _, msgs, _ := newTestService()
	msgs.byID = map[string]model.Message{
		"m1": {ID: "m1", Msg: "hi", MsgFrom: "alice"},
		"m2": {ID: "m2", Msg: "hey", MsgFrom: "bob"},
	}
	chat := &model.Chat{ID: "c1", Participants: []string{"alice", "bob"}, Messages: []string{"m1", "m2"}}

	populated, err := svc.PopulateChat(context.Background(), chat)
	require.NoError(t, err)
	require.Len(t, populated.Messages, 2)
	assert.Equal(t, "m1", populated.Messages[0].ID)
	require.NotNil(t, populated.Messages[0].User)
	assert.Equal(t, "alice", populated.Messages[0].User.Username)
	require.NotNil(t, populated.Messages[1].User)
	assert.Equal(t, "bob", populated.Messages[1].User.Username)
}

func TestPopulateChatMissingMessage(t *testing.T) {
	svc, _, _, _ := newTestService()
	chat := &model.Chat{ID: "c1", Messages: []string{"missing"}}

	_, err := svc.PopulateChat(context.Background(), chat)
	require.Error(t, err)
}
