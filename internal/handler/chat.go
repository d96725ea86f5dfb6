package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/chatter/internal/model"
	"github.com/chatter/internal/ws"
	"github.com/go-chi/chi/v5"
)

// ChatService — операции сервиса чатов. Реализация: service.ChatService.
type ChatService interface {
	SaveChat(ctx context.Context, p model.CreateChatPayload) (*model.Chat, error)
	CreateMessage(ctx context.Context, in model.MessageInput) (*model.Message, error)
	AddMessageToChat(ctx context.Context, chatID, messageID string) (*model.Chat, error)
	GetChat(ctx context.Context, chatID string) (*model.Chat, error)
	AddParticipantToChat(ctx context.Context, chatID, username string) (*model.Chat, error)
	GetChatsByParticipants(ctx context.Context, usernames []string) []model.Chat
	PopulateChat(ctx context.Context, c *model.Chat) (*model.PopulatedChat, error)
}

// Broadcaster рассылает realtime-событие всем клиентам. Реализация: ws.Hub.
type Broadcaster interface {
	Broadcast(ev ws.OutgoingEvent)
}

// PushNotifier отправляет пуш-уведомления. Если nil — пуши не отправляются.
type PushNotifier interface {
	Notify(ctx context.Context, username, title, body string, data map[string]string)
}

const errRetrievingChat = "Error retrieving chat"

type ChatHandler struct {
	svc      ChatService
	hub      Broadcaster
	notifier PushNotifier
}

func NewChatHandler(svc ChatService, hub Broadcaster, notifier PushNotifier) *ChatHandler {
	return &ChatHandler{svc: svc, hub: hub, notifier: notifier}
}

// CreateChat — POST /chat/createChat.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req model.CreateChatPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	chat, err := h.svc.SaveChat(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Популяция после успешной записи: её сбой даёт 500, хотя мутация уже
	// закоммичена (см. DESIGN.md).
	populated, err := h.svc.PopulateChat(r.Context(), chat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errRetrievingChat)
		return
	}

	h.hub.Broadcast(ws.ChatUpdateEvent(*chat, model.UpdateCreated))
	writeJSON(w, http.StatusOK, populated)
}

// AddMessage — POST /chat/{chatId}/addMessage: сообщение создаётся отдельно,
// затем его id дописывается в чат.
func (h *ChatHandler) AddMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")

	var req model.MessageInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	msg, err := h.svc.CreateMessage(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	chat, err := h.svc.AddMessageToChat(r.Context(), chatID, msg.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	populated, err := h.svc.PopulateChat(r.Context(), chat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errRetrievingChat)
		return
	}

	h.hub.Broadcast(ws.ChatUpdateEvent(*chat, model.UpdateUpdated))
	h.notifyParticipants(chat, msg)
	writeJSON(w, http.StatusOK, populated)
}

// GetChat — GET /chat/{chatId}. "Не найдено" отдаётся как 500, не 404 —
// фиксированный контракт API (см. DESIGN.md).
func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")

	chat, err := h.svc.GetChat(r.Context(), chatID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	populated, err := h.svc.PopulateChat(r.Context(), chat)
	if err != nil {
		writeError(w, http.StatusInternalServerError, errRetrievingChat)
		return
	}
	writeJSON(w, http.StatusOK, populated)
}

type AddParticipantRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// AddParticipant — POST /chat/{chatId}/addParticipant. Повторное добавление
// того же участника идемпотентно.
func (h *ChatHandler) AddParticipant(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "chatId")

	var req AddParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	chat, err := h.svc.AddParticipantToChat(r.Context(), chatID, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.hub.Broadcast(ws.ChatUpdateEvent(*chat, model.UpdateUpdated))
	writeJSON(w, http.StatusOK, chat)
}

// GetChatsByUser — GET /chat/getChatsByUser/{username}: все чаты, где участвует
// username (superset-поиск по одному участнику).
func (h *ChatHandler) GetChatsByUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	chats := h.svc.GetChatsByParticipants(r.Context(), []string{username})
	result := make([]model.PopulatedChat, 0, len(chats))
	for i := range chats {
		populated, err := h.svc.PopulateChat(r.Context(), &chats[i])
		if err != nil {
			writeError(w, http.StatusInternalServerError, errRetrievingChat)
			return
		}
		result = append(result, *populated)
	}
	writeJSON(w, http.StatusOK, result)
}

// notifyParticipants шлёт Web Push всем участникам, кроме автора (best effort).
func (h *ChatHandler) notifyParticipants(chat *model.Chat, msg *model.Message) {
	if h.notifier == nil {
		return
	}
	body := msg.Msg
	if len(body) > 120 {
		body = body[:117] + "..."
	}
	data := map[string]string{"chat_id": chat.ID, "message_id": msg.ID}
	for _, username := range chat.Participants {
		if username == msg.MsgFrom {
			continue
		}
		go h.notifier.Notify(context.Background(), username, msg.MsgFrom, body, data)
	}
}
