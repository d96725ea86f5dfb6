package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/chatter/internal/push"
)

// SubscriptionSaver хранит Web Push подписки. Реализация: repository.SubscriptionRepository.
type SubscriptionSaver interface {
	Save(ctx context.Context, username string, sub push.Subscription) error
	Delete(ctx context.Context, username, endpoint string) error
}

type PushHandler struct {
	subs      SubscriptionSaver
	publicKey string
}

func NewPushHandler(subs SubscriptionSaver, vapidPublicKey string) *PushHandler {
	return &PushHandler{subs: subs, publicKey: vapidPublicKey}
}

// PublicKey — GET /push/public-key: VAPID-ключ для pushManager.subscribe().
func (h *PushHandler) PublicKey(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.publicKey})
}

type subscribeRequest struct {
	Username     string            `json:"username" validate:"required"`
	Subscription push.Subscription `json:"subscription" validate:"required"`
}

// Subscribe — POST /push/subscribe: тело — PushSubscription из браузера плюс username.
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil || req.Subscription.Endpoint == "" {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if err := h.subs.Save(r.Context(), req.Username, req.Subscription); err != nil {
		writeError(w, http.StatusInternalServerError, "Error when saving a subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type unsubscribeRequest struct {
	Username string `json:"username" validate:"required"`
	Endpoint string `json:"endpoint" validate:"required"`
}

// Unsubscribe — DELETE /push/subscribe.
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	var req unsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if err := h.subs.Delete(r.Context(), req.Username, req.Endpoint); err != nil {
		writeError(w, http.StatusInternalServerError, "Error when deleting a subscription")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
