package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/chatter/internal/model"
	"github.com/chatter/internal/repository"
	"github.com/chatter/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// UserDirectory — каталог пользователей. Реализация: repository.UserRepository.
type UserDirectory interface {
	Create(ctx context.Context, u *model.User) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	ListAll(ctx context.Context, limit int) ([]model.User, error)
	Delete(ctx context.Context, username string) error
}

type UserHandler struct {
	users UserDirectory
	hub   Broadcaster
}

func NewUserHandler(users UserDirectory, hub Broadcaster) *UserHandler {
	return &UserHandler{users: users, hub: hub}
}

const usersListLimit = 1000

// GetUsers — GET /users: полный список для начальной синхронизации клиента.
func (h *UserHandler) GetUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListAll(r.Context(), usersListLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error retrieving users")
		return
	}
	result := make([]model.UserPublic, 0, len(users))
	for i := range users {
		result = append(result, users[i].ToPublic())
	}
	writeJSON(w, http.StatusOK, result)
}

type createUserRequest struct {
	Username string `json:"username" validate:"required"`
}

// CreateUser — POST /users. Дубликат username даёт 409.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	if existing, err := h.users.GetByUsername(r.Context(), req.Username); err == nil && existing != nil {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}

	now := time.Now().UTC()
	user := &model.User{
		ID:         uuid.New().String(),
		Username:   req.Username,
		LastSeenAt: now,
		CreatedAt:  now,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Error when saving a user")
		return
	}

	h.hub.Broadcast(ws.UserUpdateEvent(user.ToPublic(), model.UpdateCreated))
	writeJSON(w, http.StatusOK, user.ToPublic())
}

// GetUser — GET /users/{username}.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error retrieving user")
		return
	}
	writeJSON(w, http.StatusOK, user.ToPublic())
}

// DeleteUser — DELETE /users/{username}: удаляет пользователя и рассылает
// событие deleted, чтобы клиенты убрали его из своих списков.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.users.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error retrieving user")
		return
	}

	if err := h.users.Delete(r.Context(), username); err != nil {
		writeError(w, http.StatusInternalServerError, "Error when deleting a user")
		return
	}

	h.hub.Broadcast(ws.UserUpdateEvent(user.ToPublic(), model.UpdateDeleted))
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
