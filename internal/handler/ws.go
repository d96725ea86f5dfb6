package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/ws"
	"github.com/gorilla/websocket"
)

// WSHandler апгрейдит HTTP-запрос в WebSocket и отдаёт соединение хабу.
type WSHandler struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(hub *ws.Hub, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

// checkOrigin: пустой Origin (не-браузерные клиенты) и "*" разрешены всегда.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// Serve — GET /ws?username=... Имя обязательно: по нему хаб ведёт presence.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.URL.Query().Get("username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам пишет ответ при ошибке.
		logger.Errorf("ws upgrade user=%s: %v", username, err)
		return
	}

	client := ws.NewClient(h.hub, conn, username)
	ctx, cancel := context.WithCancel(context.Background())
	client.Start(ctx, cancel)
	h.hub.Register(client)
}
