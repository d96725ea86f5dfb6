// Package ws — realtime-канал: хаб соединений и рассылка типизированных событий
// всем подключённым клиентам (fire-and-forget, без подтверждений).
package ws

import (
	"context"
	"sync"
	"time"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/model"
)

// UserDirectory — доступ к справочнику пользователей для отметки online/offline.
type UserDirectory interface {
	SetOnline(ctx context.Context, username string, online bool) error
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// PresenceStore дублирует online-статус в быстрое хранилище (Redis или память).
type PresenceStore interface {
	SetOnline(ctx context.Context, username string, online bool) error
}

// Hub владеет всеми WebSocket-клиентами. Создаётся явно в main и передаётся
// зависимостям — глобального состояния нет; время жизни ограничено контекстом Run.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*Client]struct{}
	byUser   map[string]int
	total    int
	maxConns int

	users    UserDirectory
	presence PresenceStore

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(users UserDirectory, presence PresenceStore, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		byUser:     make(map[string]int),
		maxConns:   maxConns,
		users:      users,
		presence:   presence,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	allClients := make([]*Client, 0, h.total)
	for c := range h.clients {
		allClients = append(allClients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.byUser = make(map[string]int)
	h.total = 0
	h.mu.Unlock()

	// Close connections outside the lock (network I/O).
	for _, c := range allClients {
		c.Close()
	}
	for _, c := range allClients {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.username)
		c.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.byUser[c.username]++
	h.total++
	firstConn := h.byUser[c.username] == 1
	h.mu.Unlock()

	if firstConn {
		h.setOnline(c.username, true)
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, exists := h.clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	h.total--
	h.byUser[c.username]--
	lastConn := h.byUser[c.username] == 0
	if lastConn {
		delete(h.byUser, c.username)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()

	if lastConn {
		h.setOnline(c.username, false)
	}
}

// setOnline отмечает статус в БД и presence-хранилище и рассылает userUpdate updated.
func (h *Hub) setOnline(username string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.users.SetOnline(ctx, username, online); err != nil {
		logger.Errorf("ws set online user=%s: %v", username, err)
	}
	if h.presence != nil {
		if err := h.presence.SetOnline(ctx, username, online); err != nil {
			logger.Errorf("ws presence user=%s: %v", username, err)
		}
	}
	u, err := h.users.GetByUsername(ctx, username)
	if err != nil {
		logger.Errorf("ws get user for status broadcast user=%s: %v", username, err)
		return
	}
	h.Broadcast(UserUpdateEvent(u.ToPublic(), model.UpdateUpdated))
}

// Broadcast отправляет событие всем подключённым клиентам. Без подтверждений и
// гарантий доставки; медленный клиент с переполненным буфером отключается.
func (h *Hub) Broadcast(ev OutgoingEvent) {
	h.mu.RLock()
	targets := make([]*Client, 0, h.total)
	for c := range h.clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, ev)
	}
}

func (h *Hub) sendToClient(c *Client, ev OutgoingEvent) {
	select {
	case c.send <- ev:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.username)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
