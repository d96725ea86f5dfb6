package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatter/internal/model"
)

type fakeDirectory struct {
	mu     sync.Mutex
	online map[string]bool
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{online: make(map[string]bool)}
}

func (f *fakeDirectory) SetOnline(ctx context.Context, username string, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.online[username] = online
	return nil
}

func (f *fakeDirectory) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.User{Username: username, IsOnline: f.online[username]}, nil
}

func (f *fakeDirectory) isOnline(username string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online[username]
}

type rawEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// readEvent читает следующий кадр с дедлайном, чтобы тест не зависал.
func readEvent(t *testing.T, conn *websocket.Conn) rawEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ev rawEvent
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func startTestHub(t *testing.T) (*Hub, *fakeDirectory, *httptest.Server) {
	t.Helper()
	dir := newFakeDirectory()
	hub := NewHub(dir, nil, 100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		hub.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		client := NewClient(hub, conn, r.URL.Query().Get("username"))
		cctx, ccancel := context.WithCancel(context.Background())
		client.Start(cctx, ccancel)
		hub.Register(client)
	}))
	t.Cleanup(srv.Close)

	return hub, dir, srv
}

func dial(t *testing.T, srv *httptest.Server, username string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?username=" + username
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func userUpdate(t *testing.T, ev rawEvent) model.UserUpdatePayload {
	t.Helper()
	require.Equal(t, "userUpdate", ev.Type)
	var p model.UserUpdatePayload
	require.NoError(t, json.Unmarshal(ev.Payload, &p))
	return p
}

func TestHubPresenceAndBroadcast(t *testing.T) {
	hub, dir, srv := startTestHub(t)

	alice := dial(t, srv, "alice")

	// Первое соединение: alice помечается online, событие уходит и ей самой.
	p := userUpdate(t, readEvent(t, alice))
	assert.Equal(t, "alice", p.User.Username)
	assert.Equal(t, model.UpdateUpdated, p.Type)
	assert.True(t, dir.isOnline("alice"))

	bob := dial(t, srv, "bob")
	p = userUpdate(t, readEvent(t, alice))
	assert.Equal(t, "bob", p.User.Username)
	p = userUpdate(t, readEvent(t, bob))
	assert.Equal(t, "bob", p.User.Username)

	// Явный Broadcast доходит до всех клиентов.
	hub.Broadcast(ChatUpdateEvent(model.Chat{ID: "c1"}, model.UpdateCreated))
	for _, conn := range []*websocket.Conn{alice, bob} {
		ev := readEvent(t, conn)
		assert.Equal(t, "chatUpdate", ev.Type)
		var cp model.ChatUpdatePayload
		require.NoError(t, json.Unmarshal(ev.Payload, &cp))
		assert.Equal(t, "c1", cp.Chat.ID)
		assert.Equal(t, model.UpdateCreated, cp.Type)
	}
}

func TestHubOfflineOnLastDisconnect(t *testing.T) {
	_, dir, srv := startTestHub(t)

	alice := dial(t, srv, "alice")
	readEvent(t, alice) // alice online

	// Второе соединение того же пользователя не меняет статус.
	alice2 := dial(t, srv, "alice")
	require.NoError(t, alice2.Close())

	bob := dial(t, srv, "bob")
	readEvent(t, alice) // bob online
	readEvent(t, bob)

	require.NoError(t, alice.Close())

	// Последнее соединение alice закрыто — она уходит в offline, bob получает событие.
	deadline := time.Now().Add(3 * time.Second)
	for {
		p := userUpdate(t, readEvent(t, bob))
		if p.User.Username == "alice" && !p.User.IsOnline {
			break
		}
		require.True(t, time.Now().Before(deadline), "no offline event for alice")
	}
	assert.False(t, dir.isOnline("alice"))
}
