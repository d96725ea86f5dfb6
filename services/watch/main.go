// Команда watch — консольный клиент: забирает список пользователей по HTTP,
// подписывается на /ws и держит локальную копию списка в актуальном состоянии,
// печатая её после каждого изменения.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/chatter/internal/logger"
	"github.com/chatter/internal/model"
	"github.com/chatter/internal/userlist"
)

func main() {
	logger.SetPrefix("watch")
	apiURL := flag.String("api", "http://localhost:8080", "base URL of the API service")
	username := flag.String("username", "watcher", "username to present on the WebSocket")
	filter := flag.String("filter", "", "case-insensitive username filter")
	flag.Parse()

	list := userlist.New()
	list.SetFilter(*filter)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := fetchUsers(ctx, *apiURL, list); err != nil {
		logger.Errorf("fetch users: %v", err)
		os.Exit(1)
	}
	printUsers(list)

	conn, err := dialWS(ctx, *apiURL, *username)
	if err != nil {
		logger.Errorf("connect ws: %v", err)
		os.Exit(1)
	}
	defer conn.Close()
	logger.Infof("connected, watching %d users", list.Len())

	go func() {
		<-ctx.Done()
		// Разбудить ReadMessage, иначе выход только по таймауту.
		conn.Close()
	}()

	for {
		var ev incomingEvent
		if err := conn.ReadJSON(&ev); err != nil {
			if ctx.Err() != nil {
				logger.Info("stopped")
				return
			}
			logger.Errorf("ws read: %v", err)
			os.Exit(1)
		}
		if ev.Type != "userUpdate" {
			continue
		}
		var payload model.UserUpdatePayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			logger.Errorf("ws payload: %v", err)
			continue
		}
		list.Apply(payload.User, payload.Type)
		printUsers(list)
	}
}

type incomingEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func fetchUsers(ctx context.Context, apiURL string, list *userlist.List) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(apiURL, "/")+"/users", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var users []model.UserPublic
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return err
	}
	list.SetUsers(users)
	return nil
}

func dialWS(ctx context.Context, apiURL, username string) (*websocket.Conn, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	u.RawQuery = "username=" + url.QueryEscape(username)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	conn, resp, err := websocket.DefaultDialer.DialContext(dialCtx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

func printUsers(list *userlist.List) {
	users := list.Users()
	fmt.Printf("--- users (%d) ---\n", len(users))
	for _, u := range users {
		status := "offline"
		if u.IsOnline {
			status = "online"
		}
		fmt.Printf("%-24s %s\n", u.Username, status)
	}
}
